package idgen

import (
	"testing"
)

// fixedClock returns a controllable millisecond timestamp.
type fixedClock struct {
	current int64
}

func (f *fixedClock) Now() int64 {
	return f.current
}

func TestSnowflakeNextIsMonotonic(t *testing.T) {
	clock := &fixedClock{current: Epoch + 1000}
	sf, err := New(1, clock)
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	id1, err := sf.Next()
	if err != nil {
		t.Fatalf("failed to generate ID: %v", err)
	}
	id2, err := sf.Next()
	if err != nil {
		t.Fatalf("failed to generate ID: %v", err)
	}

	if id1 >= id2 {
		t.Errorf("IDs must be unique and increasing, got %d then %d", id1, id2)
	}
}

func TestSnowflakeNodeIDTooLarge(t *testing.T) {
	if _, err := New(1024, nil); err != ErrNodeIDTooLarge {
		t.Errorf("expected ErrNodeIDTooLarge, got %v", err)
	}
}

func TestSnowflakeClockMovedBack(t *testing.T) {
	clock := &fixedClock{current: Epoch + 2000}
	sf, _ := New(1, clock)
	_, _ = sf.Next()

	clock.current = Epoch + 1000
	if _, err := sf.Next(); err != ErrClockMovedBack {
		t.Errorf("expected ErrClockMovedBack, got %v", err)
	}
}
