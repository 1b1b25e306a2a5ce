package idgen

import "time"

// Clock abstracts the millisecond time source for the ID generator.
type Clock interface {
	Now() int64
}

// SystemClock reads the local system time.
type SystemClock struct{}

func (s *SystemClock) Now() int64 {
	return time.Now().UnixMilli()
}
