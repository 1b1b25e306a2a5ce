package domain

import (
	"slices"
	"testing"
)

func TestTargetsOrderedAndCopied(t *testing.T) {
	targets := Targets("jpg")
	if !slices.Equal(targets, []string{"png", "webp", "pdf"}) {
		t.Fatalf("unexpected targets for jpg: %v", targets)
	}

	// Mutating the returned slice must not leak into the matrix.
	targets[0] = "bmp"
	if !slices.Equal(Targets("jpg"), []string{"png", "webp", "pdf"}) {
		t.Fatal("matrix mutated through returned slice")
	}

	if Targets("exe") != nil {
		t.Fatal("unknown source must have no targets")
	}
}

func TestCanConvert(t *testing.T) {
	tests := []struct {
		source, target string
		want           bool
	}{
		{"jpg", "png", true},
		{"jpg", "PDF", true},
		{"jpg", "gif", false},
		{"txt", "pdf", true},
		{"pdf", "txt", false},
		{"zip", "tar.gz", true},
		{"zip", "rar", false},
		{"exe", "pdf", false},
	}

	for _, tt := range tests {
		if got := CanConvert(tt.source, tt.target); got != tt.want {
			t.Errorf("CanConvert(%q, %q) = %v, want %v", tt.source, tt.target, got, tt.want)
		}
	}
}

func TestCanExtract(t *testing.T) {
	for _, ext := range []string{"zip", "rar", "7z", "tar", "tar.gz", "tar.bz2"} {
		if !CanExtract(ext) {
			t.Errorf("CanExtract(%q) = false, want true", ext)
		}
	}
	if CanExtract("jpg") {
		t.Error("CanExtract(jpg) = true, want false")
	}
}

// Every matrix target must belong to a category with a registered converter
// kind; a target nobody can produce would be a latent contract violation.
func TestEveryTargetHasAKnownKind(t *testing.T) {
	for source, targets := range AllCapabilities() {
		if KindOf(source) == KindUnknown {
			t.Errorf("matrix source %q has unknown kind", source)
		}
		for _, target := range targets {
			if KindOf(target) == KindUnknown {
				t.Errorf("matrix target %q (from %q) has unknown kind", target, source)
			}
		}
	}
}

func TestBoundedListing(t *testing.T) {
	files := []string{"a", "b", "c", "d"}

	shown, rest := BoundedListing(files, 2)
	if len(shown) != 2 || rest != 2 {
		t.Fatalf("got %d shown, %d rest; want 2, 2", len(shown), rest)
	}

	shown, rest = BoundedListing(files, 10)
	if len(shown) != 4 || rest != 0 {
		t.Fatalf("got %d shown, %d rest; want 4, 0", len(shown), rest)
	}
}
