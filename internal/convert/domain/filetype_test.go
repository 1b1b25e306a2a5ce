package domain

import "testing"

func TestKindOf(t *testing.T) {
	tests := []struct {
		ext  string
		want FileKind
	}{
		{"jpg", KindImage},
		{"PNG", KindImage},
		{"pdf", KindDocument},
		{"txt", KindDocument},
		{"xlsx", KindSpreadsheet},
		{"csv", KindSpreadsheet},
		{"mp3", KindAudio},
		{"mkv", KindVideo},
		{"zip", KindArchive},
		{"tar.gz", KindArchive},
		{"exe", KindUnknown},
		{"", KindUnknown},
	}

	for _, tt := range tests {
		if got := KindOf(tt.ext); got != tt.want {
			t.Errorf("KindOf(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestExtensionOf(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"photo.JPG", "jpg"},
		{"report.final.pdf", "pdf"},
		{"bundle.tar.gz", "tar.gz"},
		{"logs.tar.bz2", "tar.bz2"},
		{"noextension", ""},
		{"trailingdot.", ""},
	}

	for _, tt := range tests {
		if got := ExtensionOf(tt.filename); got != tt.want {
			t.Errorf("ExtensionOf(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
