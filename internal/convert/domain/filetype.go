package domain

import "strings"

// FileKind is the semantic category of a file, derived from its extension.
type FileKind string

const (
	KindImage       FileKind = "image"
	KindDocument    FileKind = "document"
	KindSpreadsheet FileKind = "spreadsheet"
	KindAudio       FileKind = "audio"
	KindVideo       FileKind = "video"
	KindArchive     FileKind = "archive"
	KindUnknown     FileKind = "unknown"
)

var kindsByExtension = map[string]FileKind{
	"jpg": KindImage, "jpeg": KindImage, "png": KindImage, "webp": KindImage,
	"bmp": KindImage, "gif": KindImage, "tiff": KindImage, "ico": KindImage,

	"pdf": KindDocument, "docx": KindDocument, "doc": KindDocument,
	"txt": KindDocument, "rtf": KindDocument,

	"xlsx": KindSpreadsheet, "csv": KindSpreadsheet,

	"mp3": KindAudio, "wav": KindAudio, "ogg": KindAudio, "m4a": KindAudio,

	"mp4": KindVideo, "avi": KindVideo, "mov": KindVideo, "mkv": KindVideo,

	"zip": KindArchive, "rar": KindArchive, "7z": KindArchive,
	"tar": KindArchive, "tar.gz": KindArchive, "tgz": KindArchive,
	"tar.bz2": KindArchive,
}

// KindOf classifies an extension (without leading dot, any case).
func KindOf(extension string) FileKind {
	if kind, ok := kindsByExtension[strings.ToLower(extension)]; ok {
		return kind
	}
	return KindUnknown
}

// ExtensionOf extracts the lowercased extension from a filename, treating the
// tar compound suffixes as a single extension so archives dispatch correctly.
func ExtensionOf(filename string) string {
	lower := strings.ToLower(filename)
	for _, compound := range []string{".tar.gz", ".tar.bz2"} {
		if strings.HasSuffix(lower, compound) {
			return compound[1:]
		}
	}

	idx := strings.LastIndex(lower, ".")
	if idx < 0 || idx == len(lower)-1 {
		return ""
	}
	return lower[idx+1:]
}
