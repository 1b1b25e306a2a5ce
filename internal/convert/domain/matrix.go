package domain

import "strings"

// conversionMatrix is the static capability table: source extension to the
// ordered list of target extensions it can produce. Loaded once, never
// mutated; the orchestrator is the sole gatekeeper that consults it.
var conversionMatrix = map[string][]string{
	// Images
	"jpg":  {"png", "webp", "pdf"},
	"jpeg": {"png", "webp", "pdf"},
	"png":  {"jpg", "webp", "pdf"},
	"webp": {"jpg", "png", "pdf"},
	"bmp":  {"jpg", "png", "pdf"},
	"gif":  {"mp4", "webp"},
	"tiff": {"jpg", "png", "pdf"},
	"ico":  {"png", "jpg"},

	// Documents
	"pdf":  {"jpg", "png"},
	"docx": {"pdf", "txt"},
	"doc":  {"pdf", "txt"},
	"txt":  {"pdf"},
	"rtf":  {"pdf", "txt"},

	// Spreadsheets
	"xlsx": {"csv", "json", "html"},
	"csv":  {"xlsx", "json", "html"},

	// Audio
	"mp3": {"wav"},
	"wav": {"mp3"},
	"ogg": {"mp3"},
	"m4a": {"mp3"},

	// Video
	"mp4": {"gif"},
	"avi": {"mp4"},
	"mov": {"mp4"},
	"mkv": {"mp4"},

	// Archives repack through extract-then-pack staging.
	"zip":     {"tar.gz"},
	"rar":     {"zip", "tar.gz"},
	"7z":      {"zip", "tar.gz"},
	"tar":     {"zip"},
	"tar.gz":  {"zip"},
	"tgz":     {"zip"},
	"tar.bz2": {"zip"},
}

// Targets returns the ordered legal target extensions for a source extension.
// The returned slice is a copy; callers cannot mutate the matrix through it.
func Targets(sourceExtension string) []string {
	targets, ok := conversionMatrix[strings.ToLower(sourceExtension)]
	if !ok {
		return nil
	}
	out := make([]string, len(targets))
	copy(out, targets)
	return out
}

// CanConvert reports whether target is a declared conversion for source.
func CanConvert(sourceExtension, targetExtension string) bool {
	target := strings.ToLower(targetExtension)
	for _, t := range conversionMatrix[strings.ToLower(sourceExtension)] {
		if t == target {
			return true
		}
	}
	return false
}

// CanExtract reports the archive extract pseudo-capability, which exists for
// every archive source independent of its repack target list.
func CanExtract(sourceExtension string) bool {
	return KindOf(sourceExtension) == KindArchive
}

// AllCapabilities returns a copy of the full matrix for capability listings.
func AllCapabilities() map[string][]string {
	out := make(map[string][]string, len(conversionMatrix))
	for src := range conversionMatrix {
		out[src] = Targets(src)
	}
	return out
}
