package domain

const (
	DefaultImageQuality    = 85
	DefaultResizePercent   = 100
	DefaultCompressQuality = 60
)

// Option keys accepted by the options-update operation.
const (
	OptionImageQuality    = "image_quality"
	OptionResizePercent   = "resize_percent"
	OptionCompressQuality = "compress_quality"
)

// Options is the per-owner conversion configuration. The fixed field set
// replaces the original system's loosely-typed settings dictionary.
type Options struct {
	ImageQuality    int `json:"image_quality"`
	ResizePercent   int `json:"resize_percent"`
	CompressQuality int `json:"compress_quality"`
}

// DefaultOptions returns the documented fallbacks: quality 85, no resize,
// compression quality 60.
func DefaultOptions() Options {
	return Options{
		ImageQuality:    DefaultImageQuality,
		ResizePercent:   DefaultResizePercent,
		CompressQuality: DefaultCompressQuality,
	}
}
