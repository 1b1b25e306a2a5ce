package port

import "errors"

// Error taxonomy for conversion and extraction failures. Converters translate
// these into outcome values; none of them may escape a single job and take
// down the orchestrator or a sibling job.
var (
	ErrUnsupportedInput      = errors.New("input format not supported")
	ErrUnsupportedConversion = errors.New("conversion not supported for this source format")
	ErrMissingCapability     = errors.New("required conversion capability unavailable")
	ErrCorruptInput          = errors.New("input file is corrupt or unreadable")
	ErrResourceLimit         = errors.New("resource limit exceeded")
	ErrEncodeFailure         = errors.New("re-encoding failed")
	ErrIOFailure             = errors.New("disk i/o failed")

	ErrUnknownArtifact = errors.New("artifact not found")
	ErrServerBusy      = errors.New("too many concurrent jobs")
	ErrUploadTooLarge  = errors.New("upload exceeds maximum file size")
)
