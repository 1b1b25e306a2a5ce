package port

import (
	"context"

	"github.com/fileconv/fileconv/internal/convert/domain"
)

//go:generate mockgen -destination=../service/mocks/converter_mock.go -package=mocks -source=converter.go

// ConvertRequest carries one conversion job into a type converter. Paths are
// borrowed for the duration of the call only.
type ConvertRequest struct {
	InputPath  string
	OutputPath string
	SourceExt  string
	TargetExt  string
	Opts       domain.Options
}

// Converter is the uniform per-category conversion strategy. On success
// exactly one file exists at OutputPath; on failure any partial output has
// been removed.
type Converter interface {
	Convert(ctx context.Context, req ConvertRequest) domain.ConversionOutcome
}

// Compressor reduces a file in place of format conversion. Image inputs are
// re-encoded smaller; everything else degrades to a copy.
type Compressor interface {
	Compress(ctx context.Context, req ConvertRequest) domain.ConversionOutcome
}

// Extractor unpacks an archive into destDir with safety guards applied
// before any entry is written.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) domain.ExtractionResult
}

// MetaProber derives optional artifact metadata (image dimensions, sheet
// counts, archive entry samples). A nil result means nothing was probed.
type MetaProber interface {
	Probe(path, extension string, kind domain.FileKind) *domain.ArtifactMeta
}
