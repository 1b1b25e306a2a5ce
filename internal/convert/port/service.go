package port

import (
	"context"
	"io"

	"github.com/fileconv/fileconv/internal/convert/domain"
)

// ConversionService is the inbound port: everything the transport shell may
// ask of the conversion engine.
type ConversionService interface {
	// Ingest receives an upload stream, enforces the size ceiling, and
	// registers the resulting artifact.
	Ingest(ctx context.Context, ownerID int64, filename string, declaredSize int64, reader io.Reader) (*domain.Artifact, error)

	// Convert runs one (artifact, target) conversion through the matrix
	// gate and the worker pool.
	Convert(ctx context.Context, artifactID, targetExt string) domain.ConversionOutcome

	// Extract unpacks an archive artifact into a staging directory.
	Extract(ctx context.Context, artifactID string) domain.ExtractionResult

	// Compress shrinks an artifact using the owner's compression quality.
	Compress(ctx context.Context, artifactID string) domain.ConversionOutcome

	// UpdateOption mutates one per-owner option and returns the full set.
	UpdateOption(ownerID int64, key string, value int) (domain.Options, error)

	// GetArtifact returns registered artifact metadata.
	GetArtifact(artifactID string) (*domain.Artifact, error)

	// Discard removes a delivered output from disk.
	Discard(path string)
}
