package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/anthanhphan/gosdk/logger"
	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"

	"github.com/fileconv/fileconv/internal/convert/domain"
	"github.com/fileconv/fileconv/internal/convert/port"
)

// intakeService streams uploads to disk, enforces the upload ceiling, and
// registers accepted artifacts.
type intakeService struct {
	core *ConversionServiceImpl
}

func newIntakeService(core *ConversionServiceImpl) *intakeService {
	return &intakeService{core: core}
}

// ingest spools the upload to a temp file while hashing it, then promotes it
// into the upload directory under its artifact ID. The size ceiling is
// enforced on the actual stream, not just the declared size.
func (s *intakeService) ingest(ctx context.Context, ownerID int64, filename string, declaredSize int64, reader io.Reader) (*domain.Artifact, error) {
	maxBytes := s.core.cfg.Limits.MaxUploadBytes
	if declaredSize > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes declared, limit is %d", port.ErrUploadTooLarge, declaredSize, maxBytes)
	}

	ext := domain.ExtensionOf(filename)
	kind := domain.KindOf(ext)
	if kind == domain.KindUnknown {
		return nil, fmt.Errorf("%w: .%s", port.ErrUnsupportedInput, ext)
	}

	tempPath := filepath.Join(s.core.cfg.App.TempDir, "upload-"+uuid.NewString())
	size, sum, err := s.spool(ctx, tempPath, reader, maxBytes)
	if err != nil {
		_ = os.Remove(tempPath)
		return nil, err
	}

	now := time.Now().UTC()
	id := fmt.Sprintf("%d_%d_%08x", ownerID, now.Unix(), uint32(sum))
	finalPath := filepath.Join(s.core.cfg.App.UploadDir, id+"."+ext)
	if err := os.Rename(tempPath, finalPath); err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("%w: cannot store upload: %v", port.ErrIOFailure, err)
	}

	artifact := &domain.Artifact{
		ID:        id,
		OwnerID:   ownerID,
		Path:      finalPath,
		Extension: ext,
		Size:      size,
		Kind:      kind,
		CreatedAt: now,
	}
	if s.core.deps.Prober != nil {
		artifact.Meta = s.core.deps.Prober.Probe(finalPath, ext, kind)
	}

	s.core.reg.register(artifact)
	s.core.metrics.Uploads.Inc()
	logger.Infow("Upload accepted", "artifact_id", id, "owner_id", ownerID, "extension", ext, "size", size)
	return artifact, nil
}

// spool copies the stream to path, returning the byte count and murmur3 sum.
// Reading stops one byte past the ceiling so oversized streams fail fast.
func (s *intakeService) spool(ctx context.Context, path string, reader io.Reader, maxBytes int64) (int64, uint64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: cannot create temp file: %v", port.ErrIOFailure, err)
	}

	hash := murmur3.New64()
	size, err := io.Copy(io.MultiWriter(out, hash), io.LimitReader(readerWithContext(ctx, reader), maxBytes+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, 0, fmt.Errorf("%w: upload stream failed: %v", port.ErrIOFailure, err)
	}
	if size > maxBytes {
		return 0, 0, fmt.Errorf("%w: stream exceeds %d bytes", port.ErrUploadTooLarge, maxBytes)
	}
	return size, hash.Sum64(), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}
