package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/anthanhphan/gosdk/logger"

	"github.com/fileconv/fileconv/internal/convert/config"
	"github.com/fileconv/fileconv/internal/convert/domain"
	"github.com/fileconv/fileconv/internal/convert/port"
	"github.com/fileconv/fileconv/pkg/idgen"
	"github.com/fileconv/fileconv/pkg/resilience"
)

// Deps are the outbound adapters the conversion engine is wired with.
type Deps struct {
	Converters map[domain.FileKind]port.Converter
	Compressor port.Compressor
	Extractor  port.Extractor
	Prober     port.MetaProber
	Metrics    *Metrics
}

// ConversionServiceImpl is a facade that composes conversion use-case
// services.
type ConversionServiceImpl struct {
	cfg     *config.Config
	reg     *registry
	deps    Deps
	pool    *resilience.WorkerPool
	jobIDs  *idgen.Snowflake
	metrics *Metrics

	intake       *intakeService
	orchestrator *orchestrateService
	options      *optionsService
	sweeper      *sweepService
}

// Ensure ConversionServiceImpl implements port.ConversionService.
var _ port.ConversionService = (*ConversionServiceImpl)(nil)

// NewConversionService builds the conversion facade and all use-case
// services, creating the working directories up front.
func NewConversionService(cfg *config.Config, deps Deps) (*ConversionServiceImpl, error) {
	for _, dir := range []string{cfg.App.UploadDir, cfg.App.OutputDir, cfg.App.TempDir, cfg.App.ExtractDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create working directory %q: %w", dir, err)
		}
	}

	jobIDs, err := idgen.New(cfg.App.NodeID, nil)
	if err != nil {
		return nil, fmt.Errorf("job id generator: %w", err)
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	svc := &ConversionServiceImpl{
		cfg:     cfg,
		reg:     newRegistry(),
		deps:    deps,
		pool:    resilience.NewWorkerPool(cfg.App.MaxWorkers, cfg.App.QueueSize),
		jobIDs:  jobIDs,
		metrics: metrics,
	}

	svc.intake = newIntakeService(svc)
	svc.orchestrator = newOrchestrateService(svc)
	svc.options = newOptionsService(svc)
	svc.sweeper = newSweepService(svc)

	return svc, nil
}

// Ingest receives an upload stream, enforces the size ceiling, and registers
// the resulting artifact.
func (s *ConversionServiceImpl) Ingest(ctx context.Context, ownerID int64, filename string, declaredSize int64, reader io.Reader) (*domain.Artifact, error) {
	return s.intake.ingest(ctx, ownerID, filename, declaredSize, reader)
}

// Convert runs one (artifact, target) conversion through the matrix gate and
// the worker pool.
func (s *ConversionServiceImpl) Convert(ctx context.Context, artifactID, targetExt string) domain.ConversionOutcome {
	return s.orchestrator.convert(ctx, artifactID, targetExt)
}

// Extract unpacks an archive artifact into its staging directory.
func (s *ConversionServiceImpl) Extract(ctx context.Context, artifactID string) domain.ExtractionResult {
	return s.orchestrator.extract(ctx, artifactID)
}

// Compress shrinks an artifact using its owner's compression quality.
func (s *ConversionServiceImpl) Compress(ctx context.Context, artifactID string) domain.ConversionOutcome {
	return s.orchestrator.compress(ctx, artifactID)
}

// UpdateOption validates and applies one per-owner option.
func (s *ConversionServiceImpl) UpdateOption(ownerID int64, key string, value int) (domain.Options, error) {
	return s.options.update(ownerID, key, value)
}

// GetArtifact returns registered artifact metadata.
func (s *ConversionServiceImpl) GetArtifact(artifactID string) (*domain.Artifact, error) {
	a, ok := s.reg.get(artifactID)
	if !ok {
		return nil, port.ErrUnknownArtifact
	}
	return a, nil
}

// Discard removes a delivered output from disk.
func (s *ConversionServiceImpl) Discard(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warnw("Failed to discard delivered output", "path", path, "error", err.Error())
	}
}

// StartRetentionSweep schedules the periodic cleanup of expired artifacts.
func (s *ConversionServiceImpl) StartRetentionSweep() error {
	return s.sweeper.start()
}

// SweepNow runs one retention pass immediately.
func (s *ConversionServiceImpl) SweepNow(now time.Time) (int, error) {
	return s.sweeper.sweep(now)
}

// Shutdown stops the sweep scheduler and drains the worker pool.
func (s *ConversionServiceImpl) Shutdown() {
	s.sweeper.stop()
	s.pool.Close()
	s.pool.Wait()
}

func (s *ConversionServiceImpl) retention() time.Duration {
	return time.Duration(s.cfg.Retention.MaxAgeHours) * time.Hour
}
