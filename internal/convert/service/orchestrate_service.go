package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anthanhphan/gosdk/logger"

	"github.com/fileconv/fileconv/internal/convert/domain"
	"github.com/fileconv/fileconv/internal/convert/port"
	"github.com/fileconv/fileconv/pkg/humanize"
)

// Job lifecycle phases. Every job moves strictly forward: requested,
// validated, converting, then delivered or failed.
type jobPhase string

const (
	phaseRequested  jobPhase = "requested"
	phaseValidated  jobPhase = "validated"
	phaseConverting jobPhase = "converting"
	phaseDelivered  jobPhase = "delivered"
	phaseFailed     jobPhase = "failed"
)

// orchestrateService validates jobs against the capability matrix and runs
// them on the bounded worker pool. A saturated pool is a hard rejection, not
// an unbounded queue.
type orchestrateService struct {
	core *ConversionServiceImpl
}

func newOrchestrateService(core *ConversionServiceImpl) *orchestrateService {
	return &orchestrateService{core: core}
}

type jobTrace struct {
	id    int64
	phase jobPhase
}

func (s *orchestrateService) newTrace(kind string) *jobTrace {
	id, err := s.core.jobIDs.Next()
	if err != nil {
		// Clock skew only; a timestamp keeps jobs distinguishable in logs.
		id = time.Now().UnixNano()
	}
	t := &jobTrace{id: id, phase: phaseRequested}
	logger.Infow("Job requested", "job_id", t.id, "kind", kind)
	return t
}

func (t *jobTrace) advance(phase jobPhase, kv ...any) {
	t.phase = phase
	args := append([]any{"job_id", t.id, "phase", string(phase)}, kv...)
	logger.Infow("Job phase changed", args...)
}

func (t *jobTrace) fail(reason string) domain.ConversionOutcome {
	t.phase = phaseFailed
	logger.Warnw("Job failed", "job_id", t.id, "reason", reason)
	return domain.ConversionFailed(reason)
}

func (t *jobTrace) failFor(class domain.FailureReason, reason string) domain.ConversionOutcome {
	out := t.fail(reason)
	out.Reason = class
	return out
}

// convert runs one (artifact, target) conversion end to end.
func (s *orchestrateService) convert(ctx context.Context, artifactID, targetExt string) domain.ConversionOutcome {
	trace := s.newTrace("convert")

	artifact, ok := s.core.reg.get(artifactID)
	if !ok {
		return s.fin(trace.failFor(domain.ReasonUnknownArtifact, "file not found or expired, upload it again"))
	}

	target := strings.ToLower(strings.TrimPrefix(targetExt, "."))
	if !domain.CanConvert(artifact.Extension, target) {
		targets := domain.Targets(artifact.Extension)
		if len(targets) == 0 {
			return s.fin(trace.fail(fmt.Sprintf("no conversions available for .%s files", artifact.Extension)))
		}
		return s.fin(trace.fail(fmt.Sprintf("cannot convert .%s to .%s; available targets: %s",
			artifact.Extension, target, strings.Join(targets, ", "))))
	}

	converter, ok := s.core.deps.Converters[artifact.Kind]
	if !ok {
		return s.fin(trace.fail(fmt.Sprintf("no converter installed for %s files", artifact.Kind)))
	}
	trace.advance(phaseValidated, "artifact_id", artifactID, "source", artifact.Extension, "target", target)

	req := port.ConvertRequest{
		InputPath:  artifact.Path,
		OutputPath: s.outputPath(trace.id, artifact.ID, "converted", target),
		SourceExt:  artifact.Extension,
		TargetExt:  target,
		Opts:       s.core.reg.optionsFor(artifact.OwnerID),
	}
	outcome := s.runJob(ctx, trace, func(jobCtx context.Context) domain.ConversionOutcome {
		return converter.Convert(jobCtx, req)
	})
	return s.fin(s.deliver(trace, outcome))
}

// compress shrinks an artifact with the owner's compression quality. Only
// image inputs are re-encoded; other categories have no smaller encoding
// available.
func (s *orchestrateService) compress(ctx context.Context, artifactID string) domain.ConversionOutcome {
	trace := s.newTrace("compress")

	artifact, ok := s.core.reg.get(artifactID)
	if !ok {
		return s.fin(trace.failFor(domain.ReasonUnknownArtifact, "file not found or expired, upload it again"))
	}
	if artifact.Kind != domain.KindImage {
		return s.fin(trace.fail(fmt.Sprintf("compression supports image files only, not .%s", artifact.Extension)))
	}
	if s.core.deps.Compressor == nil {
		return s.fin(trace.fail("no compressor installed"))
	}
	trace.advance(phaseValidated, "artifact_id", artifactID, "source", artifact.Extension)

	req := port.ConvertRequest{
		InputPath:  artifact.Path,
		OutputPath: s.outputPath(trace.id, artifact.ID, "compressed", artifact.Extension),
		SourceExt:  artifact.Extension,
		TargetExt:  artifact.Extension,
		Opts:       s.core.reg.optionsFor(artifact.OwnerID),
	}
	outcome := s.runJob(ctx, trace, func(jobCtx context.Context) domain.ConversionOutcome {
		return s.core.deps.Compressor.Compress(jobCtx, req)
	})
	return s.fin(s.deliver(trace, outcome))
}

// extract unpacks an archive artifact into its own staging directory.
func (s *orchestrateService) extract(ctx context.Context, artifactID string) domain.ExtractionResult {
	trace := s.newTrace("extract")

	artifact, ok := s.core.reg.get(artifactID)
	if !ok {
		trace.phase = phaseFailed
		return domain.ExtractionFailedFor(domain.ReasonUnknownArtifact, "file not found or expired, upload it again")
	}
	if !domain.CanExtract(artifact.Extension) {
		trace.phase = phaseFailed
		return domain.ExtractionFailed(fmt.Sprintf(".%s files cannot be extracted", artifact.Extension))
	}
	if s.core.deps.Extractor == nil {
		trace.phase = phaseFailed
		return domain.ExtractionFailed("no extractor installed")
	}
	trace.advance(phaseValidated, "artifact_id", artifactID, "source", artifact.Extension)

	// Keyed by job id so concurrent extracts of one artifact never share
	// staging, and a timed-out job only ever removes its own directory.
	destDir := filepath.Join(s.core.cfg.App.ExtractDir, fmt.Sprintf("%d_%s", trace.id, artifact.ID))
	resultCh := make(chan domain.ExtractionResult, 1)
	jobCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	err := s.core.pool.TrySubmit(func() {
		resultCh <- s.core.deps.Extractor.Extract(jobCtx, artifact.Path, destDir)
	})
	if err != nil {
		s.core.metrics.Rejections.Inc()
		trace.phase = phaseFailed
		return domain.ExtractionFailedFor(domain.ReasonServerBusy,
			fmt.Sprintf("%v, try again shortly", port.ErrServerBusy))
	}
	trace.advance(phaseConverting)
	s.core.metrics.InFlight.Inc()
	defer s.core.metrics.InFlight.Dec()

	select {
	case res := <-resultCh:
		if res.Succeeded() {
			trace.advance(phaseDelivered, "files", len(res.Files))
		} else {
			trace.phase = phaseFailed
			logger.Warnw("Job failed", "job_id", trace.id, "reason", res.Message)
		}
		return res
	case <-jobCtx.Done():
		go func() { <-resultCh; _ = os.RemoveAll(destDir) }()
		trace.phase = phaseFailed
		return domain.ExtractionFailed(fmt.Sprintf("extraction timed out after %s", s.timeout()))
	}
}

// runJob submits work to the pool with busy rejection and a per-job timeout.
func (s *orchestrateService) runJob(ctx context.Context, trace *jobTrace, run func(context.Context) domain.ConversionOutcome) domain.ConversionOutcome {
	outcomeCh := make(chan domain.ConversionOutcome, 1)
	jobCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	err := s.core.pool.TrySubmit(func() {
		outcomeCh <- run(jobCtx)
	})
	if err != nil {
		s.core.metrics.Rejections.Inc()
		return trace.failFor(domain.ReasonServerBusy,
			fmt.Sprintf("%v, try again shortly", port.ErrServerBusy))
	}
	trace.advance(phaseConverting)
	s.core.metrics.InFlight.Inc()
	defer s.core.metrics.InFlight.Dec()

	select {
	case outcome := <-outcomeCh:
		return outcome
	case <-jobCtx.Done():
		// The worker finishes on its own schedule; its output is removed
		// once it lands so a timed-out job leaves nothing behind.
		go func() {
			if late := <-outcomeCh; late.OutputPath != "" {
				_ = os.Remove(late.OutputPath)
			}
		}()
		return trace.fail(fmt.Sprintf("job timed out after %s", s.timeout()))
	}
}

// deliver applies the delivery ceiling to a finished job and records its
// final phase.
func (s *orchestrateService) deliver(trace *jobTrace, outcome domain.ConversionOutcome) domain.ConversionOutcome {
	if trace.phase == phaseFailed {
		return outcome
	}
	if !outcome.Succeeded() {
		trace.phase = phaseFailed
		logger.Warnw("Job failed", "job_id", trace.id, "reason", outcome.Message)
		return outcome
	}

	maxBytes := s.core.cfg.Limits.MaxDeliveryBytes
	if outcome.OutputSize > maxBytes {
		_ = os.Remove(outcome.OutputPath)
		return trace.fail(fmt.Sprintf("result is %s, above the %s delivery limit",
			humanize.Size(outcome.OutputSize), humanize.Size(maxBytes)))
	}

	trace.advance(phaseDelivered, "output", outcome.OutputPath, "size", outcome.OutputSize, "status", string(outcome.Status))
	return outcome
}

// fin records the outcome status metric on the way out.
func (s *orchestrateService) fin(outcome domain.ConversionOutcome) domain.ConversionOutcome {
	s.core.metrics.Conversions.WithLabelValues(string(outcome.Status)).Inc()
	return outcome
}

func (s *orchestrateService) outputPath(jobID int64, artifactID, suffix, ext string) string {
	name := fmt.Sprintf("%d_%s_%s.%s", jobID, artifactID, suffix, ext)
	return filepath.Join(s.core.cfg.App.OutputDir, name)
}

func (s *orchestrateService) timeout() time.Duration {
	return time.Duration(s.core.cfg.App.ConvertTimeoutMS) * time.Millisecond
}
