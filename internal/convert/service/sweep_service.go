package service

import (
	"os"
	"path/filepath"
	"time"

	"github.com/anthanhphan/gosdk/logger"
	"github.com/robfig/cron/v3"
)

// sweepService removes expired artifacts and their derived files on a fixed
// schedule. Registry entries are dropped only after the file is gone, and a
// single bad file never aborts the pass.
type sweepService struct {
	core *ConversionServiceImpl
	cron *cron.Cron
}

func newSweepService(core *ConversionServiceImpl) *sweepService {
	return &sweepService{core: core}
}

func (s *sweepService) start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.core.cfg.Retention.SweepSpec, func() {
		if _, err := s.sweep(time.Now()); err != nil {
			logger.Errorw("Retention sweep failed", "error", err.Error())
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	logger.Infow("Retention sweep scheduled", "spec", s.core.cfg.Retention.SweepSpec, "max_age_hours", s.core.cfg.Retention.MaxAgeHours)
	return nil
}

func (s *sweepService) stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// sweep runs one retention pass and returns how many files were removed.
func (s *sweepService) sweep(now time.Time) (int, error) {
	maxAge := s.core.retention()
	removed := 0

	for _, artifact := range s.core.reg.expiredSnapshot(now, maxAge) {
		if err := os.Remove(artifact.Path); err != nil && !os.IsNotExist(err) {
			logger.Warnw("Sweep could not remove artifact", "artifact_id", artifact.ID, "path", artifact.Path, "error", err.Error())
			continue
		}
		s.core.reg.remove(artifact.ID)
		removed++
	}

	// The upload dir is swept by age as well: the registry is process
	// lifetime, so uploads surviving a restart have no entry and would
	// otherwise leak forever. Registered artifacts were handled above, so
	// by this point any expired upload file is already gone.
	cfg := s.core.cfg.App
	for _, dir := range []string{cfg.UploadDir, cfg.OutputDir, cfg.ExtractDir, cfg.TempDir} {
		removed += s.sweepDir(dir, now, maxAge)
	}

	if removed > 0 {
		s.core.metrics.Swept.Add(float64(removed))
		logger.Infow("Retention sweep finished", "removed", removed, "remaining_artifacts", s.core.reg.count())
	}
	return removed, nil
}

func (s *sweepService) sweepDir(dir string, now time.Time, maxAge time.Duration) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnw("Sweep could not read directory", "dir", dir, "error", err.Error())
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warnw("Sweep could not remove file", "path", path, "error", err.Error())
			continue
		}
		removed++
	}
	return removed
}
