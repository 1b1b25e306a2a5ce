package service

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/fileconv/fileconv/internal/convert/domain"
)

// optionsService validates and applies per-owner conversion options. Options
// never leak between owners.
type optionsService struct {
	core *ConversionServiceImpl
}

func newOptionsService(core *ConversionServiceImpl) *optionsService {
	return &optionsService{core: core}
}

func (s *optionsService) update(ownerID int64, key string, value int) (domain.Options, error) {
	if err := validation.Validate(key,
		validation.Required,
		validation.In(domain.OptionImageQuality, domain.OptionResizePercent, domain.OptionCompressQuality),
	); err != nil {
		return domain.Options{}, fmt.Errorf("unknown option %q: %w", key, err)
	}
	if err := validation.Validate(value, validation.Min(1), validation.Max(100)); err != nil {
		return domain.Options{}, fmt.Errorf("option %s: %w", key, err)
	}

	opts := s.core.reg.optionsFor(ownerID)
	switch key {
	case domain.OptionImageQuality:
		opts.ImageQuality = value
	case domain.OptionResizePercent:
		opts.ResizePercent = value
	case domain.OptionCompressQuality:
		opts.CompressQuality = value
	}
	s.core.reg.setOptions(ownerID, opts)
	return opts, nil
}
