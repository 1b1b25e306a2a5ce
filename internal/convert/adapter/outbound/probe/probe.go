// Package probe derives optional artifact metadata at upload time by
// delegating to the per-category adapters. Probing is best effort: a file
// that cannot be probed is still accepted.
package probe

import (
	"github.com/fileconv/fileconv/internal/convert/adapter/outbound/archive"
	"github.com/fileconv/fileconv/internal/convert/adapter/outbound/imageconv"
	"github.com/fileconv/fileconv/internal/convert/adapter/outbound/sheetconv"
	"github.com/fileconv/fileconv/internal/convert/domain"
	"github.com/fileconv/fileconv/internal/convert/port"
)

type Prober struct{}

func New() *Prober { return &Prober{} }

var _ port.MetaProber = (*Prober)(nil)

func (p *Prober) Probe(path, extension string, kind domain.FileKind) *domain.ArtifactMeta {
	switch kind {
	case domain.KindImage:
		w, h, err := imageconv.Dimensions(path, extension)
		if err != nil {
			return nil
		}
		return &domain.ArtifactMeta{Width: w, Height: h}
	case domain.KindSpreadsheet:
		n, err := sheetconv.SheetCount(path, extension)
		if err != nil {
			return nil
		}
		return &domain.ArtifactMeta{SheetCount: n}
	case domain.KindArchive:
		n, sample, err := archive.Probe(path, extension)
		if err != nil || n == 0 {
			return nil
		}
		return &domain.ArtifactMeta{EntryCount: n, SampleEntries: sample}
	default:
		return nil
	}
}
