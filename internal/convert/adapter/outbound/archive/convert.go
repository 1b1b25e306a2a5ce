package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/fileconv/fileconv/internal/convert/domain"
	"github.com/fileconv/fileconv/internal/convert/port"
	"github.com/fileconv/fileconv/pkg/humanize"
)

// Converter repacks one archive format into another by extracting to a
// staging directory and building the target archive from the extracted
// entries. Staging is always removed, success or not.
type Converter struct {
	sub         *Subsystem
	stagingRoot string
}

func NewConverter(sub *Subsystem, stagingRoot string) *Converter {
	return &Converter{sub: sub, stagingRoot: stagingRoot}
}

var _ port.Converter = (*Converter)(nil)

func (c *Converter) Convert(ctx context.Context, req port.ConvertRequest) domain.ConversionOutcome {
	staging := filepath.Join(c.stagingRoot, "repack-"+uuid.NewString())
	defer func() { _ = os.RemoveAll(staging) }()

	res := c.sub.Extract(ctx, req.InputPath, staging)
	if !res.Succeeded() {
		return domain.ConversionFailed(res.Message)
	}

	if err := c.sub.Pack(ctx, staging, res.Files, req.OutputPath, req.TargetExt); err != nil {
		return domain.ConversionFailed(err.Error())
	}

	info, err := os.Stat(req.OutputPath)
	if err != nil {
		return domain.ConversionFailed(fmt.Sprintf("archive written but not readable: %v", err))
	}
	msg := fmt.Sprintf("repacked %d files from .%s to .%s (%s)",
		len(res.Files), req.SourceExt, req.TargetExt, humanize.Size(info.Size()))
	return domain.Converted(req.OutputPath, info.Size(), msg)
}
