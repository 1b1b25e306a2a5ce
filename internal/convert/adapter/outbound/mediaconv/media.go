// Package mediaconv implements the audio and video categories. Real
// transcoding is deliberately out of scope: the output is a byte-identical
// copy renamed to the target extension, and every outcome is flagged
// degraded so callers know no re-encoding happened.
package mediaconv

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fileconv/fileconv/internal/convert/domain"
	"github.com/fileconv/fileconv/internal/convert/port"
	"github.com/fileconv/fileconv/pkg/humanize"
)

// PassThroughConverter copies media files instead of transcoding them.
type PassThroughConverter struct {
	category string
}

func NewAudio() *PassThroughConverter {
	return &PassThroughConverter{category: "audio"}
}

func NewVideo() *PassThroughConverter {
	return &PassThroughConverter{category: "video"}
}

func (c *PassThroughConverter) Convert(ctx context.Context, req port.ConvertRequest) domain.ConversionOutcome {
	size, err := copyFile(ctx, req.InputPath, req.OutputPath)
	if err != nil {
		_ = os.Remove(req.OutputPath)
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrIOFailure, err))
	}

	return domain.DegradedCopy(req.OutputPath, size, fmt.Sprintf(
		"copied %s as %s without re-encoding (%s transcoding unavailable, %s)",
		strings.ToUpper(req.SourceExt), strings.ToUpper(req.TargetExt), c.category, humanize.Size(size)))
}

func copyFile(ctx context.Context, src, dst string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		return 0, err
	}
	return n, out.Close()
}
