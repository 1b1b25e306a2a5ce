// Package docconv covers the three document paths the engine really owns:
// text to PDF, image to PDF (delegated to the image converter), and PDF
// page rendering. Everything else in the document category is declared
// unsupported rather than faked.
package docconv

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/go-pdf/fpdf"

	"github.com/fileconv/fileconv/internal/convert/domain"
	"github.com/fileconv/fileconv/internal/convert/port"
	"github.com/fileconv/fileconv/pkg/humanize"
)

const (
	pdfFontSize   = 12
	pdfLineHeight = 5.5
	pdfMargin     = 15
	maxLineRunes  = 100
)

// DocumentConverter implements the document category of the converter
// contract.
type DocumentConverter struct {
	images port.Converter
}

// New creates the document converter. The image converter handles the
// image-to-PDF delegation path.
func New(images port.Converter) *DocumentConverter {
	return &DocumentConverter{images: images}
}

func (c *DocumentConverter) Convert(ctx context.Context, req port.ConvertRequest) domain.ConversionOutcome {
	source := strings.ToLower(req.SourceExt)
	target := strings.ToLower(req.TargetExt)

	switch {
	case source == "txt" && target == "pdf":
		return c.textToPDF(req)
	case domain.KindOf(source) == domain.KindImage && target == "pdf":
		return c.images.Convert(ctx, req)
	case source == "pdf" && (target == "jpg" || target == "png"):
		return c.renderPDFPage(ctx, req, target)
	case source == "docx" || source == "doc" || source == "rtf":
		return domain.ConversionFailed(fmt.Sprintf(
			"%v: %s conversion needs an office toolchain that is not installed",
			port.ErrMissingCapability, strings.ToUpper(source)))
	default:
		return domain.ConversionFailed(fmt.Sprintf(
			"%v: %s to %s", port.ErrUnsupportedConversion, strings.ToUpper(source), strings.ToUpper(target)))
	}
}

// textToPDF paginates the text with a fixed-width font and no reflow. Lines
// are chopped at a fixed rune count. If PDF generation fails, the file is
// copied instead and the outcome is flagged degraded.
func (c *DocumentConverter) textToPDF(req port.ConvertRequest) domain.ConversionOutcome {
	text, err := os.ReadFile(req.InputPath)
	if err != nil {
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrIOFailure, err))
	}

	if err := writeTextPDF(string(text), req.OutputPath); err != nil {
		removePartial(req.OutputPath)
		return c.copyFallback(req, fmt.Sprintf("PDF generation failed (%v)", err))
	}

	size, err := fileSize(req.OutputPath)
	if err != nil {
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrIOFailure, err))
	}
	return domain.Converted(req.OutputPath, size, fmt.Sprintf("converted TXT to PDF (%s)", humanize.Size(size)))
}

func writeTextPDF(text, outputPath string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Courier", "", pdfFontSize)
	pdf.AddPage()

	_, pageH := pdf.GetPageSize()
	y := float64(pdfMargin)

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		runes := []rune(line)
		if len(runes) > maxLineRunes {
			runes = runes[:maxLineRunes]
		}
		if y > pageH-pdfMargin {
			pdf.AddPage()
			y = pdfMargin
		}
		pdf.Text(pdfMargin, y, string(runes))
		y += pdfLineHeight
	}

	return pdf.OutputFileAndClose(outputPath)
}

// renderPDFPage rasterizes page 0 of the document into the target format.
func (c *DocumentConverter) renderPDFPage(ctx context.Context, req port.ConvertRequest, target string) domain.ConversionOutcome {
	doc, err := fitz.New(req.InputPath)
	if err != nil {
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrCorruptInput, err))
	}
	defer func() { _ = doc.Close() }()

	img, err := doc.Image(0)
	if err != nil {
		return domain.ConversionFailed(fmt.Sprintf("%v: page render: %v", port.ErrEncodeFailure, err))
	}

	out, err := os.Create(req.OutputPath)
	if err != nil {
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrIOFailure, err))
	}

	quality := req.Opts.ImageQuality
	if quality < 1 || quality > 100 {
		quality = domain.DefaultImageQuality
	}
	switch target {
	case "jpg":
		err = jpeg.Encode(out, img, &jpeg.Options{Quality: quality})
	case "png":
		err = png.Encode(out, img)
	}
	if err != nil {
		_ = out.Close()
		removePartial(req.OutputPath)
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrEncodeFailure, err))
	}
	if err := out.Close(); err != nil {
		removePartial(req.OutputPath)
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrIOFailure, err))
	}

	size, err := fileSize(req.OutputPath)
	if err != nil {
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrIOFailure, err))
	}
	return domain.Converted(req.OutputPath, size,
		fmt.Sprintf("rendered PDF page 1 to %s (%s)", strings.ToUpper(target), humanize.Size(size)))
}

// copyFallback copies the source byte-for-byte and flags the outcome
// degraded so callers never mistake it for a real conversion.
func (c *DocumentConverter) copyFallback(req port.ConvertRequest, reason string) domain.ConversionOutcome {
	size, err := copyFile(req.InputPath, req.OutputPath)
	if err != nil {
		removePartial(req.OutputPath)
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrIOFailure, err))
	}
	return domain.DegradedCopy(req.OutputPath, size, "file copied without conversion: "+reason)
}

func copyFile(src, dst string) (int64, error) {
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

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func removePartial(path string) {
	_ = os.Remove(path)
}
