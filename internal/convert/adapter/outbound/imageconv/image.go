// Package imageconv converts raster images between the formats declared in
// the capability matrix, honoring the owner's quality and resize options.
package imageconv

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"os"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	ico "github.com/biessek/golang-ico"
	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	"golang.org/x/image/webp"

	"github.com/fileconv/fileconv/internal/convert/domain"
	"github.com/fileconv/fileconv/internal/convert/port"
	"github.com/fileconv/fileconv/pkg/humanize"

	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ImageConverter implements the image category of the converter contract.
type ImageConverter struct{}

func New() *ImageConverter {
	return &ImageConverter{}
}

// Convert decodes the source, flattens transparency for opaque-only targets,
// applies the resize option, and re-encodes to the requested format.
func (c *ImageConverter) Convert(ctx context.Context, req port.ConvertRequest) domain.ConversionOutcome {
	target := strings.ToLower(req.TargetExt)

	if !encodableTarget(target) {
		return domain.ConversionFailed(fmt.Sprintf(
			"%v: cannot produce %s from an image source", port.ErrMissingCapability, strings.ToUpper(target)))
	}

	img, err := decode(req.InputPath, req.SourceExt)
	if err != nil {
		return domain.ConversionFailed(err.Error())
	}

	if needsFlatten(target) {
		img = flattenOntoWhite(img)
	}
	img = applyResize(img, req.Opts.ResizePercent)

	if err := encode(img, req.OutputPath, target, req.Opts.ImageQuality); err != nil {
		removePartial(req.OutputPath)
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrEncodeFailure, err))
	}
	if err := ctx.Err(); err != nil {
		removePartial(req.OutputPath)
		return domain.ConversionFailed("conversion aborted: " + err.Error())
	}

	size, err := outputSize(req.OutputPath)
	if err != nil {
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrIOFailure, err))
	}

	message := fmt.Sprintf("converted %s to %s (%s)",
		strings.ToUpper(req.SourceExt), strings.ToUpper(target), humanize.Size(size))
	if req.SourceExt == "gif" && target == "webp" {
		message += "; animation flattened to first frame"
	}
	return domain.Converted(req.OutputPath, size, message)
}

// Compress re-encodes an image at half its dimensions using the owner's
// compression quality. Animated GIFs keep all frames.
func (c *ImageConverter) Compress(ctx context.Context, req port.ConvertRequest) domain.ConversionOutcome {
	if strings.ToLower(req.SourceExt) == "gif" {
		return c.compressGIF(ctx, req)
	}

	img, err := decode(req.InputPath, req.SourceExt)
	if err != nil {
		return domain.ConversionFailed(err.Error())
	}

	bounds := img.Bounds()
	img = imaging.Resize(img, clampDim(bounds.Dx()/2), clampDim(bounds.Dy()/2), imaging.Lanczos)

	target := strings.ToLower(req.SourceExt)
	if !encodableTarget(target) {
		// ico etc. have no encoder; fall back to jpeg.
		target = "jpg"
	}
	if needsFlatten(target) {
		img = flattenOntoWhite(img)
	}

	if err := encode(img, req.OutputPath, target, req.Opts.CompressQuality); err != nil {
		removePartial(req.OutputPath)
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrEncodeFailure, err))
	}

	return compressOutcome(req.InputPath, req.OutputPath)
}

func (c *ImageConverter) compressGIF(ctx context.Context, req port.ConvertRequest) domain.ConversionOutcome {
	in, err := os.Open(req.InputPath)
	if err != nil {
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrIOFailure, err))
	}
	defer func() { _ = in.Close() }()

	anim, err := gif.DecodeAll(in)
	if err != nil {
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrCorruptInput, err))
	}

	// Re-quantized frames at half size, delays and disposal preserved.
	// Optimized GIFs store frames as patches at an offset inside the
	// logical screen, so each patch's origin scales with its size.
	scaled := &gif.GIF{
		LoopCount:       anim.LoopCount,
		Delay:           anim.Delay,
		Disposal:        anim.Disposal,
		BackgroundIndex: anim.BackgroundIndex,
		Config: image.Config{
			Width:  clampDim(anim.Config.Width / 2),
			Height: clampDim(anim.Config.Height / 2),
		},
	}
	for _, frame := range anim.Image {
		b := frame.Bounds()
		small := imaging.Resize(frame, clampDim(b.Dx()/2), clampDim(b.Dy()/2), imaging.Lanczos)
		patch := quantize(small)
		patch.Rect = patch.Rect.Add(image.Pt(b.Min.X/2, b.Min.Y/2))
		scaled.Image = append(scaled.Image, patch)
	}

	out, err := os.Create(req.OutputPath)
	if err != nil {
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrIOFailure, err))
	}
	if err := gif.EncodeAll(out, scaled); err != nil {
		_ = out.Close()
		removePartial(req.OutputPath)
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrEncodeFailure, err))
	}
	if err := out.Close(); err != nil {
		removePartial(req.OutputPath)
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrIOFailure, err))
	}

	return compressOutcome(req.InputPath, req.OutputPath)
}

// Dimensions probes width and height without a full decode.
func Dimensions(path, extension string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(extension) {
	case "webp":
		cfg, err := webp.DecodeConfig(f)
		if err != nil {
			return 0, 0, err
		}
		return cfg.Width, cfg.Height, nil
	case "ico":
		img, err := ico.Decode(f)
		if err != nil {
			return 0, 0, err
		}
		b := img.Bounds()
		return b.Dx(), b.Dy(), nil
	default:
		cfg, _, err := image.DecodeConfig(f)
		if err != nil {
			return 0, 0, err
		}
		return cfg.Width, cfg.Height, nil
	}
}

func decode(path, extension string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrIOFailure, err)
	}
	defer func() { _ = f.Close() }()

	var img image.Image
	switch strings.ToLower(extension) {
	case "webp":
		img, err = webp.Decode(f)
	case "ico":
		img, err = ico.Decode(f)
	case "jpg", "jpeg", "png", "gif", "bmp", "tiff":
		img, _, err = image.Decode(f)
	default:
		return nil, fmt.Errorf("%w: %s", port.ErrUnsupportedInput, extension)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrCorruptInput, err)
	}
	return img, nil
}

func encode(img image.Image, path, target string, quality int) error {
	if quality < 1 || quality > 100 {
		quality = domain.DefaultImageQuality
	}

	if target == "pdf" {
		return encodePDF(img, path, quality)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	switch target {
	case "jpg", "jpeg":
		err = imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case "png":
		err = imaging.Encode(f, img, imaging.PNG)
	case "gif":
		err = gif.Encode(f, img, &gif.Options{NumColors: 256})
	case "bmp":
		err = imaging.Encode(f, img, imaging.BMP)
	case "tiff":
		err = imaging.Encode(f, img, imaging.TIFF)
	case "webp":
		err = nativewebp.Encode(f, img, nil)
	default:
		err = fmt.Errorf("no encoder for %s", target)
	}
	if err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// encodePDF embeds the image as a JPEG on a single A4 page, width-fitted
// inside 10mm margins.
func encodePDF(img image.Image, path string, quality int) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flattenOntoWhite(img), &jpeg.Options{Quality: quality}); err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	opts := fpdf.ImageOptions{ImageType: "JPEG"}
	pdf.RegisterImageOptionsReader("artifact", opts, &buf)
	pageW, _ := pdf.GetPageSize()
	pdf.ImageOptions("artifact", 10, 10, pageW-20, 0, false, opts, 0, "")
	return pdf.OutputFileAndClose(path)
}

// flattenOntoWhite composites transparency onto a white background for
// targets that cannot represent an alpha channel.
func flattenOntoWhite(img image.Image) image.Image {
	bounds := img.Bounds()
	flat := image.NewNRGBA(bounds)
	draw.Draw(flat, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)
	return flat
}

func applyResize(img image.Image, percent int) image.Image {
	if percent <= 0 || percent >= 100 {
		return img
	}
	bounds := img.Bounds()
	w := clampDim(bounds.Dx() * percent / 100)
	h := clampDim(bounds.Dy() * percent / 100)
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

func quantize(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	opts := gif.Options{NumColors: 256}
	var buf bytes.Buffer
	// Round-trip through the GIF encoder's quantizer keeps palette choice
	// consistent with single-frame encodes.
	if err := gif.Encode(&buf, img, &opts); err == nil {
		if decoded, err := gif.Decode(&buf); err == nil {
			if p, ok := decoded.(*image.Paletted); ok {
				return p
			}
		}
	}
	pal := image.NewPaletted(bounds, palette.Plan9)
	draw.FloydSteinberg.Draw(pal, bounds, img, bounds.Min)
	return pal
}

func needsFlatten(target string) bool {
	return target == "jpg" || target == "jpeg" || target == "pdf"
}

func encodableTarget(target string) bool {
	switch target {
	case "jpg", "jpeg", "png", "gif", "bmp", "tiff", "webp", "pdf":
		return true
	}
	return false
}

func clampDim(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

func compressOutcome(inputPath, outputPath string) domain.ConversionOutcome {
	inSize, _ := outputSize(inputPath)
	outSize, err := outputSize(outputPath)
	if err != nil {
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrIOFailure, err))
	}
	return domain.Converted(outputPath, outSize,
		fmt.Sprintf("compressed: %s -> %s", humanize.Size(inSize), humanize.Size(outSize)))
}

func outputSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func removePartial(path string) {
	_ = os.Remove(path)
}
