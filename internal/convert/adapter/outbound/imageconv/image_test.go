package imageconv

import (
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fileconv/fileconv/internal/convert/domain"
	"github.com/fileconv/fileconv/internal/convert/port"
)

func writeTestPNG(t *testing.T, dir string, w, h int, withAlpha bool) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := uint8(255)
			if withAlpha && x%2 == 0 {
				a = 0
			}
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 40, A: a})
		}
	}

	path := filepath.Join(dir, "source.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode source: %v", err)
	}
	return path
}

func TestConvertProducesDecodableOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeTestPNG(t, dir, 64, 48, false)
	conv := New()

	for _, target := range []string{"jpg", "webp", "gif", "bmp", "tiff"} {
		t.Run(target, func(t *testing.T) {
			output := filepath.Join(dir, "out."+target)
			outcome := conv.Convert(context.Background(), port.ConvertRequest{
				InputPath:  input,
				OutputPath: output,
				SourceExt:  "png",
				TargetExt:  target,
				Opts:       domain.DefaultOptions(),
			})

			if !outcome.Succeeded() {
				t.Fatalf("conversion failed: %s", outcome.Message)
			}
			info, err := os.Stat(output)
			if err != nil || info.Size() == 0 {
				t.Fatalf("output missing or empty: %v", err)
			}

			w, h, err := Dimensions(output, target)
			if err != nil {
				t.Fatalf("output does not decode as %s: %v", target, err)
			}
			if w != 64 || h != 48 {
				t.Fatalf("unexpected output dimensions %dx%d", w, h)
			}
		})
	}
}

func TestConvertAppliesResizePercent(t *testing.T) {
	dir := t.TempDir()
	input := writeTestPNG(t, dir, 200, 100, false)
	conv := New()

	opts := domain.DefaultOptions()
	opts.ResizePercent = 50

	for _, target := range []string{"jpg", "png", "webp"} {
		t.Run(target, func(t *testing.T) {
			output := filepath.Join(dir, "resized."+target)
			outcome := conv.Convert(context.Background(), port.ConvertRequest{
				InputPath:  input,
				OutputPath: output,
				SourceExt:  "png",
				TargetExt:  target,
				Opts:       opts,
			})
			if !outcome.Succeeded() {
				t.Fatalf("conversion failed: %s", outcome.Message)
			}

			w, h, err := Dimensions(output, target)
			if err != nil {
				t.Fatalf("decode output: %v", err)
			}
			if abs(w-100) > 1 || abs(h-50) > 1 {
				t.Fatalf("resize_percent=50 on 200x100 gave %dx%d", w, h)
			}
		})
	}
}

func TestConvertFlattensAlphaForJPEG(t *testing.T) {
	dir := t.TempDir()
	input := writeTestPNG(t, dir, 10, 10, true)
	output := filepath.Join(dir, "flat.jpg")

	outcome := New().Convert(context.Background(), port.ConvertRequest{
		InputPath:  input,
		OutputPath: output,
		SourceExt:  "png",
		TargetExt:  "jpg",
		Opts:       domain.DefaultOptions(),
	})
	if !outcome.Succeeded() {
		t.Fatalf("conversion failed: %s", outcome.Message)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}

	// Transparent source pixels sat on even columns; flattened onto white
	// they must come out bright, not black.
	r, g, b, _ := img.At(0, 0).RGBA()
	if r < 0xc000 || g < 0xc000 || b < 0xc000 {
		t.Fatalf("transparent pixel not flattened onto white: r=%x g=%x b=%x", r, g, b)
	}
}

func TestConvertToPDFProducesFile(t *testing.T) {
	dir := t.TempDir()
	input := writeTestPNG(t, dir, 32, 32, false)
	output := filepath.Join(dir, "out.pdf")

	outcome := New().Convert(context.Background(), port.ConvertRequest{
		InputPath:  input,
		OutputPath: output,
		SourceExt:  "png",
		TargetExt:  "pdf",
		Opts:       domain.DefaultOptions(),
	})
	if !outcome.Succeeded() {
		t.Fatalf("conversion failed: %s", outcome.Message)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF-") {
		t.Fatal("output is not a PDF")
	}
}

func TestConvertUnencodableTargetReportsMissingCapability(t *testing.T) {
	dir := t.TempDir()
	input := writeTestPNG(t, dir, 8, 8, false)
	output := filepath.Join(dir, "out.mp4")

	outcome := New().Convert(context.Background(), port.ConvertRequest{
		InputPath:  input,
		OutputPath: output,
		SourceExt:  "gif",
		TargetExt:  "mp4",
		Opts:       domain.DefaultOptions(),
	})

	if outcome.Succeeded() {
		t.Fatal("expected failure for image->mp4")
	}
	if !strings.Contains(outcome.Message, port.ErrMissingCapability.Error()) {
		t.Fatalf("expected missing-capability reason, got: %s", outcome.Message)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Fatal("partial output left behind")
	}
}

func TestConvertCorruptInputFails(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(input, []byte("not an image at all"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	output := filepath.Join(dir, "out.jpg")

	outcome := New().Convert(context.Background(), port.ConvertRequest{
		InputPath:  input,
		OutputPath: output,
		SourceExt:  "png",
		TargetExt:  "jpg",
		Opts:       domain.DefaultOptions(),
	})

	if outcome.Succeeded() {
		t.Fatal("expected failure for corrupt input")
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Fatal("partial output left behind")
	}
}

func TestCompressHalvesDimensions(t *testing.T) {
	dir := t.TempDir()
	input := writeTestPNG(t, dir, 100, 80, false)
	output := filepath.Join(dir, "compressed.png")

	outcome := New().Compress(context.Background(), port.ConvertRequest{
		InputPath:  input,
		OutputPath: output,
		SourceExt:  "png",
		TargetExt:  "png",
		Opts:       domain.DefaultOptions(),
	})
	if !outcome.Succeeded() {
		t.Fatalf("compress failed: %s", outcome.Message)
	}

	w, h, err := Dimensions(output, "png")
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if w != 50 || h != 40 {
		t.Fatalf("expected 50x40, got %dx%d", w, h)
	}
}

func TestCompressGIFKeepsPatchFrameOffsets(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "anim.gif")

	pal := color.Palette{color.Black, color.White}
	full := image.NewPaletted(image.Rect(0, 0, 40, 40), pal)
	patch := image.NewPaletted(image.Rect(20, 20, 40, 40), pal)
	for i := range patch.Pix {
		patch.Pix[i] = 1
	}
	anim := &gif.GIF{
		Image:    []*image.Paletted{full, patch},
		Delay:    []int{10, 10},
		Disposal: []byte{gif.DisposalNone, gif.DisposalNone},
		Config:   image.Config{Width: 40, Height: 40},
	}
	f, err := os.Create(input)
	if err != nil {
		t.Fatalf("create input: %v", err)
	}
	if err := gif.EncodeAll(f, anim); err != nil {
		t.Fatalf("encode input: %v", err)
	}
	_ = f.Close()

	output := filepath.Join(dir, "compressed.gif")
	outcome := New().Compress(context.Background(), port.ConvertRequest{
		InputPath:  input,
		OutputPath: output,
		SourceExt:  "gif",
		TargetExt:  "gif",
		Opts:       domain.DefaultOptions(),
	})
	if !outcome.Succeeded() {
		t.Fatalf("compress failed: %s", outcome.Message)
	}

	out, err := os.Open(output)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer func() { _ = out.Close() }()
	scaled, err := gif.DecodeAll(out)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}

	if len(scaled.Image) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(scaled.Image))
	}
	if min := scaled.Image[1].Bounds().Min; min.X != 10 || min.Y != 10 {
		t.Fatalf("patch frame offset not scaled: got %v, want (10,10)", min)
	}
	screen := image.Rect(0, 0, scaled.Config.Width, scaled.Config.Height)
	for i, frame := range scaled.Image {
		if !frame.Bounds().In(screen) {
			t.Fatalf("frame %d bounds %v outside logical screen %v", i, frame.Bounds(), screen)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
