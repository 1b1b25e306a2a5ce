package archive

import (
	"archive/tar"
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// Pack writes the given files into a fresh archive at outputPath. Entry names
// are the file paths relative to baseDir; files outside baseDir keep only
// their base name. A pack error leaves no partial archive behind.
func (s *Subsystem) Pack(ctx context.Context, baseDir string, files []string, outputPath, kind string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("cannot create archive: %v", err)
	}

	switch kind {
	case "zip":
		err = packZip(ctx, out, baseDir, files)
	case "tar":
		err = packTar(ctx, out, baseDir, files)
	case "tar.gz", "tgz":
		err = packTarGz(ctx, out, baseDir, files)
	default:
		err = fmt.Errorf("cannot build .%s archives", kind)
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(outputPath)
		return err
	}
	return nil
}

func packZip(ctx context.Context, out io.Writer, baseDir string, files []string) error {
	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		w, err := zw.Create(entryName(baseDir, file))
		if err != nil {
			return fmt.Errorf("cannot add %q: %v", filepath.Base(file), err)
		}
		if err := copyFileInto(w, file); err != nil {
			return err
		}
	}
	return zw.Close()
}

func packTar(ctx context.Context, out io.Writer, baseDir string, files []string) error {
	tw := tar.NewWriter(out)
	if err := writeTarEntries(ctx, tw, baseDir, files); err != nil {
		return err
	}
	return tw.Close()
}

func packTarGz(ctx context.Context, out io.Writer, baseDir string, files []string) error {
	gw := gzip.NewWriter(out)
	tw := tar.NewWriter(gw)
	if err := writeTarEntries(ctx, tw, baseDir, files); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gw.Close()
}

func writeTarEntries(ctx context.Context, tw *tar.Writer, baseDir string, files []string) error {
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := os.Stat(file)
		if err != nil {
			return fmt.Errorf("cannot stat %q: %v", filepath.Base(file), err)
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("cannot describe %q: %v", filepath.Base(file), err)
		}
		hdr.Name = entryName(baseDir, file)
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("cannot add %q: %v", filepath.Base(file), err)
		}
		if err := copyFileInto(tw, file); err != nil {
			return err
		}
	}
	return nil
}

func entryName(baseDir, file string) string {
	if baseDir != "" {
		if rel, err := filepath.Rel(baseDir, file); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(file)
}

func copyFileInto(w io.Writer, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("cannot open %q: %v", filepath.Base(file), err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("cannot write %q: %v", filepath.Base(file), err)
	}
	return nil
}
