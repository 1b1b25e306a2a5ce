package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/gzip"
	"github.com/nwaples/rardecode"

	"github.com/fileconv/fileconv/internal/convert/domain"
	"github.com/fileconv/fileconv/internal/convert/port"
	"github.com/fileconv/fileconv/pkg/humanize"
)

// Extract unpacks archivePath into destDir. A failed result guarantees no
// extracted files remain in destDir.
func (s *Subsystem) Extract(ctx context.Context, archivePath, destDir string) domain.ExtractionResult {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return domain.ExtractionFailed(fmt.Sprintf("cannot create extraction directory: %v", err))
	}

	var (
		files []string
		err   error
	)
	switch ext := domain.ExtensionOf(archivePath); ext {
	case "zip":
		files, err = s.extractZip(ctx, archivePath, destDir)
	case "rar":
		files, err = s.extractRar(ctx, archivePath, destDir)
	case "7z":
		files, err = s.extractSevenZip(ctx, archivePath, destDir)
	case "tar":
		files, err = s.extractTar(ctx, archivePath, destDir, wrapNone)
	case "tar.gz", "tgz":
		files, err = s.extractTar(ctx, archivePath, destDir, wrapGzip)
	case "tar.bz2":
		files, err = s.extractTar(ctx, archivePath, destDir, wrapBzip2)
	default:
		return domain.ExtractionFailed(fmt.Sprintf("cannot extract .%s archives", ext))
	}
	if err != nil {
		removeAll(files)
		return domain.ExtractionFailed(err.Error())
	}
	if len(files) == 0 {
		return domain.ExtractionFailed("archive contains no files")
	}

	return domain.ExtractionResult{
		Status:  domain.OutcomeOK,
		Message: fmt.Sprintf("extracted %d files (%s)", len(files), humanize.Size(totalSize(files))),
		Files:   files,
	}
}

func (s *Subsystem) extractZip(ctx context.Context, archivePath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		if r != nil {
			_ = r.Close()
		}
		return nil, fmt.Errorf("cannot read zip archive: %v", err)
	}
	defer func() { _ = r.Close() }()

	// Declared sizes are checked before anything touches disk, so a bomb
	// is rejected without writing a single entry.
	var declared int64
	entries := 0
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries++
		declared += int64(f.UncompressedSize64)
	}
	if err := s.checkBudget(entries, declared); err != nil {
		return nil, err
	}

	budget := s.limits.MaxTotalBytes
	var files []string
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		dst, err := safeJoin(destDir, f.Name)
		if err != nil {
			return files, err
		}
		rc, err := f.Open()
		if err != nil {
			return files, fmt.Errorf("cannot read zip entry %q: %v", f.Name, err)
		}
		written, err := writeEntry(dst, rc, budget)
		_ = rc.Close()
		if err != nil {
			return files, err
		}
		budget -= written
		files = append(files, dst)
	}
	return files, nil
}

func (s *Subsystem) extractSevenZip(ctx context.Context, archivePath, destDir string) ([]string, error) {
	r, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("cannot read 7z archive: %v", err)
	}
	defer func() { _ = r.Close() }()

	var declared int64
	entries := 0
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries++
		declared += f.FileInfo().Size()
	}
	if err := s.checkBudget(entries, declared); err != nil {
		return nil, err
	}

	budget := s.limits.MaxTotalBytes
	var files []string
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		dst, err := safeJoin(destDir, f.Name)
		if err != nil {
			return files, err
		}
		rc, err := f.Open()
		if err != nil {
			return files, fmt.Errorf("cannot read 7z entry %q: %v", f.Name, err)
		}
		written, err := writeEntry(dst, rc, budget)
		_ = rc.Close()
		if err != nil {
			return files, err
		}
		budget -= written
		files = append(files, dst)
	}
	return files, nil
}

func (s *Subsystem) extractRar(ctx context.Context, archivePath, destDir string) ([]string, error) {
	r, err := rardecode.OpenReader(archivePath, "")
	if err != nil {
		return nil, fmt.Errorf("cannot read rar archive: %v", err)
	}
	defer func() { _ = r.Close() }()

	// rar has no cheap upfront size listing, so the budget is enforced as
	// a running total while streaming.
	budget := s.limits.MaxTotalBytes
	entries := 0
	var files []string
	for {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		hdr, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return files, fmt.Errorf("corrupt rar archive: %v", err)
		}
		if hdr.IsDir {
			continue
		}
		entries++
		if entries > s.limits.MaxEntries {
			return files, fmt.Errorf("%w: archive exceeds the %d entry limit", port.ErrResourceLimit, s.limits.MaxEntries)
		}
		dst, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return files, err
		}
		written, err := writeEntry(dst, r, budget)
		if err != nil {
			return files, err
		}
		budget -= written
		files = append(files, dst)
	}
	return files, nil
}

type wrapReader func(io.Reader) (io.Reader, error)

func wrapNone(r io.Reader) (io.Reader, error) { return r, nil }

func wrapGzip(r io.Reader) (io.Reader, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("corrupt gzip stream: %v", err)
	}
	return gr, nil
}

func wrapBzip2(r io.Reader) (io.Reader, error) { return bzip2.NewReader(r), nil }

func (s *Subsystem) extractTar(ctx context.Context, archivePath, destDir string, wrap wrapReader) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("cannot open archive: %v", err)
	}
	defer func() { _ = f.Close() }()

	stream, err := wrap(f)
	if err != nil {
		return nil, err
	}
	tr := tar.NewReader(stream)

	budget := s.limits.MaxTotalBytes
	entries := 0
	var files []string
	for {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return files, fmt.Errorf("corrupt tar archive: %v", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		entries++
		if entries > s.limits.MaxEntries {
			return files, fmt.Errorf("%w: archive exceeds the %d entry limit", port.ErrResourceLimit, s.limits.MaxEntries)
		}
		if hdr.Size > budget {
			return files, fmt.Errorf("%w: archive exceeds the %s extraction limit",
				port.ErrResourceLimit, humanize.Size(s.limits.MaxTotalBytes))
		}
		dst, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return files, err
		}
		written, err := writeEntry(dst, tr, budget)
		if err != nil {
			return files, err
		}
		budget -= written
		files = append(files, dst)
	}
	return files, nil
}

func (s *Subsystem) checkBudget(entries int, declared int64) error {
	if entries > s.limits.MaxEntries {
		return fmt.Errorf("%w: archive exceeds the %d entry limit", port.ErrResourceLimit, s.limits.MaxEntries)
	}
	if declared > s.limits.MaxTotalBytes {
		return fmt.Errorf("%w: archive declares %s, above the %s extraction limit",
			port.ErrResourceLimit, humanize.Size(declared), humanize.Size(s.limits.MaxTotalBytes))
	}
	return nil
}

// writeEntry copies one entry to dst, refusing to write past the remaining
// byte budget even when the archive's declared sizes lied.
func writeEntry(dst string, src io.Reader, budget int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("cannot create directory for %q: %v", filepath.Base(dst), err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("cannot create %q: %v", filepath.Base(dst), err)
	}

	written, err := io.Copy(out, io.LimitReader(src, budget+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("cannot write %q: %v", filepath.Base(dst), err)
	}
	if written > budget {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("%w: archive contents exceed the declared size budget", port.ErrResourceLimit)
	}
	return written, nil
}

func removeAll(files []string) {
	for _, f := range files {
		_ = os.Remove(f)
	}
}

func totalSize(files []string) int64 {
	var total int64
	for _, f := range files {
		if info, err := os.Stat(f); err == nil {
			total += info.Size()
		}
	}
	return total
}
