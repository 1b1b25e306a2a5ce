// Package archive implements extraction and repacking for the zip, rar, 7z,
// and tar families, with decompression-bomb guards enforced before any entry
// reaches disk.
package archive

import (
	"archive/zip"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fileconv/fileconv/internal/convert/port"
)

// Limits bounds what a single archive may unpack to.
type Limits struct {
	MaxTotalBytes int64
	MaxEntries    int
}

// DefaultLimits mirrors the configured reference ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxTotalBytes: 100 * 1024 * 1024,
		MaxEntries:    10000,
	}
}

// Subsystem dispatches extraction and packing by extension family.
type Subsystem struct {
	limits Limits
}

func New(limits Limits) *Subsystem {
	if limits.MaxTotalBytes <= 0 {
		limits.MaxTotalBytes = DefaultLimits().MaxTotalBytes
	}
	if limits.MaxEntries <= 0 {
		limits.MaxEntries = DefaultLimits().MaxEntries
	}
	return &Subsystem{limits: limits}
}

// Probe returns the entry count and a small sample of entry names for
// artifact metadata. Only zip archives are probed; scanning the other
// families costs a full read.
func Probe(path, extension string) (int, []string, error) {
	if strings.ToLower(extension) != "zip" {
		return 0, nil, nil
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = r.Close() }()

	var sample []string
	for _, f := range r.File {
		if len(sample) < 5 && !f.FileInfo().IsDir() {
			sample = append(sample, f.Name)
		}
	}
	return len(r.File), sample, nil
}

// safeJoin resolves an archive entry name inside destDir and rejects
// traversal attempts.
func safeJoin(destDir, name string) (string, error) {
	clean := filepath.Clean(strings.ReplaceAll(name, "\\", "/"))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: entry %q escapes the extraction directory", port.ErrCorruptInput, name)
	}
	return filepath.Join(destDir, clean), nil
}
