package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/versetrack/core/errors"
)

// Writer streams snapshots into a tar.gz or tar.xz history archive.
type Writer struct {
	file       *os.File
	compressor io.WriteCloser
	tw         *tar.Writer
	modTime    time.Time
}

// Create opens dstPath for writing, creating parent directories as needed. The
// compression is chosen from the extension.
func Create(dstPath string) (*Writer, error) {
	if !IsSupported(dstPath) {
		return nil, errors.NewUnsupported("archive format", dstPath)
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}

	f, err := os.Create(dstPath)
	if err != nil {
		return nil, errors.NewIO("create archive", dstPath, err)
	}

	var compressor io.WriteCloser
	if strings.HasSuffix(dstPath, ".tar.xz") {
		compressor, err = xz.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz writer: %w", err)
		}
	} else {
		compressor = gzip.NewWriter(f)
	}

	return &Writer{
		file:       f,
		compressor: compressor,
		tw:         tar.NewWriter(compressor),
		// Fixed timestamp for reproducible archives.
		modTime: time.Unix(0, 0).UTC(),
	}, nil
}

// Add writes one snapshot entry.
func (w *Writer) Add(s Snapshot) error {
	name := SnapshotDir(s.Seq, s.ChangeID) + "/" + filepath.ToSlash(s.Path)
	header := &tar.Header{
		Name:     name,
		Mode:     0644,
		Size:     int64(len(s.Content)),
		ModTime:  w.modTime,
		Typeflag: tar.TypeReg,
	}
	if err := w.tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	if _, err := w.tw.Write(s.Content); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Close flushes and closes the archive.
func (w *Writer) Close() error {
	if err := w.tw.Close(); err != nil {
		w.compressor.Close()
		w.file.Close()
		return fmt.Errorf("close tar: %w", err)
	}
	if err := w.compressor.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close compressor: %w", err)
	}
	return w.file.Close()
}

// WriteSnapshots creates dstPath and writes all snapshots into it.
func WriteSnapshots(dstPath string, snapshots []Snapshot) error {
	w, err := Create(dstPath)
	if err != nil {
		return err
	}
	for _, s := range snapshots {
		if err := w.Add(s); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
