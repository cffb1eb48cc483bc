// Package archive reads and writes compressed tar archives of document
// snapshots. It supports the tar.gz and tar.xz formats.
//
// A history archive holds one top-level directory per revision, named
// "<seq>-<changeID>", containing the document at its repository-relative path:
//
//	0001-3f2a9c1b7d10/books/GEN.SFM
//	0002-a81c44e0b2f3/books/GEN.SFM
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/versetrack/core/errors"
)

// Reader wraps a tar.Reader with automatic decompression handling.
type Reader struct {
	*tar.Reader
	file         *os.File
	decompressor io.Closer
}

// IsSupported reports whether path has an archive extension the Reader handles.
func IsSupported(path string) bool {
	return strings.HasSuffix(path, ".tar.xz") || strings.HasSuffix(path, ".tar.gz")
}

// NewReader creates a new archive reader for the given path.
// It automatically detects and handles .tar.gz and .tar.xz compression.
func NewReader(path string) (*Reader, error) {
	if !IsSupported(path) {
		return nil, errors.NewUnsupported("archive format", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open archive", path, err)
	}

	var reader io.Reader = f
	var decompressor io.Closer

	if strings.HasSuffix(path, ".tar.xz") {
		xzr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		reader = xzr
	} else {
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		reader = gzr
		decompressor = gzr
	}

	return &Reader{
		Reader:       tar.NewReader(reader),
		file:         f,
		decompressor: decompressor,
	}, nil
}

// Close closes the archive reader and any underlying decompressors.
func (r *Reader) Close() error {
	var first error
	if r.decompressor != nil {
		first = r.decompressor.Close()
	}
	if err := r.file.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// Visitor is a callback function for iterating archive entries.
// Return true to stop iteration, false to continue.
type Visitor func(header *tar.Header, content io.Reader) (stop bool, err error)

// Iterate walks through all entries in the archive, calling the visitor for each.
func (r *Reader) Iterate(visitor Visitor) error {
	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}

		stop, err := visitor(header, r)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// Snapshot is one revision of one document stored in a history archive.
type Snapshot struct {
	Seq      int64
	ChangeID string
	Path     string
	Content  []byte
}

// SnapshotDir returns the top-level directory name for a revision.
func SnapshotDir(seq int64, changeID string) string {
	return fmt.Sprintf("%04d-%s", seq, changeID)
}

// ParseSnapshotName splits an entry name into its sequence number, change ID and
// document path. ok is false for names outside the "<seq>-<changeID>/<path>" layout.
func ParseSnapshotName(name string) (seq int64, changeID, docPath string, ok bool) {
	name = strings.TrimPrefix(name, "./")
	dir, docPath, found := strings.Cut(name, "/")
	if !found || docPath == "" || strings.HasSuffix(docPath, "/") {
		return 0, "", "", false
	}
	seqStr, changeID, found := strings.Cut(dir, "-")
	if !found || changeID == "" {
		return 0, "", "", false
	}
	seq, err := strconv.ParseInt(seqStr, 10, 64)
	if err != nil {
		return 0, "", "", false
	}
	return seq, changeID, docPath, true
}

// ReadSnapshots returns every snapshot of docPath in the archive, in archive order.
func ReadSnapshots(archivePath, docPath string) ([]Snapshot, error) {
	r, err := NewReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var snapshots []Snapshot
	err = r.Iterate(func(header *tar.Header, content io.Reader) (bool, error) {
		if header.Typeflag != tar.TypeReg {
			return false, nil
		}
		seq, changeID, name, ok := ParseSnapshotName(header.Name)
		if !ok || name != docPath {
			return false, nil
		}
		data, err := io.ReadAll(content)
		if err != nil {
			return false, errors.NewIO("read", header.Name, err)
		}
		snapshots = append(snapshots, Snapshot{
			Seq:      seq,
			ChangeID: changeID,
			Path:     name,
			Content:  data,
		})
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}
