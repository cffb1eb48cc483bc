// Package history models the linear revision history of a single document and
// provides the sources that produce it: git and Mercurial working copies, history
// archives, and an in-memory history.
package history

import (
	"bytes"
	"context"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Revision is one historical snapshot of a document.
type Revision struct {
	// ChangeID is the user-facing change identifier. Several revisions may share
	// one ChangeID when the source coarsens its internal history.
	ChangeID string

	// SortKey orders revisions from oldest (smallest) to newest.
	SortKey int64

	// Content returns the full document bytes at this revision.
	Content func(ctx context.Context) ([]byte, error)
}

// Text fetches the revision content and decodes it to text.
func (r Revision) Text(ctx context.Context) (string, error) {
	data, err := r.Content(ctx)
	if err != nil {
		return "", err
	}
	return Decode(data)
}

// Source produces the revision history of a document.
type Source interface {
	// Name identifies the source, e.g. "git:/path/to/repo".
	Name() string

	// History returns the revisions of path in any order. A path with no history
	// yields a *errors.NotFoundError.
	History(ctx context.Context, path string) ([]Revision, error)
}

// Sorted returns a copy of revs ordered oldest first. Revisions with equal sort
// keys keep their relative order.
func Sorted(revs []Revision) []Revision {
	out := make([]Revision, len(revs))
	copy(out, revs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortKey < out[j].SortKey
	})
	return out
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, bomUTF8) ||
		bytes.HasPrefix(data, bomUTF16BE) ||
		bytes.HasPrefix(data, bomUTF16LE)
}

// Decode turns raw document bytes into text. A byte order mark selects UTF-8 or
// UTF-16 and is stripped; unmarked content must be valid UTF-8, otherwise it is
// read as Windows-1252, the legacy encoding of older USFM projects.
func Decode(data []byte) (string, error) {
	if !hasBOM(data) && !utf8.Valid(data) {
		out, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
