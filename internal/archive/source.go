package archive

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/versetrack/core/errors"
	"github.com/FocuswithJustin/versetrack/core/history"
)

// Source is a history.Source backed by a snapshot archive written by Writer.
// The document path is matched against the path stored under each snapshot
// directory.
type Source struct {
	path string
}

// NewSource returns a source backed by the .tar.gz or .tar.xz at archivePath.
func NewSource(archivePath string) *Source {
	return &Source{path: archivePath}
}

// Name implements history.Source.
func (s *Source) Name() string {
	return "archive:" + s.path
}

// History implements history.Source. The archive is read once; content is
// served from memory.
func (s *Source) History(ctx context.Context, docPath string) ([]history.Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := memberName(docPath)
	snapshots, err := ReadSnapshots(s.path, name)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, errors.NewNotFound("history", name)
	}

	revs := make([]history.Revision, 0, len(snapshots))
	for _, snap := range snapshots {
		content := snap.Content
		revs = append(revs, history.Revision{
			ChangeID: snap.ChangeID,
			SortKey:  snap.Seq,
			Content: func(ctx context.Context) ([]byte, error) {
				return content, ctx.Err()
			},
		})
	}
	return revs, nil
}

// memberName is the slash-separated relative path a document is stored under.
func memberName(docPath string) string {
	name := path.Clean(filepath.ToSlash(docPath))
	return strings.TrimPrefix(name, "/")
}
