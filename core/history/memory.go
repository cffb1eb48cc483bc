package history

import (
	"context"
	"sync"

	"github.com/FocuswithJustin/versetrack/core/errors"
)

// MemorySource is an in-process history, useful for embedding and tests.
type MemorySource struct {
	mu   sync.RWMutex
	docs map[string][]Snapshot
}

// Snapshot is one recorded state of a document in a MemorySource.
type Snapshot struct {
	ChangeID string
	Content  string
}

// NewMemorySource returns an empty in-memory history.
func NewMemorySource() *MemorySource {
	return &MemorySource{docs: make(map[string][]Snapshot)}
}

// Name implements Source.
func (s *MemorySource) Name() string {
	return "memory"
}

// Commit appends a new state of path. Sort keys follow commit order.
func (s *MemorySource) Commit(path, changeID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = append(s.docs[path], Snapshot{ChangeID: changeID, Content: content})
}

// History implements Source.
func (s *MemorySource) History(ctx context.Context, path string) ([]Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	snaps := append([]Snapshot(nil), s.docs[path]...)
	s.mu.RUnlock()

	if len(snaps) == 0 {
		return nil, errors.NewNotFound("history", path)
	}

	revs := make([]Revision, len(snaps))
	for i, snap := range snaps {
		data := []byte(snap.Content)
		revs[i] = Revision{
			ChangeID: snap.ChangeID,
			SortKey:  int64(i),
			Content: func(ctx context.Context) ([]byte, error) {
				return data, ctx.Err()
			},
		}
	}
	return revs, nil
}
