package history

import (
	"context"
	"log/slog"
)

// CacheKey identifies one revision of one document in one source.
type CacheKey struct {
	Source   string
	Path     string
	ChangeID string
	SortKey  int64
}

// ContentCache stores revision content between walks.
type ContentCache interface {
	Get(ctx context.Context, key CacheKey) (content []byte, ok bool, err error)
	Put(ctx context.Context, key CacheKey, content []byte) error
}

// CachedSource serves revision content from a ContentCache, falling back to the
// wrapped source and filling the cache on a miss. The revision list itself is
// always read from the wrapped source so new revisions are seen.
type CachedSource struct {
	inner  Source
	cache  ContentCache
	logger *slog.Logger
}

// Cached wraps src with cache.
func Cached(src Source, cache ContentCache, logger *slog.Logger) *CachedSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{inner: src, cache: cache, logger: logger}
}

// Name implements Source.
func (s *CachedSource) Name() string {
	return s.inner.Name()
}

// History implements Source.
func (s *CachedSource) History(ctx context.Context, path string) ([]Revision, error) {
	revs, err := s.inner.History(ctx, path)
	if err != nil {
		return nil, err
	}

	out := make([]Revision, len(revs))
	for i, rev := range revs {
		key := CacheKey{
			Source:   s.inner.Name(),
			Path:     path,
			ChangeID: rev.ChangeID,
			SortKey:  rev.SortKey,
		}
		rev.Content = s.contentFunc(key, rev.Content)
		out[i] = rev
	}
	return out, nil
}

func (s *CachedSource) contentFunc(key CacheKey, fetch func(context.Context) ([]byte, error)) func(context.Context) ([]byte, error) {
	return func(ctx context.Context) ([]byte, error) {
		content, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			// A broken cache must not fail the walk.
			s.logger.Warn("revision cache read failed", "change_id", key.ChangeID, "error", err)
		} else if ok {
			return content, nil
		}

		content, err = fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Put(ctx, key, content); err != nil {
			s.logger.Warn("revision cache write failed", "change_id", key.ChangeID, "error", err)
		}
		return content, nil
	}
}
