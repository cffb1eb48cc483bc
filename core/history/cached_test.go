package history

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type mapCache struct {
	mu     sync.Mutex
	data   map[CacheKey][]byte
	getErr error
	gets   int
	puts   int
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[CacheKey][]byte)}
}

func (c *mapCache) Get(_ context.Context, key CacheKey) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Put(_ context.Context, key CacheKey, content []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.data[key] = content
	return nil
}

type countingSource struct {
	*MemorySource
	fetches int
}

func (s *countingSource) History(ctx context.Context, path string) ([]Revision, error) {
	revs, err := s.MemorySource.History(ctx, path)
	if err != nil {
		return nil, err
	}
	for i := range revs {
		fetch := revs[i].Content
		revs[i].Content = func(ctx context.Context) ([]byte, error) {
			s.fetches++
			return fetch(ctx)
		}
	}
	return revs, nil
}

func TestCachedSource(t *testing.T) {
	inner := &countingSource{MemorySource: NewMemorySource()}
	inner.Commit("GEN.SFM", "R1", "\\c 1\none\n")
	inner.Commit("GEN.SFM", "R2", "\\c 1\ntwo\n")

	cache := newMapCache()
	src := Cached(inner, cache, nil)
	if src.Name() != "memory" {
		t.Errorf("Name = %q", src.Name())
	}

	for round := 0; round < 2; round++ {
		revs, err := src.History(context.Background(), "GEN.SFM")
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		for _, rev := range revs {
			if _, err := rev.Text(context.Background()); err != nil {
				t.Fatalf("Text: %v", err)
			}
		}
	}

	if inner.fetches != 2 {
		t.Errorf("expected 2 fetches from the inner source, got %d", inner.fetches)
	}
	if cache.puts != 2 || cache.gets != 4 {
		t.Errorf("cache puts=%d gets=%d", cache.puts, cache.gets)
	}
	key := CacheKey{Source: "memory", Path: "GEN.SFM", ChangeID: "R2", SortKey: 1}
	if string(cache.data[key]) != "\\c 1\ntwo\n" {
		t.Errorf("cached content = %q", cache.data[key])
	}
}

func TestCachedSource_CacheErrorFallsBack(t *testing.T) {
	inner := NewMemorySource()
	inner.Commit("GEN.SFM", "R1", "\\c 1\none\n")
	cache := newMapCache()
	cache.getErr = errors.New("database is locked")

	revs, err := Cached(inner, cache, nil).History(context.Background(), "GEN.SFM")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	text, err := revs[0].Text(context.Background())
	if err != nil || text != "\\c 1\none\n" {
		t.Errorf("Text = %q, %v", text, err)
	}
}
