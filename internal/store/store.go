// Package store is a SQLite-backed cache of revision content.
//
// Each distinct document state is stored once as an xz-compressed blob keyed by
// its BLAKE3 digest; revisions point at blobs. Reads verify the digest so a
// corrupted cache is detected instead of silently feeding the walker bad text.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/versetrack/core/cas"
	vterrors "github.com/FocuswithJustin/versetrack/core/errors"
	"github.com/FocuswithJustin/versetrack/core/history"
	"github.com/FocuswithJustin/versetrack/core/sqlite"
)

// ErrCorrupt is returned when a cached blob does not match its digest.
var ErrCorrupt = errors.New("cached blob is corrupt")

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
	digest TEXT PRIMARY KEY,
	size   INTEGER NOT NULL,
	data   BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS revisions (
	source    TEXT NOT NULL,
	path      TEXT NOT NULL,
	change_id TEXT NOT NULL,
	sort_key  INTEGER NOT NULL,
	digest    TEXT NOT NULL REFERENCES blobs(digest),
	PRIMARY KEY (source, path, change_id, sort_key)
);
`

// Store caches revision content. It implements history.ContentCache and is safe
// for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the cache database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, vterrors.NewIO("create cache directory", filepath.Dir(path), err)
	}

	db, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements history.ContentCache.
func (s *Store) Get(ctx context.Context, key history.CacheKey) ([]byte, bool, error) {
	var (
		digest     string
		size       int64
		compressed []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT b.digest, b.size, b.data
		FROM revisions r JOIN blobs b ON b.digest = r.digest
		WHERE r.source = ? AND r.path = ? AND r.change_id = ? AND r.sort_key = ?`,
		key.Source, key.Path, key.ChangeID, key.SortKey,
	).Scan(&digest, &size, &compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cache: %w", err)
	}

	content, err := decompress(compressed)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, digest, err)
	}
	if int64(len(content)) != size || !cas.Verify(content, digest) {
		return nil, false, fmt.Errorf("%w: %s", ErrCorrupt, digest)
	}
	return content, true, nil
}

// Put implements history.ContentCache.
func (s *Store) Put(ctx context.Context, key history.CacheKey, content []byte) error {
	digest := cas.Hash(content)
	compressed, err := compress(content)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO blobs (digest, size, data) VALUES (?, ?, ?)`,
		digest, len(content), compressed,
	); err != nil {
		return fmt.Errorf("store blob: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO revisions (source, path, change_id, sort_key, digest) VALUES (?, ?, ?, ?, ?)`,
		key.Source, key.Path, key.ChangeID, key.SortKey, digest,
	); err != nil {
		return fmt.Errorf("store revision: %w", err)
	}
	return tx.Commit()
}

// Stats summarises cache contents.
type Stats struct {
	Revisions   int64 `json:"revisions"`
	Blobs       int64 `json:"blobs"`
	RawBytes    int64 `json:"raw_bytes"`
	StoredBytes int64 `json:"stored_bytes"`
}

// Stats returns counts and sizes of cached content.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM revisions`).Scan(&st.Revisions); err != nil {
		return Stats{}, fmt.Errorf("count revisions: %w", err)
	}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0), COALESCE(SUM(LENGTH(data)), 0) FROM blobs`,
	).Scan(&st.Blobs, &st.RawBytes, &st.StoredBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("count blobs: %w", err)
	}
	return st, nil
}

// Clear removes all cached content.
func (s *Store) Clear(ctx context.Context) error {
	for _, stmt := range []string{`DELETE FROM revisions`, `DELETE FROM blobs`} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
	}
	return nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("xz writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
