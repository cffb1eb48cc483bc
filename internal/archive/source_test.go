package archive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	vterrors "github.com/FocuswithJustin/versetrack/core/errors"
	"github.com/FocuswithJustin/versetrack/core/history"
)

func TestSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.tar.xz")
	err := WriteSnapshots(path, []Snapshot{
		{Seq: 2, ChangeID: "bbb", Path: "books/GEN.SFM", Content: []byte("\\c 1\ntwo\n")},
		{Seq: 1, ChangeID: "aaa", Path: "books/GEN.SFM", Content: []byte("\\c 1\none\n")},
		{Seq: 1, ChangeID: "aaa", Path: "books/EXO.SFM", Content: []byte("\\c 1\nexodus\n")},
	})
	if err != nil {
		t.Fatalf("WriteSnapshots: %v", err)
	}

	var src history.Source = NewSource(path)
	revs, err := src.History(context.Background(), "./books/GEN.SFM")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	revs = history.Sorted(revs)
	if len(revs) != 2 || revs[0].ChangeID != "aaa" || revs[1].ChangeID != "bbb" {
		t.Fatalf("unexpected revisions %+v", revs)
	}
	text, err := revs[0].Text(context.Background())
	if err != nil || text != "\\c 1\none\n" {
		t.Errorf("Text = %q, %v", text, err)
	}

	if _, err := src.History(context.Background(), "books/LEV.SFM"); !errors.Is(err, vterrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing document, got %v", err)
	}
}

func TestSource_MissingArchive(t *testing.T) {
	src := NewSource(filepath.Join(t.TempDir(), "none.tar.gz"))
	_, err := src.History(context.Background(), "GEN.SFM")
	var ioErr *vterrors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("expected IOError, got %v", err)
	}
}

func TestSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSource("unused.tar.gz").History(ctx, "GEN.SFM"); !errors.Is(err, context.Canceled) {
		t.Errorf("History() error = %v, want context.Canceled", err)
	}
}

func TestMemberName(t *testing.T) {
	tests := map[string]string{
		"books/GEN.SFM":   "books/GEN.SFM",
		"./books/GEN.SFM": "books/GEN.SFM",
		"/books/GEN.SFM":  "books/GEN.SFM",
		"books//x/../GEN": "books/GEN",
	}
	for in, want := range tests {
		if got := memberName(in); got != want {
			t.Errorf("memberName(%q) = %q, want %q", in, got, want)
		}
	}
}
