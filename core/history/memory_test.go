package history

import (
	"context"
	"errors"
	"testing"

	vterrors "github.com/FocuswithJustin/versetrack/core/errors"
)

func TestMemorySource(t *testing.T) {
	src := NewMemorySource()
	src.Commit("GEN.SFM", "R1", "\\c 1\none\n")
	src.Commit("GEN.SFM", "R2", "\\c 1\ntwo\n")
	src.Commit("EXO.SFM", "R2", "\\c 1\nexodus\n")

	revs, err := src.History(context.Background(), "GEN.SFM")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(revs))
	}
	if revs[0].ChangeID != "R1" || revs[0].SortKey != 0 || revs[1].SortKey != 1 {
		t.Errorf("unexpected revisions %+v", revs)
	}
	text, err := revs[1].Text(context.Background())
	if err != nil || text != "\\c 1\ntwo\n" {
		t.Errorf("Text = %q, %v", text, err)
	}
}

func TestMemorySource_NotFound(t *testing.T) {
	_, err := NewMemorySource().History(context.Background(), "missing.SFM")
	if !errors.Is(err, vterrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemorySource_Cancelled(t *testing.T) {
	src := NewMemorySource()
	src.Commit("GEN.SFM", "R1", "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.History(ctx, "GEN.SFM"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
