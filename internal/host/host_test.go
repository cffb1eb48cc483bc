package host

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	vterrors "github.com/FocuswithJustin/versetrack/core/errors"
	"github.com/FocuswithJustin/versetrack/core/history"
)

var _ Host = (*Console)(nil)

func TestConsole_Write(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, nil, history.NewMemorySource())

	for _, id := range []string{"r1", "r2"} {
		if err := c.Write(id); err != nil {
			t.Fatalf("Write(%s) error = %v", id, err)
		}
	}
	if got := out.String(); got != "r1\nr2\n" {
		t.Errorf("output = %q", got)
	}
}

func TestConsole_WriteFlushes(t *testing.T) {
	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	c := NewConsole(w, nil, history.NewMemorySource())

	if err := c.Write("abc"); err != nil {
		t.Fatal(err)
	}
	if out.String() != "abc\n" {
		t.Errorf("line not flushed, underlying = %q", out.String())
	}
}

func TestConsole_Diagnostics(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := NewConsole(&bytes.Buffer{}, logger, history.NewMemorySource())

	c.Warn("bad verse range", "verses", "5-")
	c.Debug("walking", "revisions", 3)

	out := logs.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "verses=5-") {
		t.Errorf("warning missing: %s", out)
	}
	if !strings.Contains(out, "level=DEBUG") {
		t.Errorf("debug missing: %s", out)
	}
}

func TestConsole_HistoryOf(t *testing.T) {
	mem := history.NewMemorySource()
	mem.Commit("GEN.usfm", "r1", "\\c 1\n")
	c := NewConsole(&bytes.Buffer{}, nil, mem)

	revs, err := c.HistoryOf(context.Background(), "GEN.usfm")
	if err != nil {
		t.Fatalf("HistoryOf() error = %v", err)
	}
	if len(revs) != 1 || revs[0].ChangeID != "r1" {
		t.Errorf("HistoryOf() = %+v", revs)
	}

	_, err = c.HistoryOf(context.Background(), "EXO.usfm")
	var nf *vterrors.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("HistoryOf(missing) error = %v, want NotFoundError", err)
	}
}
