package merge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	vterrors "github.com/FocuswithJustin/versetrack/core/errors"
	"github.com/FocuswithJustin/versetrack/core/history"
)

type quietHost struct {
	warnings []string
}

func (h *quietHost) Write(string) error { return nil }
func (h *quietHost) Warn(msg string, _ ...any) { h.warnings = append(h.warnings, msg) }
func (h *quietHost) Debug(string, ...any) {}
func (h *quietHost) HistoryOf(context.Context, string) ([]history.Revision, error) {
	return nil, nil
}

// newRepo lays out a fake working copy with the given control directory and
// the three merge inputs.
func newRepo(t *testing.T, control string) (root, base, local, other string) {
	t.Helper()
	root = t.TempDir()
	if err := os.Mkdir(filepath.Join(root, control), 0755); err != nil {
		t.Fatal(err)
	}
	books := filepath.Join(root, "books")
	if err := os.Mkdir(books, 0755); err != nil {
		t.Fatal(err)
	}
	write := func(name, content string) string {
		p := filepath.Join(books, name)
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	return root,
		write("GEN.usfm~base", "\\c 1 base\n"),
		write("GEN.usfm", "\\c 1 local\n"),
		write("GEN.usfm~other", "\\c 1 other\n")
}

func TestNewContext(t *testing.T) {
	for _, control := range []string{history.HgDir, history.GitDir} {
		t.Run(control, func(t *testing.T) {
			root, base, local, other := newRepo(t, control)

			mc, err := NewContext(&quietHost{}, base, local, other)
			if err != nil {
				t.Fatalf("NewContext() error = %v", err)
			}
			wantRoot, _ := filepath.EvalSymlinks(root)
			gotRoot, _ := filepath.EvalSymlinks(mc.RepoRoot)
			if gotRoot != wantRoot {
				t.Errorf("RepoRoot = %q, want %q", mc.RepoRoot, root)
			}
			if mc.ControlDir != control {
				t.Errorf("ControlDir = %q", mc.ControlDir)
			}
			if mc.MergeDir != filepath.Join(mc.RepoRoot, control, "versetrack-merge") {
				t.Errorf("MergeDir = %q", mc.MergeDir)
			}
		})
	}
}

func TestNewContext_NoRepository(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "GEN.usfm")
	os.WriteFile(p, nil, 0644)

	_, err := NewContext(&quietHost{}, p, p, p)
	var nf *vterrors.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("NewContext() error = %v, want NotFoundError", err)
	}
}

func TestStage(t *testing.T) {
	_, base, local, other := newRepo(t, history.HgDir)
	mc, err := NewContext(&quietHost{}, base, local, other)
	if err != nil {
		t.Fatal(err)
	}

	first, err := mc.Stage()
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	second, err := mc.Stage()
	if err != nil {
		t.Fatalf("second Stage() error = %v", err)
	}

	if first.ID != 1 || second.ID != 2 {
		t.Errorf("IDs = %d, %d, want 1, 2", first.ID, second.ID)
	}
	if first.Dir != filepath.Join(mc.MergeDir, "1") {
		t.Errorf("Dir = %q", first.Dir)
	}

	if first.Base != base || first.Local != local || first.Other != other {
		t.Errorf("entry records %q, %q, %q; want the input paths", first.Base, first.Local, first.Other)
	}

	staged := map[string]string{
		RoleBase:  "\\c 1 base\n",
		RoleLocal: "\\c 1 local\n",
		RoleOther: "\\c 1 other\n",
	}
	for role, want := range staged {
		path, err := first.StagedPath(role)
		if err != nil {
			t.Fatalf("StagedPath(%s) error = %v", role, err)
		}
		if filepath.Dir(path) != first.Dir {
			t.Errorf("StagedPath(%s) = %q, not under %q", role, path, first.Dir)
		}
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("staged copy missing: %v", err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}
	if p, _ := first.StagedPath(RoleLocal); filepath.Base(p) != "local-GEN.usfm" {
		t.Errorf("local copy named %q", filepath.Base(p))
	}
	if _, err := first.StagedPath("theirs"); err == nil {
		t.Error("StagedPath(theirs) succeeded, want error")
	}

	log, err := os.ReadFile(mc.LogPath())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(log)), "\n")
	if len(lines) != 2 {
		t.Fatalf("log has %d lines:\n%s", len(lines), log)
	}
	fields := strings.Split(lines[0], "\t")
	if len(fields) != 5 || fields[1] != "1" {
		t.Fatalf("first log line = %q", lines[0])
	}
	if fields[2] != base || fields[3] != local || fields[4] != other {
		t.Errorf("log line records %q, want the input paths", fields[2:])
	}
}

func TestPending(t *testing.T) {
	_, base, local, other := newRepo(t, history.GitDir)
	h := &quietHost{}
	mc, err := NewContext(h, base, local, other)
	if err != nil {
		t.Fatal(err)
	}

	pending, err := mc.Pending()
	if err != nil || len(pending) != 0 {
		t.Fatalf("Pending() before staging = %v, %v", pending, err)
	}

	staged, err := mc.Stage()
	if err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(mc.LogPath(), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("garbage line\n")
	f.Close()

	pending, err = mc.Pending()
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("Pending() = %+v", pending)
	}
	if pending[0].ID != staged.ID || pending[0].Local != staged.Local || pending[0].Dir != staged.Dir {
		t.Errorf("Pending()[0] = %+v, staged %+v", pending[0], staged)
	}
	if len(h.warnings) != 1 {
		t.Errorf("warnings = %v", h.warnings)
	}
}
