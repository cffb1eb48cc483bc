// Package merge stages the inputs of a three-way merge inside the enclosing
// repository so an external merge tool can pick them up later.
//
// Staged merges live under <root>/<control dir>/versetrack-merge/: one numbered
// directory per merge holding copies of the three inputs, plus merges.log, an
// append-only record with one tab-separated line per staged merge.
package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/FocuswithJustin/versetrack/core/errors"
	"github.com/FocuswithJustin/versetrack/core/history"
	"github.com/FocuswithJustin/versetrack/internal/fileutil"
	"github.com/FocuswithJustin/versetrack/internal/host"
	"github.com/FocuswithJustin/versetrack/internal/validation"
)

const (
	stagingDir = "versetrack-merge"
	logName    = "merges.log"
)

// Context carries everything one merge invocation needs. It is built once by
// NewContext and passed explicitly.
type Context struct {
	Base  string
	Local string
	Other string

	RepoRoot   string
	ControlDir string // ".hg" or ".git"
	MergeDir   string // <RepoRoot>/<ControlDir>/versetrack-merge

	host host.Host
}

// NewContext resolves the three inputs and locates the repository enclosing
// local.
func NewContext(h host.Host, base, local, other string) (*Context, error) {
	paths := make([]string, 3)
	for i, p := range []string{base, local, other} {
		if err := validation.ValidatePath(p); err != nil {
			return nil, errors.NewIO("resolve", p, err)
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, errors.NewIO("resolve", p, err)
		}
		paths[i] = abs
	}

	root, marker, err := history.DiscoverRoot(paths[1], history.HgDir, history.GitDir)
	if err != nil {
		return nil, err
	}
	mc := &Context{
		Base:       paths[0],
		Local:      paths[1],
		Other:      paths[2],
		RepoRoot:   root,
		ControlDir: marker,
		MergeDir:   filepath.Join(root, marker, stagingDir),
		host:       h,
	}
	h.Debug("merge context", "root", root, "control_dir", marker)
	return mc, nil
}

// LogPath returns the path of the append-only merge log.
func (c *Context) LogPath() string {
	return filepath.Join(c.MergeDir, logName)
}

// Entry is one staged merge. Base, Local and Other are the caller's input paths;
// the staged copies live in Dir and are found with StagedPath.
type Entry struct {
	ID       int
	StagedAt time.Time
	Dir      string
	Base     string
	Local    string
	Other    string
}

// Merge input roles.
const (
	RoleBase  = "base"
	RoleLocal = "local"
	RoleOther = "other"
)

// StagedPath returns the path of the copy staged for role.
func (e Entry) StagedPath(role string) (string, error) {
	var src string
	switch role {
	case RoleBase:
		src = e.Base
	case RoleLocal:
		src = e.Local
	case RoleOther:
		src = e.Other
	default:
		return "", errors.NewValidation("role", "must be base, local or other")
	}
	name, err := stagedName(role, src)
	if err != nil {
		return "", err
	}
	return filepath.Join(e.Dir, name), nil
}

func stagedName(role, src string) (string, error) {
	return validation.SanitizeFilename(role + "-" + filepath.Base(src))
}

func (e Entry) line() string {
	return strings.Join([]string{
		e.StagedAt.UTC().Format(time.RFC3339),
		strconv.Itoa(e.ID),
		e.Base,
		e.Local,
		e.Other,
	}, "\t")
}

// Stage copies the three inputs into a new numbered directory and records the
// merge in the log.
func (c *Context) Stage() (Entry, error) {
	if err := os.MkdirAll(c.MergeDir, 0755); err != nil {
		return Entry{}, errors.NewIO("create", c.MergeDir, err)
	}

	dir, id, err := c.nextDir()
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:       id,
		StagedAt: time.Now(),
		Dir:      dir,
		Base:     c.Base,
		Local:    c.Local,
		Other:    c.Other,
	}
	inputs := []struct{ role, src string }{
		{RoleBase, c.Base},
		{RoleLocal, c.Local},
		{RoleOther, c.Other},
	}
	for _, in := range inputs {
		dst, err := entry.StagedPath(in.role)
		if err != nil {
			return Entry{}, errors.NewIO("stage", in.src, err)
		}
		if err := fileutil.CopyFile(in.src, dst); err != nil {
			return Entry{}, errors.NewIO("stage", in.src, err)
		}
	}

	if err := fileutil.AppendLine(c.LogPath(), entry.line()); err != nil {
		return Entry{}, errors.NewIO("append", c.LogPath(), err)
	}
	c.host.Debug("merge staged", "id", id, "dir", dir)
	return entry, nil
}

// nextDir creates the next unused numbered staging directory.
func (c *Context) nextDir() (string, int, error) {
	entries, err := os.ReadDir(c.MergeDir)
	if err != nil {
		return "", 0, errors.NewIO("read", c.MergeDir, err)
	}
	next := 1
	for _, e := range entries {
		if n, err := strconv.Atoi(e.Name()); err == nil && e.IsDir() && n >= next {
			next = n + 1
		}
	}
	// Mkdir fails if another stager took the number first.
	for ; ; next++ {
		dir := filepath.Join(c.MergeDir, strconv.Itoa(next))
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, next, nil
		}
		if !os.IsExist(err) {
			return "", 0, errors.NewIO("create", dir, err)
		}
	}
}

// Pending reads every entry recorded in the merge log, oldest first. A missing
// log means nothing has been staged.
func (c *Context) Pending() ([]Entry, error) {
	data, err := os.ReadFile(c.LogPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewIO("read", c.LogPath(), err)
	}

	var out []Entry
	for i, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		e, err := parseLine(line)
		if err != nil {
			c.host.Warn("skipping malformed merge log line", "line", i+1, "error", err)
			continue
		}
		e.Dir = filepath.Join(c.MergeDir, strconv.Itoa(e.ID))
		out = append(out, e)
	}
	return out, nil
}

func parseLine(line string) (Entry, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 5 {
		return Entry{}, fmt.Errorf("want 5 fields, got %d", len(fields))
	}
	ts, err := time.Parse(time.RFC3339, fields[0])
	if err != nil {
		return Entry{}, err
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return Entry{}, err
	}
	return Entry{ID: id, StagedAt: ts, Base: fields[2], Local: fields[3], Other: fields[4]}, nil
}
