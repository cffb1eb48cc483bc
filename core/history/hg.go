package history

import (
	"bytes"
	"context"
	"strconv"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/versetrack/core/errors"
)

// logEntryExpr selects the changesets in `hg log --style xml` output.
var logEntryExpr = xpath.MustCompile("/log/logentry")

// HgSource reads document history from a Mercurial working copy using the hg CLI.
type HgSource struct {
	bin  string
	root string
}

// NewHgSource returns a source for the repository rooted at root.
func NewHgSource(root string) *HgSource {
	return &HgSource{bin: "hg", root: root}
}

// Name implements Source.
func (s *HgSource) Name() string {
	return "hg:" + s.root
}

// Root returns the repository root.
func (s *HgSource) Root() string {
	return s.root
}

func (s *HgSource) command(args ...string) *command {
	c := newCommand(s.bin, s.root, args...)
	// Ignore user configuration that could change output formats.
	c.env = []string{"HGPLAIN=1"}
	return c
}

// History implements Source. The local revision number is the sort key and the
// node hash prefix is the change identifier.
func (s *HgSource) History(ctx context.Context, path string) ([]Revision, error) {
	rel, err := relativeTo(s.root, path)
	if err != nil {
		return nil, err
	}

	out, err := s.command("log", "--style", "xml", "--", rel).run(ctx)
	if err != nil {
		return nil, errors.NewIO("log", rel, err)
	}

	entries, err := parseHgLog(out)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.NewNotFound("history", rel)
	}

	revs := make([]Revision, 0, len(entries))
	for _, e := range entries {
		revs = append(revs, Revision{
			ChangeID: abbreviate(e.node),
			SortKey:  e.rev,
			Content:  s.catFunc(e.node, rel),
		})
	}
	return revs, nil
}

func (s *HgSource) catFunc(node, rel string) func(context.Context) ([]byte, error) {
	return func(ctx context.Context) ([]byte, error) {
		out, err := s.command("cat", "-r", node, "--", rel).run(ctx)
		if err != nil {
			return nil, errors.NewIO("cat", rel+"@"+abbreviate(node), err)
		}
		return out, nil
	}
}

type hgLogEntry struct {
	rev  int64
	node string
}

// parseHgLog extracts revision numbers and nodes from `hg log --style xml`.
func parseHgLog(data []byte) ([]hgLogEntry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &errors.ParseError{Format: "hg log", Message: err.Error(), Err: err}
	}

	var entries []hgLogEntry
	for _, n := range xmlquery.QuerySelectorAll(doc, logEntryExpr) {
		revAttr := n.SelectAttr("revision")
		node := n.SelectAttr("node")
		rev, err := strconv.ParseInt(revAttr, 10, 64)
		if err != nil || node == "" {
			return nil, errors.NewParse("hg log", revAttr, "logentry without revision or node")
		}
		entries = append(entries, hgLogEntry{rev: rev, node: node})
	}
	return entries, nil
}
