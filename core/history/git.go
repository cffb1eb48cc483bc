package history

import (
	"bufio"
	"bytes"
	"context"

	"github.com/FocuswithJustin/versetrack/core/errors"
)

// shortHashLen is the length of the change identifiers reported for git and
// Mercurial revisions.
const shortHashLen = 12

// GitSource reads document history from a git working copy using the git CLI.
type GitSource struct {
	bin  string
	root string
}

// NewGitSource returns a source for the repository rooted at root.
func NewGitSource(root string) *GitSource {
	return &GitSource{bin: "git", root: root}
}

// Name implements Source.
func (s *GitSource) Name() string {
	return "git:" + s.root
}

// Root returns the repository root.
func (s *GitSource) Root() string {
	return s.root
}

// History implements Source. Commits that delete the document are left out.
func (s *GitSource) History(ctx context.Context, path string) ([]Revision, error) {
	rel, err := relativeTo(s.root, path)
	if err != nil {
		return nil, err
	}

	out, err := newCommand(s.bin, s.root, "log", "--format=%H", "--diff-filter=ACMRT", "--", rel).run(ctx)
	if err != nil {
		return nil, errors.NewIO("log", rel, err)
	}

	var hashes []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			hashes = append(hashes, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewIO("log", rel, err)
	}
	if len(hashes) == 0 {
		return nil, errors.NewNotFound("history", rel)
	}

	// git log lists newest first.
	revs := make([]Revision, 0, len(hashes))
	for i, hash := range hashes {
		revs = append(revs, Revision{
			ChangeID: abbreviate(hash),
			SortKey:  int64(len(hashes) - 1 - i),
			Content:  s.showFunc(hash, rel),
		})
	}
	return revs, nil
}

func (s *GitSource) showFunc(hash, rel string) func(context.Context) ([]byte, error) {
	return func(ctx context.Context) ([]byte, error) {
		out, err := newCommand(s.bin, s.root, "show", hash+":"+rel).run(ctx)
		if err != nil {
			return nil, errors.NewIO("show", rel+"@"+abbreviate(hash), err)
		}
		return out, nil
	}
}

// LatestTag returns the most recent tag reachable from HEAD that matches the
// glob pattern match. An empty match considers every tag.
func (s *GitSource) LatestTag(ctx context.Context, match string) (string, error) {
	args := []string{"describe", "--tags", "--abbrev=0"}
	if match != "" {
		args = append(args, "--match", match)
	}
	out, err := newCommand(s.bin, s.root, args...).run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &errors.NotFoundError{Resource: "tag", ID: match, Err: err}
	}
	return string(bytes.TrimSpace(out)), nil
}

func abbreviate(hash string) string {
	if len(hash) > shortHashLen {
		return hash[:shortHashLen]
	}
	return hash
}
