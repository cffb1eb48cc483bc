package history

import (
	"os"
	"path/filepath"

	"github.com/FocuswithJustin/versetrack/core/errors"
)

// Control directories that mark a repository root.
const (
	HgDir  = ".hg"
	GitDir = ".git"
)

// DiscoverRoot walks up from start looking for a directory that contains one of
// the given control-directory markers. Markers are checked in order at each level,
// so the nearest repository wins. It returns the root and the marker found.
func DiscoverRoot(start string, markers ...string) (root, marker string, err error) {
	absPath, err := filepath.Abs(start)
	if err != nil {
		return "", "", errors.NewIO("resolve", start, err)
	}

	current := absPath
	if info, err := os.Stat(current); err != nil || !info.IsDir() {
		current = filepath.Dir(current)
	}

	for {
		for _, m := range markers {
			if info, err := os.Stat(filepath.Join(current, m)); err == nil && info.IsDir() {
				return current, m, nil
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", "", errors.NewNotFound("repository", start)
		}
		current = parent
	}
}

// relativeTo returns path relative to root using forward slashes, as both git
// and Mercurial expect.
func relativeTo(root, path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", errors.NewIO("resolve", path, err)
	}
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return "", errors.NewIO("resolve", path, err)
	}
	return filepath.ToSlash(rel), nil
}

// Detect picks a version-control source for the repository enclosing path.
func Detect(path string) (Source, error) {
	root, marker, err := DiscoverRoot(path, HgDir, GitDir)
	if err != nil {
		return nil, err
	}
	if marker == HgDir {
		return NewHgSource(root), nil
	}
	return NewGitSource(root), nil
}
