// Package release computes the next release tag from the latest one.
//
// Two tag shapes are understood: semantic versions such as "v1.4.2" and single
// counters such as "build-17". Any leading alphabetic prefix is preserved.
package release

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/versetrack/core/errors"
	"github.com/FocuswithJustin/versetrack/core/history"
)

// Level selects which part of a version to increment.
type Level string

const (
	Major Level = "major"
	Minor Level = "minor"
	Patch Level = "patch"
	Build Level = "build"
)

// ParseLevel validates a release level argument.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(s)); l {
	case Major, Minor, Patch, Build:
		return l, nil
	}
	return "", &errors.ValidationError{
		Field:   "level",
		Value:   s,
		Message: "must be one of major, minor, patch, build",
	}
}

// Version is a parsed release tag.
type Version struct {
	Prefix string
	Major  int
	Minor  int
	Patch  int

	// Counter is true for single-number tags; the number is held in Major.
	Counter bool
}

var tagLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Prefix", Pattern: `[A-Za-z][A-Za-z_\-]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Dot", Pattern: `\.`},
})

type tagGrammar struct {
	Prefix string     `@Prefix?`
	Major  int        `@Int`
	Rest   *semverTag `@@?`
}

type semverTag struct {
	Minor int `"." @Int`
	Patch int `"." @Int`
}

var tagParser = participle.MustBuild[tagGrammar](participle.Lexer(tagLexer))

// Parse reads a tag such as "v1.4.2", "1.4.2", "build-17" or "42".
func Parse(tag string) (Version, error) {
	g, err := tagParser.ParseString("", strings.TrimSpace(tag))
	if err != nil {
		return Version{}, errors.NewParse("release tag", tag, err.Error())
	}
	v := Version{Prefix: g.Prefix, Major: g.Major}
	if g.Rest == nil {
		v.Counter = true
		return v, nil
	}
	v.Minor, v.Patch = g.Rest.Minor, g.Rest.Patch
	return v, nil
}

// String renders the version in the same shape it was parsed from.
func (v Version) String() string {
	if v.Counter {
		return v.Prefix + strconv.Itoa(v.Major)
	}
	return fmt.Sprintf("%s%d.%d.%d", v.Prefix, v.Major, v.Minor, v.Patch)
}

// Bump returns the next version for level. Semantic versions take major, minor
// or patch and reset the lower parts; counters only take build.
func (v Version) Bump(level Level) (Version, error) {
	if v.Counter {
		if level != Build {
			return Version{}, errors.NewUnsupported("release level "+string(level), "tag is a single counter")
		}
		v.Major++
		return v, nil
	}

	switch level {
	case Major:
		v.Major, v.Minor, v.Patch = v.Major+1, 0, 0
	case Minor:
		v.Minor, v.Patch = v.Minor+1, 0
	case Patch:
		v.Patch++
	default:
		return Version{}, errors.NewUnsupported("release level "+string(level), "tag is a semantic version")
	}
	return v, nil
}

// LatestTag returns the newest tag matching the glob match in the git
// repository enclosing dir.
func LatestTag(ctx context.Context, dir, match string) (string, error) {
	root, _, err := history.DiscoverRoot(dir, history.GitDir)
	if err != nil {
		return "", err
	}
	return history.NewGitSource(root).LatestTag(ctx, match)
}

// Next reads the latest tag matching match and bumps it by level.
func Next(ctx context.Context, dir, match string, level Level) (Version, error) {
	tag, err := LatestTag(ctx, dir, match)
	if err != nil {
		return Version{}, err
	}
	v, err := Parse(tag)
	if err != nil {
		return Version{}, err
	}
	return v.Bump(level)
}
