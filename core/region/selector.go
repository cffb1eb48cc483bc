package region

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/versetrack/core/errors"
)

// VerseRange is an inclusive range of verse labels within one chapter.
type VerseRange struct {
	Start string
	End   string
}

// String renders the range as "5" or "5-7".
func (r VerseRange) String() string {
	if r.Start == r.End {
		return r.Start
	}
	return r.Start + "-" + r.End
}

// Selector identifies the region to track: a chapter and, optionally, a verse
// range inside it. A nil Verses selects the whole chapter.
type Selector struct {
	Chapter string
	Verses  *VerseRange
}

// String renders the selector as "3", "3:5" or "3:5-7".
func (s Selector) String() string {
	if s.Verses == nil {
		return s.Chapter
	}
	return s.Chapter + ":" + s.Verses.String()
}

// selectorLexer tokenizes chapter/verse labels. Labels are alphanumeric so that
// split verses such as "5a" can be addressed.
var selectorLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Label", Pattern: `[0-9A-Za-z]+`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Dash", Pattern: `-`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type verseRangeGrammar struct {
	Start string  `@Label`
	End   *string `( "-" @Label )?`
}

type referenceGrammar struct {
	Chapter string             `@Label`
	Verses  *verseRangeGrammar `( ":" @@ )?`
}

var (
	verseRangeParser = participle.MustBuild[verseRangeGrammar](
		participle.Lexer(selectorLexer),
		participle.Elide("Whitespace"),
	)
	referenceParser = participle.MustBuild[referenceGrammar](
		participle.Lexer(selectorLexer),
		participle.Elide("Whitespace"),
	)
)

func (g *verseRangeGrammar) toRange() *VerseRange {
	r := &VerseRange{Start: g.Start, End: g.Start}
	if g.End != nil {
		r.End = *g.End
	}
	return r
}

// ParseVerseRange parses "5" or "5-7". An empty string means no range and returns
// (nil, nil). Anything else that does not parse returns a *errors.ParseError.
func ParseVerseRange(s string) (*VerseRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	g, err := verseRangeParser.ParseString("", s)
	if err != nil {
		return nil, errors.NewParse("verse range", s, err.Error())
	}
	return g.toRange(), nil
}

// ParseReference parses a chapter reference of the form "3", "3:5" or "3:5-7".
func ParseReference(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Selector{}, errors.NewValidation("reference", "must not be empty")
	}
	g, err := referenceParser.ParseString("", s)
	if err != nil {
		return Selector{}, errors.NewParse("reference", s, err.Error())
	}
	sel := Selector{Chapter: g.Chapter}
	if g.Verses != nil {
		sel.Verses = g.Verses.toRange()
	}
	return sel, nil
}

// NewSelector builds a selector from a chapter label and an optional verse range.
//
// An empty or whitespace-bearing chapter is a *errors.ValidationError and the
// selector is unusable. A verse range that does not parse leaves Verses nil and is
// reported as a *errors.ParseError; the returned selector is still valid and
// tracks the whole chapter.
func NewSelector(chapter, verses string) (Selector, error) {
	chapter = strings.TrimSpace(chapter)
	if chapter == "" {
		return Selector{}, errors.NewValidation("chapter", "must not be empty")
	}
	if strings.ContainsAny(chapter, " \t\r\n") {
		return Selector{}, &errors.ValidationError{
			Field:   "chapter",
			Value:   chapter,
			Message: "must be a single label",
		}
	}

	sel := Selector{Chapter: chapter}
	r, err := ParseVerseRange(verses)
	if err != nil {
		return sel, err
	}
	sel.Verses = r
	return sel, nil
}
