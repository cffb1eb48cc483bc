// Package locate is the caller-facing entry point: given a document, a chapter
// and an optional verse range, it reports the revisions that changed them.
package locate

import (
	"context"
	"iter"
	"time"

	"github.com/FocuswithJustin/versetrack/core/errors"
	"github.com/FocuswithJustin/versetrack/core/history"
	"github.com/FocuswithJustin/versetrack/core/region"
	"github.com/FocuswithJustin/versetrack/core/walker"
	"github.com/FocuswithJustin/versetrack/internal/host"
	"github.com/FocuswithJustin/versetrack/internal/logging"
)

// Request names the region to track.
type Request struct {
	Path    string `json:"path"`
	Chapter string `json:"chapter"`
	Verses  string `json:"verses,omitempty"`
}

// Selector builds the region selector for chapter and verses. A verse range that
// does not parse is reported through h.Warn and the whole chapter is selected.
func Selector(h host.Host, chapter, verses string) (region.Selector, error) {
	sel, err := region.NewSelector(chapter, verses)
	if err != nil {
		var pe *errors.ParseError
		if !errors.As(err, &pe) {
			return region.Selector{}, err
		}
		h.Warn("ignoring malformed verse range, tracking whole chapter",
			"chapter", sel.Chapter, "verses", verses, "error", err)
	}
	return sel, nil
}

// LocateChangedRevisions streams the changes to a region of the document at
// path, oldest first. Errors are yielded as the last element.
func LocateChangedRevisions(ctx context.Context, h host.Host, path, chapter, verses string) iter.Seq2[walker.Change, error] {
	return func(yield func(walker.Change, error) bool) {
		sel, err := Selector(h, chapter, verses)
		if err != nil {
			yield(walker.Change{}, err)
			return
		}

		revs, err := h.HistoryOf(ctx, path)
		if err != nil {
			yield(walker.Change{}, err)
			return
		}

		w := walker.New(logging.GetLogger())
		ctx := logging.WithWalkID(ctx, w.ID())
		logging.WalkStarted(ctx, sourceName(h), path, sel.String(), len(revs))

		start := time.Now()
		n := 0
		for change, err := range w.Walk(ctx, sel, revs) {
			if err != nil {
				logging.WalkFinished(ctx, n, time.Since(start), err)
				yield(walker.Change{}, err)
				return
			}
			n++
			if !yield(change, nil) {
				return
			}
		}
		logging.WalkFinished(ctx, n, time.Since(start), nil)
	}
}

// Run writes the identifier of every change in req to h, one per line, as soon
// as each is found. It returns the number of changes written.
func Run(ctx context.Context, h host.Host, req Request) (int, error) {
	n := 0
	for change, err := range LocateChangedRevisions(ctx, h, req.Path, req.Chapter, req.Verses) {
		if err != nil {
			return n, err
		}
		if err := h.Write(change.ChangeID); err != nil {
			return n, errors.NewIO("write", "output", err)
		}
		n++
	}
	return n, nil
}

func sourceName(h host.Host) string {
	if s, ok := h.(interface{ Source() history.Source }); ok && s.Source() != nil {
		return s.Source().Name()
	}
	return ""
}
