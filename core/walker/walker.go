// Package walker finds the revisions at which a region of a document changed.
//
// A walk visits revisions oldest first, extracts the selected region from each
// and reports a revision only when its region differs from the last reported
// one. Revisions where the region is absent are passed over without disturbing
// that baseline, so a chapter that is temporarily deleted and restored verbatim
// is not reported again.
package walker

import (
	"context"
	"iter"
	"log/slog"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/versetrack/core/cas"
	"github.com/FocuswithJustin/versetrack/core/history"
	"github.com/FocuswithJustin/versetrack/core/region"
)

// Change is a revision at which the selected region changed.
type Change struct {
	ChangeID string `json:"change_id"`
	SortKey  int64  `json:"sort_key"`

	// Digest is the BLAKE3 hash of the region text at this revision.
	Digest string `json:"digest"`
	Size   int    `json:"size"`
}

// Walker runs change walks. The zero value is not usable; call New.
type Walker struct {
	logger *slog.Logger
	id     string
}

// New returns a Walker that logs skipped revisions to logger at debug level.
// A nil logger uses slog.Default.
func New(logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Walker{logger: logger.With("walk_id", id), id: id}
}

// ID identifies this walker in log output.
func (w *Walker) ID() string {
	return w.id
}

// Walk yields each change to the region selected by sel across revs.
//
// revs may be in any order. A failure to read a revision's content is yielded as
// the final element; the changes yielded before it remain valid. Breaking out of
// the loop or cancelling ctx stops the walk without reading further revisions.
func (w *Walker) Walk(ctx context.Context, sel region.Selector, revs []history.Revision) iter.Seq2[Change, error] {
	return func(yield func(Change, error) bool) {
		var (
			baseline    string
			lastEmitted string
			emitted     bool
		)

		for _, rev := range history.Sorted(revs) {
			if err := ctx.Err(); err != nil {
				yield(Change{}, err)
				return
			}

			text, err := rev.Text(ctx)
			if err != nil {
				yield(Change{}, err)
				return
			}

			current := region.Extract(sel, text)
			switch {
			case current == "":
				w.logger.Debug("region absent", "change_id", rev.ChangeID, "selector", sel.String())
				continue
			case current == baseline:
				continue
			}
			baseline = current

			// Coarsened histories can give consecutive revisions one ChangeID.
			if emitted && rev.ChangeID == lastEmitted {
				w.logger.Debug("change folded into previous", "change_id", rev.ChangeID)
				continue
			}
			emitted = true
			lastEmitted = rev.ChangeID

			change := Change{
				ChangeID: rev.ChangeID,
				SortKey:  rev.SortKey,
				Digest:   cas.HashString(current),
				Size:     len(current),
			}
			if !yield(change, nil) {
				return
			}
		}
	}
}

// Walk runs a walk with a default Walker.
func Walk(ctx context.Context, sel region.Selector, revs []history.Revision) iter.Seq2[Change, error] {
	return New(nil).Walk(ctx, sel, revs)
}

// FindChangedRevisions collects the ChangeIDs of every change to sel across revs,
// oldest first. On error it returns the IDs found before the failure along with
// the error.
func FindChangedRevisions(ctx context.Context, sel region.Selector, revs []history.Revision) ([]string, error) {
	var ids []string
	for change, err := range Walk(ctx, sel, revs) {
		if err != nil {
			return ids, err
		}
		ids = append(ids, change.ChangeID)
	}
	return ids, nil
}
