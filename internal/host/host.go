// Package host defines the capabilities a change walk needs from its
// environment, and a console implementation of them.
package host

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/FocuswithJustin/versetrack/core/history"
)

// Host is the environment a walk runs in. It emits results, reports
// diagnostics, and supplies the revision history of a document.
type Host interface {
	// Write emits one result line.
	Write(line string) error
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
	HistoryOf(ctx context.Context, path string) ([]history.Revision, error)
}

// Console writes results to an output stream, one per line, and diagnostics to
// a structured logger.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	logger *slog.Logger
	source history.Source
}

// NewConsole returns a Console reading history from source. A nil logger uses
// slog.Default.
func NewConsole(out io.Writer, logger *slog.Logger, source history.Source) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{out: out, logger: logger, source: source}
}

// Source returns the history source backing the console.
func (c *Console) Source() history.Source {
	return c.source
}

// Write implements Host. Each line is flushed before Write returns when the
// output supports it.
func (c *Console) Write(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintln(c.out, line); err != nil {
		return err
	}
	if f, ok := c.out.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Warn implements Host.
func (c *Console) Warn(msg string, args ...any) {
	c.logger.Warn(msg, args...)
}

// Debug implements Host.
func (c *Console) Debug(msg string, args ...any) {
	c.logger.Debug(msg, args...)
}

// HistoryOf implements Host.
func (c *Console) HistoryOf(ctx context.Context, path string) ([]history.Revision, error) {
	return c.source.History(ctx, path)
}
