package api

import (
	"time"

	"github.com/FocuswithJustin/versetrack/core/history"
)

// SourceOpener returns the history source for a document. The path has already
// been checked to lie under Config.Root.
type SourceOpener func(docPath string) (history.Source, error)

// Config holds server configuration.
type Config struct {
	Addr              string        // Listen address, e.g. ":8080"
	Root              string        // Directory documents are resolved against
	RateLimitRequests int           // Requests per minute (0 = disabled)
	RateLimitBurst    int           // Burst size
	Auth              AuthConfig    // Authentication configuration
	AllowedOrigins    []string      // WebSocket origins (empty = same-host only)
	HistoryTTL        time.Duration // How long revision lists are reused (0 = never)
}
