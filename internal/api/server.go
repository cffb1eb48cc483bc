// Package api serves change walks over HTTP: a JSON endpoint that returns all
// changes at once and a WebSocket endpoint that streams them.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/FocuswithJustin/versetrack/core/history"
	"github.com/FocuswithJustin/versetrack/internal/cache"
	"github.com/FocuswithJustin/versetrack/internal/logging"
)

// Server answers change queries for documents under one root directory.
type Server struct {
	addr           string
	root           string
	open           SourceOpener
	allowedOrigins []string
	limiter        *RateLimiter
	histories      *cache.TTL[string, []history.Revision]
	handler        http.Handler
}

// New builds a server. open supplies the history source for each document.
func New(cfg Config, open SourceOpener) (*Server, error) {
	if err := ValidateAuthConfig(cfg.Auth); err != nil {
		return nil, fmt.Errorf("invalid auth config: %w", err)
	}
	if open == nil {
		return nil, errors.New("no history source opener")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	s := &Server{
		addr:           cfg.Addr,
		root:           root,
		open:           open,
		allowedOrigins: cfg.AllowedOrigins,
		histories:      cache.New[string, []history.Revision](cfg.HistoryTTL),
	}

	var handler http.Handler = s.routes()
	if cfg.Auth.Enabled {
		handler = AuthMiddleware(cfg.Auth, handler)
	}
	if cfg.RateLimitRequests > 0 {
		s.limiter = NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimitRequests,
			BurstSize:         cfg.RateLimitBurst,
		})
		handler = s.limiter.Middleware(handler)
	}
	s.handler = logging.CombinedMiddleware(handler)
	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/changes", s.handleChanges)
	mux.HandleFunc("/ws/changes", s.handleStream)
	return mux
}

// Handler returns the server's HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close releases background resources.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// ListenAndServe serves on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logging.ServerStartup(s.addr, s.root, "rate_limited", s.limiter != nil)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
