package api

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	"github.com/FocuswithJustin/versetrack/core/errors"
	"github.com/FocuswithJustin/versetrack/core/history"
	"github.com/FocuswithJustin/versetrack/core/region"
	"github.com/FocuswithJustin/versetrack/core/sqlite"
	"github.com/FocuswithJustin/versetrack/core/walker"
	"github.com/FocuswithJustin/versetrack/internal/cache"
	"github.com/FocuswithJustin/versetrack/internal/locate"
	"github.com/FocuswithJustin/versetrack/internal/logging"
	"github.com/FocuswithJustin/versetrack/internal/validation"
)

// Version is reported by /health. It is set by the CLI at startup.
var Version = "dev"

// APIResponse is the standard API response envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Timestamp string `json:"timestamp"`
}

// HealthInfo is returned by /health.
type HealthInfo struct {
	Status  string      `json:"status"`
	Version string      `json:"version"`
	Root    string      `json:"root"`
	SQLite  sqlite.Info `json:"sqlite"`
}

// ChangesResult is returned by /changes.
type ChangesResult struct {
	Path     string          `json:"path"`
	Selector string          `json:"selector"`
	Changes  []walker.Change `json:"changes"`
	Warnings []string        `json:"warnings,omitempty"`
}

// requestHost adapts one HTTP request to host.Host. Warnings are kept so they
// can be returned to the client.
type requestHost struct {
	ctx      context.Context
	source   history.Source
	warnings []string
	onWarn   func(msg string)
}

func (h *requestHost) Write(string) error { return nil }

func (h *requestHost) Warn(msg string, args ...any) {
	logging.WarnContext(h.ctx, msg, args...)
	h.warnings = append(h.warnings, msg)
	if h.onWarn != nil {
		h.onWarn(msg)
	}
}

func (h *requestHost) Debug(msg string, args ...any) {
	logging.LoggerFromContext(h.ctx).Debug(msg, args...)
}

func (h *requestHost) HistoryOf(ctx context.Context, path string) ([]history.Revision, error) {
	return h.source.History(ctx, path)
}

func (h *requestHost) Source() history.Source {
	return h.source
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		return
	}
	respond(w, http.StatusOK, HealthInfo{
		Status:  "healthy",
		Version: Version,
		Root:    s.root,
		SQLite:  sqlite.GetInfo(),
	})
}

// parseRequest reads path, chapter and verses from the query string and opens
// the history source for the document.
func (s *Server) parseRequest(r *http.Request) (locate.Request, *requestHost, error) {
	q := r.URL.Query()
	rel, err := validation.SanitizePath(s.root, q.Get("path"))
	if err != nil {
		logging.SecurityEvent(r.Context(), "path_rejected", "api",
			"path", q.Get("path"),
			"error", err.Error())
		return locate.Request{}, nil, &errors.ValidationError{
			Field:   "path",
			Value:   q.Get("path"),
			Message: "must be a relative path inside the served directory",
			Err:     err,
		}
	}

	req := locate.Request{
		Path:    filepath.Join(s.root, rel),
		Chapter: q.Get("chapter"),
		Verses:  q.Get("verses"),
	}
	src, err := s.open(req.Path)
	if err != nil {
		return locate.Request{}, nil, err
	}
	src = &reusedSource{Source: src, histories: s.histories}
	return req, &requestHost{ctx: r.Context(), source: src}, nil
}

// reusedSource serves revision lists from the server's history cache so that
// repeated queries for one document do not re-read the repository.
type reusedSource struct {
	history.Source
	histories *cache.TTL[string, []history.Revision]
}

func (s *reusedSource) History(ctx context.Context, path string) ([]history.Revision, error) {
	return s.histories.Load(s.Name()+"\x00"+path, func() ([]history.Revision, error) {
		return s.Source.History(ctx, path)
	})
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		return
	}

	req, h, err := s.parseRequest(r)
	if err != nil {
		respondWalkError(w, err)
		return
	}

	changes := []walker.Change{}
	for change, err := range locate.LocateChangedRevisions(r.Context(), h, req.Path, req.Chapter, req.Verses) {
		if err != nil {
			respondWalkError(w, err)
			return
		}
		changes = append(changes, change)
	}

	// The walk has accepted the chapter; a verse range error only narrows less.
	sel, _ := region.NewSelector(req.Chapter, req.Verses)
	result := ChangesResult{
		Path:     r.URL.Query().Get("path"),
		Selector: sel.String(),
		Changes:  changes,
		Warnings: h.warnings,
	}
	respond(w, http.StatusOK, result)
}

// errorStatus maps walk errors to HTTP status codes and API error codes.
func errorStatus(err error) (int, string) {
	var (
		nf *errors.NotFoundError
		ve *errors.ValidationError
		ue *errors.UnsupportedError
	)
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.As(err, &ve):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.As(err, &ue):
		return http.StatusBadRequest, "UNSUPPORTED"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "CANCELLED"
	default:
		return http.StatusInternalServerError, "WALK_FAILED"
	}
}

func respondWalkError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	respondError(w, status, code, err.Error())
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
