package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/versetrack/core/walker"
	"github.com/FocuswithJustin/versetrack/internal/locate"
	"github.com/FocuswithJustin/versetrack/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

// StreamMessage is one frame of a streamed walk. A stream is zero or more
// "warning" and "change" frames followed by exactly one "complete" or "error".
type StreamMessage struct {
	Type      string         `json:"type"`
	Change    *walker.Change `json:"change,omitempty"`
	Count     int            `json:"count,omitempty"`
	Code      string         `json:"code,omitempty"`
	Message   string         `json:"message,omitempty"`
	Timestamp string         `json:"timestamp"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin accepts clients without an Origin header (command-line tools),
// same-host browsers, and origins on the configured allow list.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if isOriginAllowed(origin, s.allowedOrigins) {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	logging.SecurityEvent(r.Context(), "websocket_origin_rejected", "api", "origin", origin)
	return false
}

// isOriginAllowed matches origin against exact entries, "*", and wildcard
// subdomain patterns such as "https://*.example.org" or "*.example.org".
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
		prefix, domain, ok := strings.Cut(allowed, "*.")
		if !ok {
			continue
		}
		suffix := "." + domain
		if strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) &&
			len(origin) > len(prefix)+len(suffix) {
			return true
		}
	}
	return false
}

// handleStream runs a walk and sends each change over a WebSocket as soon as it
// is found. The walk stops when the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	req, h, err := s.parseRequest(r)
	if err != nil {
		respondWalkError(w, err)
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		logging.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	logging.WebSocketEvent(ctx, "stream_opened", "path", req.Path, "chapter", req.Chapter)

	// Clients send nothing; a read error means they have gone away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(msg StreamMessage) bool {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			cancel()
			return false
		}
		return true
	}
	h.onWarn = func(msg string) {
		send(StreamMessage{Type: "warning", Message: msg})
	}

	count := 0
	for change, err := range locate.LocateChangedRevisions(ctx, h, req.Path, req.Chapter, req.Verses) {
		if err != nil {
			if ctx.Err() == nil {
				_, code := errorStatus(err)
				send(StreamMessage{Type: "error", Code: code, Message: err.Error()})
			}
			logging.WebSocketEvent(ctx, "stream_failed", "count", count, "error", err.Error())
			return
		}
		if !send(StreamMessage{Type: "change", Change: &change}) {
			logging.WebSocketEvent(ctx, "stream_aborted", "count", count)
			return
		}
		count++
	}

	send(StreamMessage{Type: "complete", Count: count})
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	logging.WebSocketEvent(ctx, "stream_closed", "count", count)
}
