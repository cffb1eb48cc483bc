package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialStream(t *testing.T, srv *httptest.Server, query string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/changes?" + query
	return websocket.DefaultDialer.Dial(url, header)
}

func readAll(t *testing.T, conn *websocket.Conn) []StreamMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msgs []StreamMessage
	for {
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return msgs
		}
		msgs = append(msgs, msg)
		if msg.Type == "complete" || msg.Type == "error" {
			return msgs
		}
	}
}

func TestStream(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := dialStream(t, srv, "path=GEN.usfm&chapter=1", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	msgs := readAll(t, conn)
	if len(msgs) != 3 {
		t.Fatalf("got %d messages: %+v", len(msgs), msgs)
	}
	for i, want := range []string{"a1", "b2"} {
		if msgs[i].Type != "change" || msgs[i].Change == nil || msgs[i].Change.ChangeID != want {
			t.Errorf("message %d = %+v, want change %s", i, msgs[i], want)
		}
	}
	if last := msgs[2]; last.Type != "complete" || last.Count != 2 {
		t.Errorf("final message = %+v", last)
	}
}

func TestStream_Warning(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := dialStream(t, srv, "path=GEN.usfm&chapter=2&verses=x-", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	msgs := readAll(t, conn)
	if len(msgs) == 0 || msgs[0].Type != "warning" {
		t.Fatalf("messages = %+v, want leading warning", msgs)
	}
	if last := msgs[len(msgs)-1]; last.Type != "complete" || last.Count != 1 {
		t.Errorf("final message = %+v", last)
	}
}

func TestStream_NotFound(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := dialStream(t, srv, "path=EXO.usfm&chapter=1", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	msgs := readAll(t, conn)
	if len(msgs) != 1 || msgs[0].Type != "error" || msgs[0].Code != "NOT_FOUND" {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestStream_RejectsTraversalBeforeUpgrade(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	_, resp, err := dialStream(t, srv, "path=../secret&chapter=1", nil)
	if err == nil {
		t.Fatal("Dial() succeeded for traversal path")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("response = %v", resp)
	}
}

func TestStream_Origin(t *testing.T) {
	s, _ := newTestServer(t, Config{AllowedOrigins: []string{"https://*.example.org"}})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	_, resp, err := dialStream(t, srv, "path=GEN.usfm&chapter=1", http.Header{"Origin": {"https://evil.test"}})
	if err == nil {
		t.Fatal("Dial() succeeded from disallowed origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v", resp)
	}

	conn, _, err := dialStream(t, srv, "path=GEN.usfm&chapter=1", http.Header{"Origin": {"https://app.example.org"}})
	if err != nil {
		t.Fatalf("Dial() from allowed origin error = %v", err)
	}
	conn.Close()
}

func TestIsOriginAllowed(t *testing.T) {
	tests := []struct {
		origin  string
		allowed []string
		want    bool
	}{
		{"https://a.example.org", []string{"*"}, true},
		{"https://a.example.org", []string{"https://a.example.org"}, true},
		{"https://a.example.org", []string{"https://*.example.org"}, true},
		{"http://a.example.org", []string{"https://*.example.org"}, false},
		{"https://example.org", []string{"https://*.example.org"}, false},
		{"https://a.example.org", []string{"*.example.org"}, true},
		{"https://example.org.evil", []string{"*.example.org"}, false},
		{"https://b.test", nil, false},
	}
	for _, tt := range tests {
		if got := isOriginAllowed(tt.origin, tt.allowed); got != tt.want {
			t.Errorf("isOriginAllowed(%q, %v) = %v, want %v", tt.origin, tt.allowed, got, tt.want)
		}
	}
}
