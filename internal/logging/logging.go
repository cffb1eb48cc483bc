// Package logging provides structured logging using Go's slog package.
//
// Logs go to stderr: stdout is reserved for the change identifiers a walk
// prints, so the two streams can be piped separately.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey ContextKey = "request_id"
	// WalkIDKey is the context key for walk IDs.
	WalkIDKey ContextKey = "walk_id"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger
)

func init() {
	InitLogger(LevelInfo, FormatText)
}

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format.
	FormatText
)

// ParseLevel converts a flag value such as "debug" or "WARN" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ParseFormat converts "json" or "text" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "text", "":
		return FormatText, nil
	}
	return FormatText, fmt.Errorf("unknown log format %q", s)
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger writing to w. Times are formatted as RFC3339.
func New(w io.Writer, level Level, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level.slogLevel(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// InitLogger initializes the global logger with the specified level and format.
func InitLogger(level Level, format Format) {
	SetLogger(New(os.Stderr, level, format))
}

// SetLogger replaces the global logger.
func SetLogger(l *slog.Logger) {
	defaultLogger = l
	slog.SetDefault(l)
}

// GetLogger returns the global logger instance.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithWalkID adds a walk ID to the context.
func WithWalkID(ctx context.Context, walkID string) context.Context {
	return context.WithValue(ctx, WalkIDKey, walkID)
}

// GetWalkID retrieves the walk ID from the context.
func GetWalkID(ctx context.Context) string {
	if walkID, ok := ctx.Value(WalkIDKey).(string); ok {
		return walkID
	}
	return ""
}

// LoggerFromContext returns a logger with context values attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := defaultLogger
	if requestID := GetRequestID(ctx); requestID != "" {
		logger = logger.With("request_id", requestID)
	}
	if walkID := GetWalkID(ctx); walkID != "" {
		logger = logger.With("walk_id", walkID)
	}
	return logger
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// WarnContext logs a warning message with context.
func WarnContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Warn(msg, args...)
}

// ErrorContext logs an error message with context.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Error(msg, args...)
}

// HTTPRequestContext logs an HTTP request with context and common fields.
func HTTPRequestContext(ctx context.Context, method, path, remoteAddr string, statusCode int, duration time.Duration, args ...any) {
	allArgs := []any{
		"method", method,
		"path", path,
		"remote_addr", remoteAddr,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Info("http_request", allArgs...)
}

// WalkStarted logs the start of a change walk.
func WalkStarted(ctx context.Context, source, path, selector string, revisions int) {
	LoggerFromContext(ctx).Debug("walk_started",
		"source", source,
		"path", path,
		"selector", selector,
		"revisions", revisions,
	)
}

// WalkFinished logs the end of a change walk. err is nil for a complete walk.
func WalkFinished(ctx context.Context, changes int, duration time.Duration, err error) {
	args := []any{
		"changes", changes,
		"duration_ms", duration.Milliseconds(),
	}
	if err != nil {
		LoggerFromContext(ctx).Error("walk_failed", append(args, "error", err.Error())...)
		return
	}
	LoggerFromContext(ctx).Debug("walk_finished", args...)
}

// WebSocketEvent logs WebSocket events.
func WebSocketEvent(ctx context.Context, event string, args ...any) {
	allArgs := append([]any{"event", event}, args...)
	LoggerFromContext(ctx).Info("websocket_event", allArgs...)
}

// ServerStartup logs server startup information.
func ServerStartup(addr, root string, args ...any) {
	allArgs := []any{
		"addr", addr,
		"root", root,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("server_startup", allArgs...)
}

// SecurityEvent logs security-related events.
func SecurityEvent(ctx context.Context, event, component string, args ...any) {
	allArgs := []any{
		"event", event,
		"component", component,
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Warn("security_event", allArgs...)
}
