// Package logging provides structured JSON logging with trace ID propagation.
// It wraps Go's built-in log/slog with aggregator-specific helpers: a
// per-request trace ID injected via middleware and extracted from context,
// and per-logger level overrides driven by config.
package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"os"
)

type contextKey string

const traceIDKey contextKey = "trace_id"

// Logger is the package-level structured logger. Callers should prefer
// FromContext(ctx) to automatically attach the request trace ID.
var Logger *slog.Logger

var overrides map[string]slog.Level

func init() {
	Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// Setup (re-)initialises the package logger with no per-logger overrides.
// level is one of debug/info/warn/error (default info). format is "json"
// (default) or "text".
func Setup(level, format string) {
	SetupWithOverrides(level, format, nil)
}

// SetupWithOverrides is Setup plus a map of logger name -> level string,
// corresponding to the config's logger_overrides option. A logger created
// with Named(name) whose name appears in overrides logs at that level
// regardless of the process-wide default.
func SetupWithOverrides(level, format string, loggerOverrides map[string]string) {
	overrides = make(map[string]slog.Level, len(loggerOverrides))
	for name, lvl := range loggerOverrides {
		overrides[name] = parseLevel(lvl)
	}

	base := parseLevel(level)
	opts := &slog.HandlerOptions{Level: base}
	var inner slog.Handler
	if format == "text" {
		inner = slog.NewTextHandler(os.Stdout, opts)
	} else {
		inner = slog.NewJSONHandler(os.Stdout, opts)
	}

	handler := &leveledHandler{Handler: inner, base: base, overrides: overrides}
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// leveledHandler wraps a base slog.Handler and applies a per-logger-name
// override when one is registered, falling back to the process-wide base
// level otherwise. The name travels through WithAttrs/WithGroup so a
// logger built with Named("foo").With("key", "value") still honors foo's
// override.
type leveledHandler struct {
	slog.Handler
	name      string
	base      slog.Level
	overrides map[string]slog.Level
}

func (h *leveledHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if lvl, ok := h.overrides[h.name]; ok {
		return level >= lvl
	}
	return level >= h.base
}

func (h *leveledHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &leveledHandler{Handler: h.Handler.WithAttrs(attrs), name: h.name, base: h.base, overrides: h.overrides}
}

func (h *leveledHandler) WithGroup(name string) slog.Handler {
	return &leveledHandler{Handler: h.Handler.WithGroup(name), name: h.name, base: h.base, overrides: h.overrides}
}

// Named returns a logger identified by name for the purposes of
// logger_overrides. If name has no override configured, it behaves exactly
// like Logger.
func Named(name string) *slog.Logger {
	if lh, ok := Logger.Handler().(*leveledHandler); ok {
		named := &leveledHandler{Handler: lh.Handler, name: name, base: lh.base, overrides: lh.overrides}
		return slog.New(named)
	}
	return Logger.With("logger", name)
}

// NewTraceID generates a random 16-byte hex trace ID.
func NewTraceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// WithTraceID stores a trace ID in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext retrieves the trace ID stored in the context.
func TraceIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

// FromContext returns a *slog.Logger pre-annotated with the trace_id from ctx.
func FromContext(ctx context.Context) *slog.Logger {
	if id := TraceIDFromContext(ctx); id != "" {
		return Logger.With("trace_id", id)
	}
	return Logger
}

// Middleware injects a trace ID into every request context and echoes it in
// the X-Request-ID response header. Uses the incoming X-Request-ID header if
// present, otherwise generates a new one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Request-ID")
		if traceID == "" {
			traceID = NewTraceID()
		}
		ctx := WithTraceID(r.Context(), traceID)
		w.Header().Set("X-Request-ID", traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
