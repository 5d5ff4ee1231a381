// Package logging provides a structured logger built on [log/slog].
// It is configured once at startup via [New] and distributed through
// context values using [WithLogger] / [FromContext].
//
// Environment variables:
//
//	LOG_LEVEL  = debug | info | warn | error  (default: warn)
//	LOG_FORMAT = json | text                  (default: text)
//
// The defaults favour an interactive terminal session: quiet, human-readable
// output on stderr. Serve mode flips the default format to json.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// contextKey is an unexported type for context keys in this package.
type contextKey struct{}

// New constructs a [*slog.Logger] from environment variables.
// LOG_FORMAT selects the handler (text for interactive use, json for serve
// mode and log shippers). LOG_LEVEL sets the minimum severity level.
func New() *slog.Logger {
	return newWithDefaults(slog.LevelWarn, "text")
}

// NewServer is like [New] but defaults to info-level JSON output, the
// convention for the long-running HTTP server.
func NewServer() *slog.Logger {
	return newWithDefaults(slog.LevelInfo, "json")
}

func newWithDefaults(defaultLevel slog.Level, defaultFormat string) *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"), defaultLevel)

	format := strings.ToLower(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = defaultFormat
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the [*slog.Logger] stored in ctx.
// If no logger is present it returns [slog.Default] so callers never
// need to nil-check.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// parseLevel converts a string to a [slog.Level], using fallback when unset
// or unrecognised.
func parseLevel(s string, fallback slog.Level) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}
