package observability

import (
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
)

var noopLogger *slog.Logger

// NoopLogger returns a disabled Logger
func NoopLogger() *slog.Logger {
	return noopLogger
}

// NewLogger returns a Logger writing to stderr.
// level is one of "debug", "info", "warn", "error" (default info).
// format is "json" or "text" (default text).
func NewLogger(level string, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var hdlr slog.Handler
	switch strings.ToLower(format) {
	case "json":
		hdlr = slog.NewJSONHandler(os.Stderr, opts)
	default:
		hdlr = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(hdlr)
}

func init() {
	hdlr := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})
	noopLogger = slog.New(hdlr)
}
