package log

import (
	"io"
	"log/slog"
)

func levelFor(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewLogger creates a logger writing tab separated lines to w.
// With debug set every probe classification is logged; otherwise only open
// ports, warnings and errors.
//
// The returned logger masks secrets such as proxy passwords.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	return slog.New(NewSecureHandler(NewLineHandler(w, levelFor(debug))))
}

// NewJSONLogger creates a logger that outputs JSON records, for log
// aggregation. Secrets are masked the same way as in NewLogger.
func NewJSONLogger(w io.Writer, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: levelFor(debug),
	}
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, opts)))
}
