// Package logging builds slog loggers from configuration.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sandrolain/gomdx/pkg/config"
)

// New returns a logger writing to stderr.
func New(cfg config.LogConfig) *slog.Logger {
	return NewWriter(os.Stderr, cfg)
}

// NewWriter returns a logger writing to w. The format is json or text;
// anything else means text.
func NewWriter(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps DEBUG, WARN and ERROR to their levels, case
// insensitively. Anything else is INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}
