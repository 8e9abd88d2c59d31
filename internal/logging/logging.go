// Package logging builds the slog handlers used by the server and the CLI.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/opensource-wellbeing/pulse/internal/domain"
)

const (
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
)

// New returns a structured logger writing JSON (default) or text to w.
func New(cfg domain.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CLIHandler prints one compact line per record. The score command logs
// through it on stderr so stdout carries only the JSON result.
type CLIHandler struct {
	writer io.Writer
	level  slog.Level
	prefix string
	color  bool
}

// NewCLIHandler creates a handler writing to w at or above level.
func NewCLIHandler(w io.Writer, level slog.Level, color bool) *CLIHandler {
	return &CLIHandler{writer: w, level: level, color: color}
}

func (h *CLIHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *CLIHandler) Handle(_ context.Context, r slog.Record) error {
	msg := r.Message
	if h.prefix != "" {
		msg = "[" + h.prefix + "] " + msg
	}

	if r.NumAttrs() > 0 {
		attrs := make([]string, 0, r.NumAttrs())
		r.Attrs(func(a slog.Attr) bool {
			attrs = append(attrs, fmt.Sprintf("%s=%v", a.Key, a.Value))
			return true
		})
		msg = msg + ": " + strings.Join(attrs, " ")
	}

	if h.color {
		if r.Level >= slog.LevelError {
			msg = colorRed + msg + colorReset
		} else {
			msg = colorGreen + msg + colorReset
		}
	}

	_, err := fmt.Fprintln(h.writer, msg)
	return err
}

func (h *CLIHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *CLIHandler) WithGroup(name string) slog.Handler {
	return &CLIHandler{
		writer: h.writer,
		level:  h.level,
		prefix: name,
		color:  h.color,
	}
}
