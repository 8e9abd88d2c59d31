package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/opensource-wellbeing/pulse/internal/domain"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.in, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(domain.LoggingConfig{Level: "info", Format: "json"}, &buf)
		logger.Debug("hidden")
		logger.Info("assessment processed", "risk_level", "High")

		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("expected a single JSON record, got %q: %v", buf.String(), err)
		}
		if rec["msg"] != "assessment processed" || rec["risk_level"] != "High" {
			t.Errorf("unexpected record %+v", rec)
		}
	})

	t.Run("Text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(domain.LoggingConfig{Level: "debug", Format: "text"}, &buf)
		logger.Debug("visible")
		if !strings.Contains(buf.String(), "msg=visible") {
			t.Errorf("expected text record, got %q", buf.String())
		}
	})
}

func TestCLIHandler(t *testing.T) {
	t.Run("Attrs", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(NewCLIHandler(&buf, slog.LevelInfo, false))
		logger.Info("model loaded", "classes", 4)

		if got := strings.TrimSpace(buf.String()); got != "model loaded: classes=4" {
			t.Errorf("unexpected line %q", got)
		}
	})

	t.Run("Level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(NewCLIHandler(&buf, slog.LevelWarn, false))
		logger.Info("skipped")
		if buf.Len() != 0 {
			t.Errorf("expected nothing below warn, got %q", buf.String())
		}
	})

	t.Run("Color", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(NewCLIHandler(&buf, slog.LevelInfo, true))
		logger.Error("failed")
		if !strings.Contains(buf.String(), colorRed) {
			t.Errorf("expected red error line, got %q", buf.String())
		}
	})

	t.Run("Group", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(NewCLIHandler(&buf, slog.LevelInfo, false)).WithGroup("score")
		logger.Info("done")
		if !strings.HasPrefix(buf.String(), "[score] done") {
			t.Errorf("expected prefix, got %q", buf.String())
		}
	})
}
