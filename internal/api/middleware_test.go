package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// captureLogs routes the default logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// requestLogs returns the "http request" entries written to buf.
func requestLogs(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("bad log line %q: %v", scanner.Text(), err)
		}
		if entry["msg"] == "http request" {
			out = append(out, entry)
		}
	}
	return out
}

func TestLoggingMiddleware(t *testing.T) {
	env := newTestEnv(t, domain.RateLimitConfig{})
	buf := captureLogs(t)

	rr := env.do(http.MethodPost, "/predict", "uni-log", "{}")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	entries := requestLogs(t, buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 request log, got %d", len(entries))
	}
	e := entries[0]

	if e["institution_id"] != "uni-log" {
		t.Errorf("expected institution from context, got %v", e["institution_id"])
	}
	if e["assessment_id"] != rr.Header().Get(AssessmentIDHeader) {
		t.Errorf("expected assessment id %s, got %v", rr.Header().Get(AssessmentIDHeader), e["assessment_id"])
	}
	if e["cache"] != "MISS" {
		t.Errorf("expected cache MISS, got %v", e["cache"])
	}
	if e["status"] != float64(http.StatusOK) || e["level"] != "INFO" {
		t.Errorf("unexpected status/level %v/%v", e["status"], e["level"])
	}
	if e["request_id"] != rr.Header().Get(RequestIDHeader) {
		t.Errorf("request id mismatch: %v vs %s", e["request_id"], rr.Header().Get(RequestIDHeader))
	}

	t.Run("ClientErrorWarns", func(t *testing.T) {
		buf.Reset()
		env.do(http.MethodPost, "/predict", "", "")

		entries := requestLogs(t, buf)
		if len(entries) != 1 || entries[0]["level"] != "WARN" {
			t.Fatalf("expected one WARN entry, got %v", entries)
		}
		if entries[0]["institution_id"] != PublicInstitution {
			t.Errorf("expected public institution, got %v", entries[0]["institution_id"])
		}
		if _, ok := entries[0]["assessment_id"]; ok {
			t.Error("no assessment should be logged for a rejected request")
		}
	})
}

func TestRecoverMiddleware(t *testing.T) {
	buf := captureLogs(t)

	router := chi.NewRouter()
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(RecoverMiddleware)
	router.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "internal server error") {
		t.Errorf("unexpected body %s", rr.Body.String())
	}

	entries := requestLogs(t, buf)
	if len(entries) != 1 || entries[0]["level"] != "ERROR" || entries[0]["status"] != float64(500) {
		t.Errorf("expected the panic logged as a 500 at ERROR, got %v", entries)
	}
}

func TestTraceIDFallsBackToRequestID(t *testing.T) {
	var traceID string
	handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if traceID != "req-123" || rr.Header().Get(TraceIDHeader) != "req-123" {
		t.Errorf("expected trace id req-123, got %q / %q", traceID, rr.Header().Get(TraceIDHeader))
	}
}
