package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	// InstitutionIDKey is the context key for institution ID.
	InstitutionIDKey contextKey = "institutionID"

	requestInfoKey contextKey = "requestInfo"
)

// Request and response headers.
const (
	InstitutionIDHeader = "X-Institution-ID"
	RequestIDHeader     = "X-Request-ID"
	TraceIDHeader       = "X-Trace-ID"
	AssessmentIDHeader  = "X-Assessment-ID"
	CacheHeader         = "X-Cache"
)

// PublicInstitution scopes requests that name no institution.
const PublicInstitution = "public"

var tracer = otel.Tracer("pulse-api")

// requestInfo travels with a request so the outer middleware can report what
// the inner layers decided: the institution, the stored assessment, and
// whether the response came from cache.
type requestInfo struct {
	RequestID     string
	TraceID       string
	InstitutionID string
	AssessmentID  string
	Cache         string

	Status int
	Bytes  int
}

// statusRecorder captures the status and size written through it.
type statusRecorder struct {
	http.ResponseWriter
	info *requestInfo
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.info.Status == 0 {
		rec.info.Status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.info.Status == 0 {
		rec.info.Status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.info.Bytes += n
	return n, err
}

func infoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey).(*requestInfo)
	return info
}

// withInfo returns the request's info, attaching a fresh one and a recorder
// when no outer middleware has done so.
func withInfo(w http.ResponseWriter, r *http.Request) (http.ResponseWriter, *http.Request, *requestInfo) {
	if info := infoFrom(r.Context()); info != nil {
		return w, r, info
	}
	info := &requestInfo{InstitutionID: PublicInstitution}
	ctx := context.WithValue(r.Context(), requestInfoKey, info)
	return &statusRecorder{ResponseWriter: w, info: info}, r.WithContext(ctx), info
}

// noteAssessment records the assessment a handler stored for this request.
func noteAssessment(ctx context.Context, assessmentID, cache string) {
	if info := infoFrom(ctx); info != nil {
		info.AssessmentID = assessmentID
		info.Cache = cache
	}
}

// InstitutionMiddleware reads the X-Institution-ID header into the request
// context. Anonymous callers share the public institution.
func InstitutionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		institutionID := r.Header.Get(InstitutionIDHeader)
		if institutionID == "" {
			institutionID = PublicInstitution
		}

		ctx := r.Context()
		if info := infoFrom(ctx); info != nil {
			info.InstitutionID = institutionID
		}
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("pulse.institution_id", institutionID))

		ctx = context.WithValue(ctx, InstitutionIDKey, institutionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TracingMiddleware opens a span per request, assigns the request and trace
// ids, and records the outcome on the span once the handler returns.
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w, r, info := withInfo(w, r)

		info.RequestID = r.Header.Get(RequestIDHeader)
		if info.RequestID == "" {
			info.RequestID = uuid.New().String()
		}

		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.path", r.URL.Path),
				attribute.String("request.id", info.RequestID),
			),
		)
		defer span.End()

		// Without a registered provider the span is a no-op and carries no trace id.
		info.TraceID = info.RequestID
		if sc := span.SpanContext(); sc.TraceID().IsValid() {
			info.TraceID = sc.TraceID().String()
		}

		w.Header().Set(RequestIDHeader, info.RequestID)
		w.Header().Set(TraceIDHeader, info.TraceID)

		next.ServeHTTP(w, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", info.Status))
		if info.AssessmentID != "" {
			span.SetAttributes(
				attribute.String("pulse.assessment_id", info.AssessmentID),
				attribute.String("pulse.cache", info.Cache),
			)
		}
		if info.Status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(info.Status))
		}
	})
}

// LoggingMiddleware writes one structured line per request. Server errors
// log at error level and client errors at warn.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		w, r, info := withInfo(w, r)

		next.ServeHTTP(w, r)

		level := slog.LevelInfo
		switch {
		case info.Status >= http.StatusInternalServerError:
			level = slog.LevelError
		case info.Status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", info.Status,
			"bytes", info.Bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"institution_id", info.InstitutionID,
			"request_id", info.RequestID,
			"trace_id", info.TraceID,
		}
		if info.AssessmentID != "" {
			attrs = append(attrs, "assessment_id", info.AssessmentID, "cache", info.Cache)
		}
		slog.Log(r.Context(), level, "http request", attrs...)
	})
}

// CORSMiddleware allows browser clients of the questionnaire frontend and
// exposes the headers they read after scoring.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", InstitutionIDHeader, RequestIDHeader, TraceIDHeader},
		ExposedHeaders: []string{
			RequestIDHeader,
			TraceIDHeader,
			AssessmentIDHeader,
			CacheHeader,
			"Retry-After",
		},
		AllowCredentials: false,
		MaxAge:           86400,
	})
}

// RecoverMiddleware turns a handler panic into a 500 JSON error. It runs
// inside tracing and logging so the failure is recorded by both.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				attrs := []any{"error", err, "path", r.URL.Path}
				if info := infoFrom(r.Context()); info != nil {
					attrs = append(attrs, "request_id", info.RequestID)
				}
				slog.Error("panic recovered", attrs...)
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"error": "internal server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// GetInstitutionID extracts institution ID from context.
func GetInstitutionID(ctx context.Context) string {
	if v, ok := ctx.Value(InstitutionIDKey).(string); ok {
		return v
	}
	return PublicInstitution
}

// GetTraceID extracts trace ID from context.
func GetTraceID(ctx context.Context) string {
	if info := infoFrom(ctx); info != nil {
		return info.TraceID
	}
	return ""
}
