package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-wellbeing/pulse/internal/advice"
	"github.com/opensource-wellbeing/pulse/internal/assess"
	"github.com/opensource-wellbeing/pulse/internal/attribution"
	"github.com/opensource-wellbeing/pulse/internal/domain"
	"github.com/opensource-wellbeing/pulse/internal/features"
	"github.com/opensource-wellbeing/pulse/internal/repository"
	"github.com/opensource-wellbeing/pulse/internal/scoring"
	"github.com/opensource-wellbeing/pulse/internal/worker"
)

// ResponseTTL is how long a scored response stays cached.
const ResponseTTL = time.Hour

// maxBodyBytes bounds a questionnaire submission.
const maxBodyBytes = 64 << 10

// Published model quality figures, used when the artifact carries none.
var defaultMetrics = scoring.Metadata{
	TotalSamples: 10000,
	RocAUC:       0.925,
	Accuracy:     0.851,
	F1Score:      0.732,
	LogLoss:      0.358,
}

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	processor *assess.Processor
	advice    *advice.Engine
	version   string
}

// NewHandler creates a new API handler. Repository, cache and bus are optional.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, processor *assess.Processor, adv *advice.Engine, version string) *Handler {
	return &Handler{
		repo:      repo,
		cache:     cache,
		bus:       bus,
		processor: processor,
		advice:    adv,
		version:   version,
	}
}

// errTrailingData rejects bodies carrying more than one JSON value.
var errTrailingData = errors.New("unexpected data after JSON value")

// decodePayload reads a questionnaire body. An empty body or a JSON null
// yields a nil payload; anything but a single JSON object is an error.
// Bodies over maxBodyBytes fail with *http.MaxBytesError.
func decodePayload(w http.ResponseWriter, r *http.Request) (domain.RawPayload, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload domain.RawPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return payload, nil
}

// writeDecodeError answers 413 for oversized bodies and 400 otherwise.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": "request body too large",
		})
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": "invalid JSON request body",
	})
}

// Predict handles POST /predict. The body is the assessment response itself.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	institutionID := GetInstitutionID(ctx)
	traceID := GetTraceID(ctx)

	payload, err := decodePayload(w, r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	if payload == nil {
		writeJSON(w, http.StatusBadRequest, h.processor.Assess(nil))
		return
	}

	answers := features.Parse(payload)
	key := assess.AnswersKey(answers)

	var resp *domain.Response
	cacheStatus := "MISS"
	if h.cache != nil && h.processor.Ready() {
		cached, err := h.cache.GetResponse(ctx, institutionID, key)
		if err != nil {
			slog.Warn("cache lookup failed", "error", err)
		}
		if cached != nil {
			resp = cached
			cacheStatus = "HIT"
		}
	}

	if resp == nil {
		resp = h.processor.AssessAnswers(answers)
		if resp.Failed() {
			slog.Error("assessment failed", "institution_id", institutionID, "error", resp.Error)
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetResponse(ctx, institutionID, key, resp, ResponseTTL); err != nil {
				slog.Warn("failed to cache response", "error", err)
			}
		}
	}

	a := domain.NewAssessment(uuid.New().String(), institutionID, traceID, answers, resp)
	if h.repo != nil {
		if err := h.repo.SaveAssessment(ctx, institutionID, a); err != nil {
			slog.Error("failed to save assessment", "assessment_id", a.ID, "error", err)
		}
	}
	worker.PublishOutcome(ctx, h.bus, a)

	slog.Debug("assessment scored",
		"assessment_id", a.ID,
		"institution_id", institutionID,
		"risk_level", resp.RiskLevel,
		"cache", cacheStatus,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	noteAssessment(ctx, a.ID, cacheStatus)
	w.Header().Set(AssessmentIDHeader, a.ID)
	w.Header().Set(CacheHeader, cacheStatus)
	writeJSON(w, http.StatusOK, resp)
}

// SubmitResponse is the response for POST /assessments.
type SubmitResponse struct {
	AssessmentID string `json:"assessmentId"`
	Status       string `json:"status"`
	TraceID      string `json:"traceId,omitempty"`
}

// Submit handles POST /assessments: the questionnaire is queued on the
// event bus and scored by a worker. Poll GET /assessments/{id} for the result.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	institutionID := GetInstitutionID(ctx)

	if h.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "event bus not available",
		})
		return
	}

	payload, err := decodePayload(w, r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	if payload == nil {
		writeJSON(w, http.StatusBadRequest, domain.ErrorResponse(domain.ErrMsgNoInput))
		return
	}

	ev := domain.SubmissionEvent{
		AssessmentID: uuid.New().String(),
		TraceID:      GetTraceID(ctx),
		Answers:      payload,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := h.bus.Publish(ctx, institutionID, domain.TopicAssessmentSubmitted, data); err != nil {
		slog.Error("failed to queue assessment", "assessment_id", ev.AssessmentID, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "failed to queue assessment",
		})
		return
	}

	noteAssessment(ctx, ev.AssessmentID, "")
	writeJSON(w, http.StatusAccepted, SubmitResponse{
		AssessmentID: ev.AssessmentID,
		Status:       "queued",
		TraceID:      ev.TraceID,
	})
}

// GetAssessment handles GET /assessments/{id}.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	institutionID := GetInstitutionID(ctx)
	id := chi.URLParam(r, "id")

	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "assessment id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	a, err := h.repo.GetAssessment(ctx, institutionID, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "assessment not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to get assessment", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load assessment",
		})
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// ListAssessments handles GET /assessments?limit=N, newest first.
func (h *Handler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	institutionID := GetInstitutionID(ctx)

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a non-negative integer",
			})
			return
		}
		limit = n
	}

	list, err := h.repo.ListAssessments(ctx, institutionID, limit)
	if err != nil {
		slog.Error("failed to list assessments", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list assessments",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assessments": list,
		"count":       len(list),
	})
}

// ModelMetrics summarizes model quality for the analytics view.
type ModelMetrics struct {
	Accuracy      float64 `json:"accuracy"`
	F1Score       float64 `json:"f1Score"`
	RocAUC        float64 `json:"rocAuc"`
	LogLoss       float64 `json:"logLoss"`
	TotalSamples  int     `json:"totalSamples"`
	FeaturesCount int     `json:"featuresCount"`
}

// NamedValue is one slice of the risk distribution.
type NamedValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// AnalyticsResponse is the response for GET /analytics.
type AnalyticsResponse struct {
	ModelMetrics     ModelMetrics              `json:"modelMetrics"`
	Coefficients     []attribution.GroupWeight `json:"coefficients"`
	RiskDistribution []NamedValue              `json:"riskDistribution"`
}

// Analytics handles GET /analytics.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	institutionID := GetInstitutionID(ctx)

	resp := AnalyticsResponse{
		ModelMetrics: h.modelMetrics(),
		Coefficients: []attribution.GroupWeight{},
	}

	if m := h.processor.Model(); m != nil {
		for i, label := range m.ClassLabels() {
			if label == h.processor.TargetClass() {
				resp.Coefficients = attribution.Summarize(m.Coefficients(i), attribution.Groups())
				break
			}
		}
	}

	counts := map[string]int{}
	if h.repo != nil {
		dist, err := h.repo.RiskDistribution(ctx, institutionID)
		if err != nil {
			slog.Error("failed to load risk distribution", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to load risk distribution",
			})
			return
		}
		counts = dist
	}
	for _, level := range []string{domain.LevelLow, domain.LevelMedium, domain.LevelHigh} {
		resp.RiskDistribution = append(resp.RiskDistribution, NamedValue{
			Name:  level + " Risk",
			Value: counts[level],
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) modelMetrics() ModelMetrics {
	meta := defaultMetrics
	if m, ok := h.processor.Model().(interface{ Metadata() *scoring.Metadata }); ok && m.Metadata() != nil {
		md := m.Metadata()
		if md.TotalSamples > 0 {
			meta.TotalSamples = md.TotalSamples
		}
		if md.RocAUC > 0 {
			meta.RocAUC = md.RocAUC
		}
		if md.Accuracy > 0 {
			meta.Accuracy = md.Accuracy
		}
		if md.F1Score > 0 {
			meta.F1Score = md.F1Score
		}
		if md.LogLoss > 0 {
			meta.LogLoss = md.LogLoss
		}
	}
	return ModelMetrics{
		Accuracy:      meta.Accuracy,
		F1Score:       meta.F1Score,
		RocAUC:        meta.RocAUC,
		LogLoss:       meta.LogLoss,
		TotalSamples:  meta.TotalSamples,
		FeaturesCount: features.Size(),
	}
}

// Model handles GET /model.
func (h *Handler) Model(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"loaded":      h.processor.Ready(),
		"features":    features.Names(),
		"targetClass": h.processor.TargetClass(),
		"classes":     []string{},
	}
	if m := h.processor.Model(); m != nil {
		resp["classes"] = m.ClassLabels()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListSuggestions handles GET /suggestions.
func (h *Handler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	rules := []domain.SuggestionRule{}
	if h.advice != nil {
		rules = h.advice.Rules()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// ValidateSuggestion handles POST /suggestions/validate. The rule is
// compiled but not loaded; rules are configured through the config file.
func (h *Handler) ValidateSuggestion(w http.ResponseWriter, r *http.Request) {
	var rule domain.SuggestionRule
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&rule); err != nil {
		writeDecodeError(w, err)
		return
	}

	if err := advice.Validate(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"id":    rule.ID,
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(ctx); err != nil {
			slog.Warn("repository ping failed", "error", err)
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			slog.Warn("cache ping failed", "error", err)
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(ctx); err != nil {
			slog.Warn("event bus ping failed", "error", err)
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      status,
		"version":     h.version,
		"modelLoaded": h.processor.Ready(),
	})
}

// Ready handles GET /ready. Not ready until a model is loaded.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.processor.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"ready": "false",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
