package domain

import (
	"encoding/json"
	"time"
)

// RawPayload is a questionnaire submission as received.
// No key is required; every field has a documented default.
type RawPayload map[string]any

// Answers is a questionnaire submission with defaults applied.
// Values are exactly as submitted: ratings are not clamped here and
// categorical selections are not validated.
type Answers struct {
	// Lifestyle
	Age             int `json:"age"`
	StudyHours      int `json:"studyHours"`
	SleepHours      int `json:"sleepHours"`
	ScreenTime      int `json:"screenTime"`
	OutdoorActivity int `json:"outdoorActivity"`

	// Personal & support
	Gender        string `json:"gender"`
	AcademicLevel string `json:"academicLevel"`
	TalkTo        string `json:"talkTo"`
	Openness      string `json:"openness"`

	// Psychological scales (nominally 1-5)
	AcademicPressure     int `json:"academicPressure"`
	StressLevel          int `json:"stressLevel"`
	SleepIssues          int `json:"sleepIssues"`
	Hopelessness         int `json:"hopelessness"`
	FinancialComfort     int `json:"financialComfort"`
	InstitutionalSupport int `json:"institutionalSupport"`
}

// Risk and confidence levels.
const (
	LevelLow    = "Low"
	LevelMedium = "Medium"
	LevelHigh   = "High"
)

// Breakdown item types.
const (
	ImpactRisk       = "Risk"
	ImpactProtective = "Protective"
)

// NoneIdentified is reported when no factor group pushes in a direction.
const NoneIdentified = "None identified"

// Error messages returned in data-shaped error responses.
const (
	ErrMsgNoInput       = "No input"
	ErrMsgModelNotFound = "Model not found"
)

// Response is the assessment result returned to callers.
// When Error is set the response serializes to {"error": "..."} only.
type Response struct {
	Error string `json:"error,omitempty"`

	RiskLevel           string    `json:"riskLevel"`
	RiskProbability     float64   `json:"riskProbability"` // 0-100, 2 decimals
	ContributingFactors []string  `json:"contributingFactors"`
	ProtectiveFactors   []string  `json:"protectiveFactors"`
	Insights            *Insights `json:"insights"`
}

// Insights explains a score.
type Insights struct {
	Breakdown             []BreakdownItem `json:"breakdown"`
	Improvements          []Suggestion    `json:"improvements"`
	Confidence            string          `json:"confidence"`
	ConfidenceExplanation string          `json:"confidenceExplanation"`
	Waterfall             []WaterfallItem `json:"waterfall"`
	ModelInfo             ModelInfo       `json:"modelInfo"`
}

// BreakdownItem describes one factor group's share of the score.
type BreakdownItem struct {
	Feature     string  `json:"feature"`
	UserValue   string  `json:"userValue"`
	Impact      float64 `json:"impact"` // absolute percent
	Type        string  `json:"type"`   // "Risk" or "Protective"
	Explanation string  `json:"explanation"`
}

// WaterfallItem is a signed percentage contribution of one factor group.
type WaterfallItem struct {
	Factor string  `json:"factor"`
	Impact float64 `json:"impact"`
}

// Suggestion is a concrete action derived from raw answers.
type Suggestion struct {
	Problem string `json:"problem"`
	Why     string `json:"why"`
	Action  string `json:"action"`
}

// ModelInfo is static metadata about the trained model.
type ModelInfo struct {
	TotalSamples int     `json:"totalSamples"`
	RocAUC       float64 `json:"rocAuc"`
}

// ErrorResponse builds a data-shaped error result.
func ErrorResponse(msg string) *Response {
	return &Response{Error: msg}
}

// Failed reports whether the response carries an error instead of a score.
func (r *Response) Failed() bool {
	return r.Error != ""
}

// MarshalJSON emits only the error key for failed responses.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	}
	type plain Response
	return json.Marshal(plain(r))
}

// Assessment is a persisted, scored questionnaire submission.
type Assessment struct {
	ID              string    `json:"id"`
	InstitutionID   string    `json:"institutionId"`
	Answers         Answers   `json:"answers"`
	RiskLevel       string    `json:"riskLevel"`
	RiskProbability float64   `json:"riskProbability"`
	Confidence      string    `json:"confidence"`
	Response        *Response `json:"response"`
	TraceID         string    `json:"traceId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// NewAssessment records a successful response for the given answers.
func NewAssessment(id, institutionID, traceID string, answers Answers, resp *Response) *Assessment {
	a := &Assessment{
		ID:              id,
		InstitutionID:   institutionID,
		Answers:         answers,
		RiskLevel:       resp.RiskLevel,
		RiskProbability: resp.RiskProbability,
		Response:        resp,
		TraceID:         traceID,
		CreatedAt:       time.Now().UTC(),
	}
	if resp.Insights != nil {
		a.Confidence = resp.Insights.Confidence
	}
	return a
}
