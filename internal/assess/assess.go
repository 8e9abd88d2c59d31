// Package assess assembles a full wellbeing assessment from a raw
// questionnaire: prediction, factor attribution and suggestions.
package assess

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/opensource-wellbeing/pulse/internal/advice"
	"github.com/opensource-wellbeing/pulse/internal/attribution"
	"github.com/opensource-wellbeing/pulse/internal/domain"
	"github.com/opensource-wellbeing/pulse/internal/features"
	"github.com/opensource-wellbeing/pulse/internal/scoring"
)

// ConfidenceExplanation accompanies every confidence level.
const ConfidenceExplanation = "Based on patterns learned from 10,000 student profiles, this logistic regression " +
	"model estimates relative risk. Prediction reflects statistical patterns, not diagnosis."

// ModelInfo is reported with every successful assessment.
var ModelInfo = domain.ModelInfo{TotalSamples: 10000, RocAUC: 0.925}

// Processor produces assessment responses.
// All collaborators are read-only, so one Processor serves concurrent callers.
type Processor struct {
	model       domain.LinearModel
	advice      *advice.Engine
	groups      []attribution.Group
	targetClass string
}

// NewProcessor creates a processor. A nil model makes every assessment
// report "Model not found".
func NewProcessor(model domain.LinearModel, adv *advice.Engine, targetClass string) *Processor {
	if targetClass == "" {
		targetClass = domain.DefaultTargetClass
	}
	return &Processor{
		model:       model,
		advice:      adv,
		groups:      attribution.Groups(),
		targetClass: targetClass,
	}
}

// Ready reports whether a model is loaded.
func (p *Processor) Ready() bool {
	return p.model != nil
}

// Model returns the loaded model, or nil.
func (p *Processor) Model() domain.LinearModel {
	return p.model
}

// TargetClass returns the configured high-risk class label.
func (p *Processor) TargetClass() string {
	return p.targetClass
}

// Assess scores a raw payload. A nil payload yields {"error":"No input"}.
// Failures are reported in the response, never as Go errors.
func (p *Processor) Assess(payload domain.RawPayload) *domain.Response {
	if payload == nil {
		return domain.ErrorResponse(domain.ErrMsgNoInput)
	}
	return p.AssessAnswers(features.Parse(payload))
}

// AssessAnswers scores answers that already carry their defaults.
func (p *Processor) AssessAnswers(answers domain.Answers) *domain.Response {
	if p.model == nil {
		return domain.ErrorResponse(domain.ErrMsgModelNotFound)
	}

	pred := scoring.Evaluate(p.model, features.Encode(answers), p.targetClass)
	attr := attribution.Attribute(pred.Scaled, p.model.Coefficients(pred.TargetIndex), p.groups, answers)

	improvements := []domain.Suggestion{}
	if p.advice != nil {
		improvements = p.advice.Recommend(answers)
	}

	return &domain.Response{
		RiskLevel:           pred.RiskLevel,
		RiskProbability:     attribution.Round2(pred.TargetProb * 100),
		ContributingFactors: attr.Contributing,
		ProtectiveFactors:   attr.Protective,
		Insights: &domain.Insights{
			Breakdown:             attr.Breakdown,
			Improvements:          improvements,
			Confidence:            pred.Confidence,
			ConfidenceExplanation: ConfidenceExplanation,
			Waterfall:             attr.Waterfall,
			ModelInfo:             ModelInfo,
		},
	}
}

// IsHighRisk reports whether a response should raise a high-risk event.
func IsHighRisk(resp *domain.Response) bool {
	return resp != nil && !resp.Failed() && resp.RiskLevel == domain.LevelHigh
}

// AnswersKey returns a stable digest of answers, used as a cache key.
func AnswersKey(a domain.Answers) string {
	data, _ := json.Marshal(a)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
