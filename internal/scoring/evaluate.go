package scoring

import (
	"math"

	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// Risk and confidence thresholds. Lower bounds are inclusive.
const (
	HighRiskThreshold   = 0.66
	MediumRiskThreshold = 0.33

	HighConfidenceThreshold   = 0.75
	MediumConfidenceThreshold = 0.55
)

// Prediction is the outcome of scoring one feature vector.
type Prediction struct {
	Probabilities []float64 // one per class, in model class order
	Scaled        []float64 // standardized feature vector
	TargetIndex   int       // class whose probability is reported as risk
	TargetProb    float64
	MaxProb       float64
	RiskLevel     string
	Confidence    string
}

// Evaluate standardizes x, computes class probabilities and picks the target
// class. When targetClass is not among the model labels the most probable
// class is used instead.
func Evaluate(m domain.LinearModel, x []float64, targetClass string) *Prediction {
	scaled := m.Standardize(x)
	probs := Softmax(m.ScoreByClass(scaled))

	target := TargetIndex(m.ClassLabels(), targetClass, probs)
	maxP := probs[argmax(probs)]

	return &Prediction{
		Probabilities: probs,
		Scaled:        scaled,
		TargetIndex:   target,
		TargetProb:    probs[target],
		MaxProb:       maxP,
		RiskLevel:     RiskLevel(probs[target]),
		Confidence:    ConfidenceLevel(maxP),
	}
}

// Softmax converts class scores to probabilities.
func Softmax(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	peak := scores[argmax(scores)]
	var sum float64
	for i, s := range scores {
		e := math.Exp(s - peak)
		out[i] = e
		sum += e
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// TargetIndex returns the position of label in labels, or the argmax of
// probs when the label is absent.
func TargetIndex(labels []string, label string, probs []float64) int {
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	return argmax(probs)
}

// RiskLevel maps the target probability to Low, Medium or High.
func RiskLevel(p float64) string {
	switch {
	case p >= HighRiskThreshold:
		return domain.LevelHigh
	case p >= MediumRiskThreshold:
		return domain.LevelMedium
	default:
		return domain.LevelLow
	}
}

// ConfidenceLevel maps the largest class probability to Low, Medium or High.
func ConfidenceLevel(maxP float64) string {
	switch {
	case maxP >= HighConfidenceThreshold:
		return domain.LevelHigh
	case maxP >= MediumConfidenceThreshold:
		return domain.LevelMedium
	default:
		return domain.LevelLow
	}
}

// argmax returns the first index of the largest value.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
