// Package scoring loads the trained linear classifier and turns feature
// vectors into risk probabilities.
package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/opensource-wellbeing/pulse/internal/features"
)

var (
	// ErrModelNotFound is returned when the artifact path is empty or missing.
	ErrModelNotFound = errors.New("model not found")

	// ErrShapeMismatch is returned when artifact dimensions disagree with the
	// feature schema or with each other.
	ErrShapeMismatch = errors.New("model shape mismatch")
)

// Metadata describes how the artifact was trained.
type Metadata struct {
	TotalSamples int     `json:"totalSamples"`
	RocAUC       float64 `json:"rocAuc"`
	Accuracy     float64 `json:"accuracy,omitempty"`
	F1Score      float64 `json:"f1Score,omitempty"`
	LogLoss      float64 `json:"logLoss,omitempty"`
}

// Artifact is the on-disk JSON form of a fitted scaler + multinomial
// logistic regression pipeline.
type Artifact struct {
	Features  []string    `json:"features"`
	Mean      []float64   `json:"mean"`
	Scale     []float64   `json:"scale"`
	Classes   []string    `json:"classes"`
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
	Metadata  *Metadata   `json:"metadata,omitempty"`
}

// Linear is an immutable, validated linear model.
// It implements domain.LinearModel and is safe for concurrent use.
type Linear struct {
	mean      []float64
	scale     []float64
	classes   []string
	coef      [][]float64
	intercept []float64
	meta      *Metadata
}

// Load reads and validates a JSON model artifact.
func Load(path string) (*Linear, error) {
	if path == "" {
		return nil, ErrModelNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("failed to read model: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", path, err)
	}

	return New(&a)
}

// New validates an artifact and builds a Linear model from it.
func New(a *Artifact) (*Linear, error) {
	names := features.Names()
	n := len(names)

	if len(a.Features) != n {
		return nil, fmt.Errorf("%w: %d features, schema has %d", ErrShapeMismatch, len(a.Features), n)
	}
	for i, name := range names {
		if a.Features[i] != name {
			return nil, fmt.Errorf("%w: feature %d is %q, expected %q", ErrShapeMismatch, i, a.Features[i], name)
		}
	}
	if len(a.Mean) != n || len(a.Scale) != n {
		return nil, fmt.Errorf("%w: mean/scale length %d/%d, expected %d", ErrShapeMismatch, len(a.Mean), len(a.Scale), n)
	}

	k := len(a.Classes)
	if k == 0 {
		return nil, fmt.Errorf("%w: no classes", ErrShapeMismatch)
	}
	if len(a.Coef) != k || len(a.Intercept) != k {
		return nil, fmt.Errorf("%w: %d classes, %d coef rows, %d intercepts", ErrShapeMismatch, k, len(a.Coef), len(a.Intercept))
	}
	for i, row := range a.Coef {
		if len(row) != n {
			return nil, fmt.Errorf("%w: coef row %d has %d weights, expected %d", ErrShapeMismatch, i, len(row), n)
		}
	}

	m := &Linear{
		mean:      append([]float64(nil), a.Mean...),
		scale:     make([]float64, n),
		classes:   append([]string(nil), a.Classes...),
		coef:      make([][]float64, k),
		intercept: append([]float64(nil), a.Intercept...),
		meta:      a.Metadata,
	}
	for i, s := range a.Scale {
		// A fitted standard scaler stores 1 for constant features.
		if s == 0 {
			s = 1
		}
		m.scale[i] = s
	}
	for i, row := range a.Coef {
		m.coef[i] = append([]float64(nil), row...)
	}

	return m, nil
}

// Standardize returns (x[i] - mean[i]) / scale[i] for every feature.
func (m *Linear) Standardize(x []float64) []float64 {
	out := make([]float64, len(m.mean))
	for i := range out {
		out[i] = (x[i] - m.mean[i]) / m.scale[i]
	}
	return out
}

// ScoreByClass returns dot(scaled, coef[k]) + intercept[k] for every class.
func (m *Linear) ScoreByClass(scaled []float64) []float64 {
	out := make([]float64, len(m.classes))
	for k, row := range m.coef {
		s := m.intercept[k]
		for i, w := range row {
			s += scaled[i] * w
		}
		out[k] = s
	}
	return out
}

// ClassLabels returns a copy of the class labels.
func (m *Linear) ClassLabels() []string {
	return append([]string(nil), m.classes...)
}

// Coefficients returns a copy of the weight vector of class k.
func (m *Linear) Coefficients(k int) []float64 {
	return append([]float64(nil), m.coef[k]...)
}

// Metadata returns training metadata when the artifact carried it.
func (m *Linear) Metadata() *Metadata {
	return m.meta
}
