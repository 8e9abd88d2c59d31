// Package scoringtest provides a small hand-weighted model for tests.
//
// Means are 0 and scales are 1, so the standardized vector equals the raw
// one. Only the high-risk class "3" carries weights; the other classes
// score 0. With the default answers the class-3 score is 0 (up to float
// rounding), which yields a near-uniform 0.25 probability per class.
package scoringtest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/opensource-wellbeing/pulse/internal/features"
	"github.com/opensource-wellbeing/pulse/internal/scoring"
)

// TargetWeights are the non-zero class-3 weights.
var TargetWeights = map[string]float64{
	"Sleep_Hours":     -0.5,
	"Sleep_Issue_5":   1.0,
	"Outdoor_Acts":    -0.3,
	"Stress_Level_4":  1.0,
	"Stress_Level_5":  2.0,
	"Study_Hours":     0.1,
	"Acad_Pressure_5": 1.0,
	"Inst_Support_1":  0.5,
	"Inst_Support_5":  -1.0,
	"Talk_None":       0.5,
	"Talk_Counselor":  -0.5,
	"Hopelessness_5":  1.5,
}

// TargetIntercept offsets the default answers to a class-3 score of 0.
const TargetIntercept = 3.3

// Artifact returns a fresh artifact with classes "0".."3".
func Artifact() *scoring.Artifact {
	names := features.Names()
	n := len(names)

	a := &scoring.Artifact{
		Features:  names,
		Mean:      make([]float64, n),
		Scale:     make([]float64, n),
		Classes:   []string{"0", "1", "2", "3"},
		Coef:      make([][]float64, 4),
		Intercept: []float64{0, 0, 0, TargetIntercept},
		Metadata:  &scoring.Metadata{TotalSamples: 10000, RocAUC: 0.925},
	}
	for i := range a.Scale {
		a.Scale[i] = 1
	}
	for k := range a.Coef {
		a.Coef[k] = make([]float64, n)
	}
	for name, w := range TargetWeights {
		i, _ := features.Index(name)
		a.Coef[3][i] = w
	}
	return a
}

// Model returns the validated test model.
func Model(tb testing.TB) *scoring.Linear {
	tb.Helper()
	m, err := scoring.New(Artifact())
	if err != nil {
		tb.Fatalf("failed to build test model: %v", err)
	}
	return m
}

// WriteArtifact writes a JSON artifact into dir and returns its path.
func WriteArtifact(tb testing.TB, dir string, a *scoring.Artifact) string {
	tb.Helper()
	data, err := json.Marshal(a)
	if err != nil {
		tb.Fatalf("failed to encode artifact: %v", err)
	}
	path := filepath.Join(dir, "model.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		tb.Fatalf("failed to write artifact: %v", err)
	}
	return path
}
