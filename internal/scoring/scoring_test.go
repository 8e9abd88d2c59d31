package scoring_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/opensource-wellbeing/pulse/internal/domain"
	"github.com/opensource-wellbeing/pulse/internal/features"
	"github.com/opensource-wellbeing/pulse/internal/scoring"
	"github.com/opensource-wellbeing/pulse/internal/scoring/scoringtest"
)

func TestLoad(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		path := scoringtest.WriteArtifact(t, t.TempDir(), scoringtest.Artifact())

		m, err := scoring.Load(path)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if len(m.ClassLabels()) != 4 {
			t.Errorf("expected 4 classes, got %d", len(m.ClassLabels()))
		}
		if m.Metadata() == nil || m.Metadata().TotalSamples != 10000 {
			t.Errorf("expected metadata to survive load, got %+v", m.Metadata())
		}
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := scoring.Load("")
		if !errors.Is(err, scoring.ErrModelNotFound) {
			t.Errorf("expected ErrModelNotFound, got %v", err)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := scoring.Load(filepath.Join(t.TempDir(), "absent.json"))
		if !errors.Is(err, scoring.ErrModelNotFound) {
			t.Errorf("expected ErrModelNotFound, got %v", err)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := scoring.Load(path)
		if err == nil || errors.Is(err, scoring.ErrModelNotFound) {
			t.Errorf("expected decode error, got %v", err)
		}
	})
}

func TestNewShapeValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *scoring.Artifact)
	}{
		{"ShortFeatures", func(a *scoring.Artifact) { a.Features = a.Features[:10] }},
		{"ReorderedFeatures", func(a *scoring.Artifact) { a.Features[0], a.Features[1] = a.Features[1], a.Features[0] }},
		{"ShortMean", func(a *scoring.Artifact) { a.Mean = a.Mean[:48] }},
		{"ShortScale", func(a *scoring.Artifact) { a.Scale = nil }},
		{"NoClasses", func(a *scoring.Artifact) { a.Classes = nil }},
		{"MissingCoefRow", func(a *scoring.Artifact) { a.Coef = a.Coef[:3] }},
		{"MissingIntercept", func(a *scoring.Artifact) { a.Intercept = a.Intercept[:2] }},
		{"ShortCoefRow", func(a *scoring.Artifact) { a.Coef[2] = a.Coef[2][:5] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := scoringtest.Artifact()
			tt.mutate(a)
			_, err := scoring.New(a)
			if !errors.Is(err, scoring.ErrShapeMismatch) {
				t.Errorf("expected ErrShapeMismatch, got %v", err)
			}
		})
	}
}

func TestStandardize(t *testing.T) {
	a := scoringtest.Artifact()
	a.Mean[0] = 20
	a.Scale[0] = 4
	a.Mean[1] = 3
	a.Scale[1] = 0

	m, err := scoring.New(a)
	if err != nil {
		t.Fatal(err)
	}

	x := make([]float64, features.Size())
	x[0] = 28
	x[1] = 5
	scaled := m.Standardize(x)

	if scaled[0] != 2 {
		t.Errorf("expected (28-20)/4 = 2, got %v", scaled[0])
	}
	// zero scale acts as 1
	if scaled[1] != 2 {
		t.Errorf("expected (5-3)/1 = 2, got %v", scaled[1])
	}
}

func TestModelIsolation(t *testing.T) {
	a := scoringtest.Artifact()
	m, err := scoring.New(a)
	if err != nil {
		t.Fatal(err)
	}

	a.Coef[3][0] = 99
	a.Classes[3] = "changed"

	if m.Coefficients(3)[0] != 0 {
		t.Error("model must not share coefficient storage with the artifact")
	}
	labels := m.ClassLabels()
	if labels[3] != "3" {
		t.Error("model must not share class labels with the artifact")
	}
	labels[3] = "mutated"
	if m.ClassLabels()[3] != "3" {
		t.Error("ClassLabels must return a copy")
	}
}

func TestSoftmax(t *testing.T) {
	t.Run("SumsToOne", func(t *testing.T) {
		p := scoring.Softmax([]float64{1, 2, 3, 4})
		var sum float64
		for _, v := range p {
			sum += v
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("expected sum 1, got %v", sum)
		}
		if !(p[3] > p[2] && p[2] > p[1] && p[1] > p[0]) {
			t.Errorf("expected increasing probabilities, got %v", p)
		}
	})

	t.Run("LargeScores", func(t *testing.T) {
		p := scoring.Softmax([]float64{1000, 1000})
		if math.IsNaN(p[0]) || math.Abs(p[0]-0.5) > 1e-12 {
			t.Errorf("expected 0.5 for equal large scores, got %v", p[0])
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if len(scoring.Softmax(nil)) != 0 {
			t.Error("expected empty output")
		}
	})
}

func TestTargetIndex(t *testing.T) {
	probs := []float64{0.1, 0.6, 0.2, 0.1}

	if got := scoring.TargetIndex([]string{"0", "1", "2", "3"}, "3", probs); got != 3 {
		t.Errorf("expected label position 3, got %d", got)
	}
	if got := scoring.TargetIndex([]string{"a", "b", "c", "d"}, "3", probs); got != 1 {
		t.Errorf("expected argmax fallback 1, got %d", got)
	}
}

func TestRiskLevel(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0, domain.LevelLow},
		{0.329999, domain.LevelLow},
		{0.33, domain.LevelMedium},
		{0.5, domain.LevelMedium},
		{0.659999, domain.LevelMedium},
		{0.66, domain.LevelHigh},
		{1, domain.LevelHigh},
	}

	for _, tt := range tests {
		if got := scoring.RiskLevel(tt.p); got != tt.want {
			t.Errorf("RiskLevel(%v) = %s, expected %s", tt.p, got, tt.want)
		}
	}
}

func TestConfidenceLevel(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0.25, domain.LevelLow},
		{0.549999, domain.LevelLow},
		{0.55, domain.LevelMedium},
		{0.749999, domain.LevelMedium},
		{0.75, domain.LevelHigh},
	}

	for _, tt := range tests {
		if got := scoring.ConfidenceLevel(tt.p); got != tt.want {
			t.Errorf("ConfidenceLevel(%v) = %s, expected %s", tt.p, got, tt.want)
		}
	}
}

func TestEvaluate(t *testing.T) {
	m := scoringtest.Model(t)

	t.Run("Defaults", func(t *testing.T) {
		pred := scoring.Evaluate(m, features.Canonicalize(domain.RawPayload{}), domain.DefaultTargetClass)

		if pred.TargetIndex != 3 {
			t.Errorf("expected target index 3, got %d", pred.TargetIndex)
		}
		if math.Abs(pred.TargetProb-0.25) > 1e-9 {
			t.Errorf("expected ~0.25, got %v", pred.TargetProb)
		}
		if pred.RiskLevel != domain.LevelLow {
			t.Errorf("expected Low risk, got %s", pred.RiskLevel)
		}
		if pred.Confidence != domain.LevelLow {
			t.Errorf("expected Low confidence, got %s", pred.Confidence)
		}
		if len(pred.Scaled) != features.Size() {
			t.Errorf("expected %d scaled values, got %d", features.Size(), len(pred.Scaled))
		}
	})

	t.Run("HighRisk", func(t *testing.T) {
		pred := scoring.Evaluate(m, features.Canonicalize(domain.RawPayload{
			"sleepHours":           4,
			"sleepIssues":          5,
			"outdoorActivity":      0,
			"stressLevel":          5,
			"studyHours":           8,
			"academicPressure":     5,
			"institutionalSupport": 1,
			"talkTo":               "None",
			"hopelessness":         5,
		}), domain.DefaultTargetClass)

		if pred.RiskLevel != domain.LevelHigh {
			t.Errorf("expected High risk, got %s (p=%v)", pred.RiskLevel, pred.TargetProb)
		}
		if pred.Confidence != domain.LevelHigh {
			t.Errorf("expected High confidence, got %s", pred.Confidence)
		}
		if pred.MaxProb != pred.TargetProb {
			t.Errorf("expected target class to be most probable")
		}
	})

	t.Run("MissingTargetLabel", func(t *testing.T) {
		a := scoringtest.Artifact()
		a.Intercept = []float64{0, 2, 0, 0}
		a.Coef[3] = make([]float64, features.Size())
		lm, err := scoring.New(a)
		if err != nil {
			t.Fatal(err)
		}

		pred := scoring.Evaluate(lm, features.Canonicalize(domain.RawPayload{}), "high")
		if pred.TargetIndex != 1 {
			t.Errorf("expected argmax fallback to class 1, got %d", pred.TargetIndex)
		}
		if pred.TargetProb != pred.MaxProb {
			t.Errorf("expected fallback probability to equal max probability")
		}
	})
}
