//go:build integration
// +build integration

// Package integration provides end-to-end tests against a running Pulse server.
//
// These tests verify the complete scoring pipeline:
//
//	Questionnaire → Feature vector → Linear model → Factor groups → Suggestions
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// The server must be started with a model artifact, for example:
//
//	PULSE_MODEL_PATH=./models/wellbeing-lr.json pulse serve
//
// UNDERSTANDING THE DOMAIN:
//
//  1. QUESTIONNAIRE: fifteen answers covering lifestyle, support and
//     psychological ratings. Every field has a default, so {} is valid.
//
//  2. RISK: the probability of the high-risk class, reported as 0-100.
//     Below 33 is Low, below 66 is Medium, otherwise High.
//
//  3. FACTOR GROUPS: Sleep, Outdoor Activity, Stress, Academic Pressure,
//     Support and Other. Their signed shares of the score form the waterfall.
//
//  4. SUGGESTIONS: concrete actions triggered directly by the raw answers.
package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

// TestConfig holds test environment configuration
type TestConfig struct {
	BaseURL       string
	InstitutionID string
}

func getTestConfig() TestConfig {
	baseURL := os.Getenv("PULSE_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return TestConfig{
		BaseURL:       baseURL,
		InstitutionID: "integration-uni",
	}
}

// PredictResponse is what POST /predict returns
type PredictResponse struct {
	Error               string   `json:"error"`
	RiskLevel           string   `json:"riskLevel"`
	RiskProbability     float64  `json:"riskProbability"`
	ContributingFactors []string `json:"contributingFactors"`
	ProtectiveFactors   []string `json:"protectiveFactors"`
	Insights            struct {
		Breakdown []struct {
			Feature string  `json:"feature"`
			Impact  float64 `json:"impact"`
			Type    string  `json:"type"`
		} `json:"breakdown"`
		Improvements []struct {
			Problem string `json:"problem"`
		} `json:"improvements"`
		Confidence string `json:"confidence"`
		Waterfall  []struct {
			Factor string  `json:"factor"`
			Impact float64 `json:"impact"`
		} `json:"waterfall"`
	} `json:"insights"`
}

func post(t *testing.T, config TestConfig, path, body string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, config.BaseURL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Institution-ID", config.InstitutionID)

	return do(t, req)
}

func get(t *testing.T, config TestConfig, path string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, config.BaseURL+path, nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("X-Institution-ID", config.InstitutionID)

	return do(t, req)
}

func do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return resp, body
}

func predict(t *testing.T, config TestConfig, payload map[string]any) (PredictResponse, string) {
	t.Helper()

	body, _ := json.Marshal(payload)
	resp, respBody := post(t, config, "/predict", string(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, string(respBody))
	}

	var result PredictResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v (body: %s)", err, string(respBody))
	}
	return result, resp.Header.Get("X-Assessment-ID")
}

// ============================================================================
// SCENARIO 1: Empty questionnaire scores with defaults
// ============================================================================

func TestDefaults_ResponseShape(t *testing.T) {
	config := getTestConfig()

	result, id := predict(t, config, map[string]any{})

	switch result.RiskLevel {
	case "Low", "Medium", "High":
	default:
		t.Errorf("Unexpected risk level %q", result.RiskLevel)
	}
	if result.RiskProbability < 0 || result.RiskProbability > 100 {
		t.Errorf("Risk probability out of range: %v", result.RiskProbability)
	}
	if len(result.ContributingFactors) == 0 || len(result.ContributingFactors) > 3 {
		t.Errorf("Expected 1-3 contributing factors, got %v", result.ContributingFactors)
	}
	if len(result.Insights.Breakdown) > 8 {
		t.Errorf("Breakdown exceeds 8 items: %d", len(result.Insights.Breakdown))
	}
	if id == "" {
		t.Error("Expected X-Assessment-ID header")
	}

	var sum float64
	for _, w := range result.Insights.Waterfall {
		sum += math.Abs(w.Impact)
	}
	if sum != 0 && math.Abs(sum-100) > 0.03 {
		t.Errorf("Waterfall magnitudes should sum to 100, got %v", sum)
	}

	t.Logf("✓ Defaults: level=%s, probability=%.2f", result.RiskLevel, result.RiskProbability)
}

// ============================================================================
// SCENARIO 2: Distressed student scores higher than the defaults
// ============================================================================

func TestDistressedStudent_HigherRisk(t *testing.T) {
	config := getTestConfig()

	baseline, _ := predict(t, config, map[string]any{})
	distressed, _ := predict(t, config, map[string]any{
		"sleepHours":           4,
		"sleepIssues":          5,
		"stressLevel":          5,
		"academicPressure":     5,
		"hopelessness":         5,
		"institutionalSupport": 1,
		"talkTo":               "None",
		"outdoorActivity":      0,
		"screenTime":           10,
	})

	if distressed.RiskProbability <= baseline.RiskProbability {
		t.Errorf("Expected distressed answers to raise risk: %.2f <= %.2f",
			distressed.RiskProbability, baseline.RiskProbability)
	}
	if len(distressed.Insights.Improvements) != 4 {
		t.Errorf("Expected all four suggestions, got %d", len(distressed.Insights.Improvements))
	}

	t.Logf("✓ Distressed: %.2f vs baseline %.2f", distressed.RiskProbability, baseline.RiskProbability)
}

// ============================================================================
// SCENARIO 3: Identical answers give identical output
// ============================================================================

func TestIdempotence(t *testing.T) {
	config := getTestConfig()
	payload := `{"age":23,"sleepHours":6,"stressLevel":4,"gender":"Female"}`

	_, first := post(t, config, "/predict", payload)
	_, second := post(t, config, "/predict", payload)

	if !bytes.Equal(first, second) {
		t.Errorf("Expected identical bodies:\n%s\n%s", first, second)
	}
}

// ============================================================================
// SCENARIO 4: Missing input is a data-shaped error
// ============================================================================

func TestMissingInput(t *testing.T) {
	config := getTestConfig()

	resp, body := post(t, config, "/predict", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
	if got := strings.TrimSpace(string(body)); got != `{"error":"No input"}` {
		t.Errorf("Unexpected body %s", got)
	}
}

// ============================================================================
// SCENARIO 5: Scored assessments are stored and counted
// ============================================================================

func TestStoredAssessment(t *testing.T) {
	config := getTestConfig()

	result, id := predict(t, config, map[string]any{"sleepHours": 8})

	resp, body := get(t, config, "/assessments/"+id)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, string(body))
	}

	var stored struct {
		ID        string `json:"id"`
		RiskLevel string `json:"riskLevel"`
	}
	if err := json.Unmarshal(body, &stored); err != nil {
		t.Fatalf("Failed to unmarshal assessment: %v", err)
	}
	if stored.ID != id || stored.RiskLevel != result.RiskLevel {
		t.Errorf("Stored assessment does not match: %+v", stored)
	}

	resp, body = get(t, config, "/analytics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var analytics struct {
		RiskDistribution []struct {
			Name  string `json:"name"`
			Value int    `json:"value"`
		} `json:"riskDistribution"`
	}
	json.Unmarshal(body, &analytics)

	total := 0
	for _, d := range analytics.RiskDistribution {
		total += d.Value
	}
	if total == 0 {
		t.Error("Expected stored assessments in the risk distribution")
	}
}
