// Benchmark tool for load testing Pulse and checking it against labelled surveys.
//
// Usage:
//
//	go run ./cmd/benchmark --url http://localhost:8080 --file surveys.jsonl
//	go run ./cmd/benchmark --url http://localhost:8080 --count 5000 --seed 7
//
// This tool:
//  1. Reads questionnaires from a JSON-lines file, or generates random ones
//  2. Sends each questionnaire to POST /predict
//  3. Tallies the returned risk levels and latency
//  4. When lines carry an "atRisk" label, compares High verdicts against it
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// Survey is one questionnaire plus its optional ground-truth label.
type Survey struct {
	Answers map[string]any
	AtRisk  *bool
}

// PredictResponse is the subset of the Pulse response the benchmark reads.
type PredictResponse struct {
	Error           string  `json:"error"`
	RiskLevel       string  `json:"riskLevel"`
	RiskProbability float64 `json:"riskProbability"`
}

// Metrics tracks benchmark results
type Metrics struct {
	Low    int64
	Medium int64
	High   int64

	TruePositives  int64 // at-risk flagged High
	FalsePositives int64 // not at-risk flagged High
	TrueNegatives  int64 // not at-risk below High
	FalseNegatives int64 // at-risk below High

	TotalProcessed int64
	TotalLabelled  int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "load test a running Pulse server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Pulse base URL"},
			&cli.StringFlag{Name: "institution", Value: "benchmark-test", Usage: "institution ID for requests"},
			&cli.StringFlag{Name: "file", Usage: "JSON-lines file of questionnaires"},
			&cli.IntFlag{Name: "count", Value: 1000, Usage: "random questionnaires to generate when no file is given"},
			&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "seed for generated questionnaires"},
			&cli.IntFlag{Name: "workers", Value: 10, Usage: "number of concurrent workers"},
			&cli.BoolFlag{Name: "verbose", Usage: "print each result"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	baseURL := cmd.String("url")
	institutionID := cmd.String("institution")

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║             PULSE BENCHMARK - Wellbeing Scoring               ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nPulse URL:    %s\n", baseURL)
	fmt.Printf("Institution:  %s\n", institutionID)
	fmt.Printf("Workers:      %d\n", cmd.Int("workers"))
	fmt.Println()

	if err := checkReady(ctx, baseURL); err != nil {
		fmt.Println("\nMake sure Pulse is running with a model:")
		fmt.Println("  PULSE_MODEL_PATH=./models/wellbeing-lr.json go run ./cmd/pulse serve")
		return fmt.Errorf("pulse not ready at %s: %w", baseURL, err)
	}
	fmt.Println("✓ Pulse is ready")

	var surveys []Survey
	if path := cmd.String("file"); path != "" {
		var err error
		if surveys, err = readSurveys(path); err != nil {
			return fmt.Errorf("failed to read surveys: %w", err)
		}
		fmt.Printf("✓ Loaded %d questionnaires from %s\n", len(surveys), path)
	} else {
		surveys = generateSurveys(int(cmd.Int("count")), cmd.Uint64("seed"))
		fmt.Printf("✓ Generated %d questionnaires\n", len(surveys))
	}

	fmt.Printf("\nRunning benchmark...\n")
	startTime := time.Now()
	metrics, err := runBenchmark(ctx, surveys, baseURL, institutionID, int(cmd.Int("workers")), cmd.Bool("verbose"))
	if err != nil {
		return err
	}
	printResults(metrics, time.Since(startTime))
	return nil
}

func checkReady(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/ready", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("not ready: status %d", resp.StatusCode)
	}
	return nil
}

func readSurveys(path string) ([]Survey, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var surveys []Survey
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var answers map[string]any
		if err := json.Unmarshal(line, &answers); err != nil {
			continue // Skip malformed rows
		}
		s := Survey{Answers: answers}
		if label, ok := answers["atRisk"].(bool); ok {
			s.AtRisk = &label
			delete(answers, "atRisk")
		}
		surveys = append(surveys, s)
	}
	return surveys, scanner.Err()
}

func generateSurveys(n int, seed uint64) []Survey {
	r := rand.New(rand.NewPCG(seed, seed^0x5eed))
	pick := func(opts ...string) string { return opts[r.IntN(len(opts))] }
	rating := func() int { return 1 + r.IntN(5) }

	surveys := make([]Survey, n)
	for i := range surveys {
		surveys[i].Answers = map[string]any{
			"age":                  17 + r.IntN(14),
			"studyHours":           r.IntN(13),
			"sleepHours":           3 + r.IntN(7),
			"screenTime":           1 + r.IntN(12),
			"outdoorActivity":      r.IntN(6),
			"gender":               pick("Male", "Female", "Other"),
			"academicLevel":        pick("High School", "Undergraduate", "Postgraduate"),
			"talkTo":               pick("Family", "Friends", "Counselor", "None"),
			"openness":             pick("Yes", "Maybe", "No"),
			"academicPressure":     rating(),
			"stressLevel":          rating(),
			"sleepIssues":          rating(),
			"hopelessness":         rating(),
			"financialComfort":     rating(),
			"institutionalSupport": rating(),
		}
	}
	return surveys
}

func runBenchmark(ctx context.Context, surveys []Survey, baseURL, institutionID string, numWorkers int, verbose bool) (*Metrics, error) {
	metrics := &Metrics{}
	client := &http.Client{Timeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)

	for i, s := range surveys {
		g.Go(func() error {
			start := time.Now()
			result, err := predict(gctx, client, baseURL, institutionID, s.Answers)
			atomic.AddInt64(&metrics.ProcessingTimeMs, time.Since(start).Milliseconds())
			atomic.AddInt64(&metrics.TotalProcessed, 1)

			if err != nil {
				atomic.AddInt64(&metrics.TotalErrors, 1)
				if verbose {
					fmt.Printf("ERROR: #%d -> %v\n", i, err)
				}
				return nil
			}

			switch result.RiskLevel {
			case "Low":
				atomic.AddInt64(&metrics.Low, 1)
			case "Medium":
				atomic.AddInt64(&metrics.Medium, 1)
			case "High":
				atomic.AddInt64(&metrics.High, 1)
			}

			status := " "
			if s.AtRisk != nil {
				atomic.AddInt64(&metrics.TotalLabelled, 1)
				predicted := result.RiskLevel == "High"
				actual := *s.AtRisk

				switch {
				case predicted && actual:
					atomic.AddInt64(&metrics.TruePositives, 1)
				case predicted && !actual:
					atomic.AddInt64(&metrics.FalsePositives, 1)
				case !predicted && !actual:
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				default:
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				status = "✓"
				if predicted != actual {
					status = "✗"
				}
			}

			if verbose {
				fmt.Printf("%s #%-6d | Level: %-6s | Probability: %6.2f\n",
					status, i, result.RiskLevel, result.RiskProbability)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return metrics, nil
}

func predict(ctx context.Context, client *http.Client, baseURL, institutionID string, answers map[string]any) (*PredictResponse, error) {
	body, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Institution-ID", institutionID)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, result.Error)
	}
	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 RISK DISTRIBUTION\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Low:              %d\n", m.Low)
	fmt.Printf("   Medium:           %d\n", m.Medium)
	fmt.Printf("   High:             %d\n", m.High)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	if m.TotalLabelled > 0 {
		fmt.Printf("\n📈 CONFUSION MATRIX (%d labelled)\n", m.TotalLabelled)
		fmt.Println("                        Predicted")
		fmt.Println("                    High       Other")
		fmt.Println("              ┌──────────┬──────────┐")
		fmt.Printf("   Actual  R  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
		fmt.Println("              ├──────────┼──────────┤")
		fmt.Printf("          NR  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
		fmt.Println("              └──────────┴──────────┘")

		precision := ratio(m.TruePositives, m.TruePositives+m.FalsePositives)
		recall := ratio(m.TruePositives, m.TruePositives+m.FalseNegatives)
		f1 := float64(0)
		if precision+recall > 0 {
			f1 = 2 * (precision * recall) / (precision + recall)
		}
		accuracy := ratio(m.TruePositives+m.TrueNegatives, m.TotalLabelled)

		fmt.Printf("\n🎯 SCREENING METRICS\n")
		fmt.Printf("   Precision:  %.4f  (of High verdicts, how many were at risk)\n", precision)
		fmt.Printf("   Recall:     %.4f  (of at-risk students, how many were flagged)\n", recall)
		fmt.Printf("   F1-Score:   %.4f\n", f1)
		fmt.Printf("   Accuracy:   %.4f\n", accuracy)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		rps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f req/sec\n", rps)
	}
	fmt.Println()
}

func ratio(n, d int64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
