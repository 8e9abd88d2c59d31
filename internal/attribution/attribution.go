package attribution

import (
	"math"
	"sort"
	"strconv"

	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// Output limits.
const (
	MaxFactors   = 3
	MaxBreakdown = 8
)

// Result is the grouped explanation of one score.
type Result struct {
	Waterfall    []domain.WaterfallItem
	Contributing []string
	Protective   []string
	Breakdown    []domain.BreakdownItem
}

// Contributions returns scaled[i] * coef[i] for every feature.
func Contributions(scaled, coef []float64) []float64 {
	out := make([]float64, len(scaled))
	for i := range scaled {
		out[i] = scaled[i] * coef[i]
	}
	return out
}

// Attribute explains a score through the target class coefficients.
// Impacts are signed percentages of the total absolute group contribution,
// rounded to 2 decimals.
func Attribute(scaled, coef []float64, groups []Group, answers domain.Answers) *Result {
	contrib := Contributions(scaled, coef)

	sums := make([]float64, len(groups))
	var total float64
	for gi, g := range groups {
		for _, i := range g.Indices {
			sums[gi] += contrib[i]
		}
		total += math.Abs(sums[gi])
	}
	if total == 0 {
		total = 1
	}

	waterfall := make([]domain.WaterfallItem, len(groups))
	for gi, g := range groups {
		waterfall[gi] = domain.WaterfallItem{
			Factor: g.Name,
			Impact: Round2(sums[gi] / total * 100),
		}
	}

	return &Result{
		Waterfall:    waterfall,
		Contributing: topFactors(waterfall, func(v float64) bool { return v > 0 }, func(a, b float64) bool { return a > b }),
		Protective:   topFactors(waterfall, func(v float64) bool { return v < 0 }, func(a, b float64) bool { return a < b }),
		Breakdown:    breakdown(waterfall, answers),
	}
}

// topFactors filters by keep, orders by less and returns up to MaxFactors
// names, or NoneIdentified when nothing qualifies.
func topFactors(items []domain.WaterfallItem, keep func(float64) bool, less func(a, b float64) bool) []string {
	picked := make([]domain.WaterfallItem, 0, len(items))
	for _, w := range items {
		if keep(w.Impact) {
			picked = append(picked, w)
		}
	}
	if len(picked) == 0 {
		return []string{domain.NoneIdentified}
	}

	sort.SliceStable(picked, func(i, j int) bool { return less(picked[i].Impact, picked[j].Impact) })
	if len(picked) > MaxFactors {
		picked = picked[:MaxFactors]
	}

	names := make([]string, len(picked))
	for i, w := range picked {
		names[i] = w.Factor
	}
	return names
}

func breakdown(items []domain.WaterfallItem, answers domain.Answers) []domain.BreakdownItem {
	sorted := append([]domain.WaterfallItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Impact) > math.Abs(sorted[j].Impact)
	})
	if len(sorted) > MaxBreakdown {
		sorted = sorted[:MaxBreakdown]
	}

	out := make([]domain.BreakdownItem, len(sorted))
	for i, w := range sorted {
		kind := domain.ImpactProtective
		if w.Impact > 0 {
			kind = domain.ImpactRisk
		}
		out[i] = domain.BreakdownItem{
			Feature:     w.Factor,
			UserValue:   UserValue(w.Factor, answers),
			Impact:      math.Abs(w.Impact),
			Type:        kind,
			Explanation: Explanation(w.Factor),
		}
	}
	return out
}

// Round2 rounds the exact decimal value of x to 2 places, ties to even.
// Scaling by 100 first would round the inexact product instead.
func Round2(x float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	if err != nil || r == 0 {
		return 0
	}
	return r
}
