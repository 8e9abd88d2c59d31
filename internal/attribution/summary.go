package attribution

import (
	"math"
	"sort"

	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// GroupWeight is the summed class coefficient of one factor group.
type GroupWeight struct {
	Factor string  `json:"name"`
	Weight float64 `json:"value"`
	Type   string  `json:"type"`
}

// Summarize totals coef over each group, largest magnitude first.
// Groups with a zero total are left out.
func Summarize(coef []float64, groups []Group) []GroupWeight {
	out := make([]GroupWeight, 0, len(groups))
	for _, g := range groups {
		var sum float64
		for _, i := range g.Indices {
			if i < len(coef) {
				sum += coef[i]
			}
		}
		if sum == 0 {
			continue
		}

		typ := domain.ImpactProtective
		if sum > 0 {
			typ = domain.ImpactRisk
		}
		out = append(out, GroupWeight{Factor: g.Name, Weight: math.Round(sum*1000) / 1000, Type: typ})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Weight) > math.Abs(out[j].Weight)
	})
	return out
}
