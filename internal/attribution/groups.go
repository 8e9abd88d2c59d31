// Package attribution explains a linear score by summing per-feature
// contributions into named factor groups.
package attribution

import (
	"strings"

	"github.com/opensource-wellbeing/pulse/internal/features"
)

// Factor group names, in definition order.
const (
	GroupSleep            = "Sleep"
	GroupOutdoorActivity  = "Outdoor Activity"
	GroupStress           = "Stress"
	GroupAcademicPressure = "Academic Pressure"
	GroupSupport          = "Support"
	GroupOther            = "Other"
)

// Group is a named set of feature vector positions.
type Group struct {
	Name    string
	Indices []int
}

// member selects feature columns by exact name or by "<prefix>_" prefix.
type member struct {
	exact  []string
	prefix []string
}

var definitions = []struct {
	name string
	cols member
}{
	{GroupSleep, member{exact: []string{"Sleep_Hours"}, prefix: []string{features.PrefixSleepIssues}}},
	{GroupOutdoorActivity, member{exact: []string{"Outdoor_Acts"}}},
	{GroupStress, member{prefix: []string{features.PrefixStressLevel}}},
	{GroupAcademicPressure, member{exact: []string{"Study_Hours"}, prefix: []string{features.PrefixAcademicPressure}}},
	{GroupSupport, member{prefix: []string{
		features.PrefixInstitutionalSupport,
		"Talk",
		"Open",
		features.PrefixFinancialComfort,
	}}},
}

var defaultGroups = buildGroups(features.Names())

// Groups returns the factor groups in definition order. Every feature
// position belongs to exactly one group; positions not claimed by a named
// group fall into Other.
func Groups() []Group {
	out := make([]Group, len(defaultGroups))
	for i, g := range defaultGroups {
		out[i] = Group{Name: g.Name, Indices: append([]int(nil), g.Indices...)}
	}
	return out
}

func buildGroups(names []string) []Group {
	assigned := make(map[int]bool, len(names))
	groups := make([]Group, 0, len(definitions)+1)

	for _, def := range definitions {
		g := Group{Name: def.name}
		for _, col := range def.cols.exact {
			for i, name := range names {
				if name == col && !assigned[i] {
					g.Indices = append(g.Indices, i)
					assigned[i] = true
				}
			}
		}
		for _, p := range def.cols.prefix {
			for i, name := range names {
				if strings.HasPrefix(name, p+"_") && !assigned[i] {
					g.Indices = append(g.Indices, i)
					assigned[i] = true
				}
			}
		}
		groups = append(groups, g)
	}

	other := Group{Name: GroupOther}
	for i := range names {
		if !assigned[i] {
			other.Indices = append(other.Indices, i)
		}
	}
	return append(groups, other)
}
