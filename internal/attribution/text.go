package attribution

import (
	"fmt"

	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// userValues renders the raw answers behind each group.
var userValues = map[string]func(a domain.Answers) string{
	GroupSleep: func(a domain.Answers) string {
		return fmt.Sprintf("%d hrs/night, sleep issues %d/5", a.SleepHours, a.SleepIssues)
	},
	GroupOutdoorActivity: func(a domain.Answers) string {
		return fmt.Sprintf("%d hrs/week", a.OutdoorActivity)
	},
	GroupStress: func(a domain.Answers) string {
		return fmt.Sprintf("%d/5", a.StressLevel)
	},
	GroupAcademicPressure: func(a domain.Answers) string {
		return fmt.Sprintf("%d/5, study %d hrs/day", a.AcademicPressure, a.StudyHours)
	},
	GroupSupport: func(a domain.Answers) string {
		return fmt.Sprintf("institution support %d/5, finance %d/5", a.InstitutionalSupport, a.FinancialComfort)
	},
	GroupOther: func(a domain.Answers) string {
		return fmt.Sprintf("age %d", a.Age)
	},
}

var explanations = map[string]string{
	GroupSleep: "Based on patterns learned from 10,000 student profiles, students with similar sleep + sleep-issue patterns " +
		"showed lower predicted risk when sleep was steadier. Logistic regression increases risk when your sleep pattern " +
		"aligns with higher-risk weights.",
	GroupOutdoorActivity: "Students with similar outdoor patterns tended to show lower predicted risk. In logistic regression, " +
		"higher outdoor activity usually shifts the score toward lower risk.",
	GroupStress: "Students reporting higher stress often fall into higher-risk patterns. Logistic regression treats higher " +
		"stress ratings as a strong upward push on risk.",
	GroupAcademicPressure: "Higher academic pressure (and heavy study load) correlates with higher predicted risk in the " +
		"training data. Logistic regression combines these signals linearly, so pressure can add risk even if other areas " +
		"are strong.",
	GroupSupport: "Support-related signals (institutional support, financial comfort, and having someone to talk to) often " +
		"reduce predicted risk. In logistic regression, these features can pull the score down.",
	GroupOther: "Other background signals have smaller influence compared to the major lifestyle and psychological factors.",
}

// UserValue describes the answers behind a group, or "" for unknown groups.
func UserValue(group string, a domain.Answers) string {
	if f, ok := userValues[group]; ok {
		return f(a)
	}
	return ""
}

// Explanation returns the fixed explanation for a group, or "".
func Explanation(group string) string {
	return explanations[group]
}
