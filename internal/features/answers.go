package features

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// Defaults returns the answers assumed for an empty questionnaire.
func Defaults() domain.Answers {
	return domain.Answers{
		Age:                  20,
		StudyHours:           5,
		SleepHours:           7,
		ScreenTime:           4,
		OutdoorActivity:      1,
		Gender:               "Male",
		AcademicLevel:        "Undergraduate",
		TalkTo:               "Friends",
		Openness:             "Maybe",
		AcademicPressure:     3,
		StressLevel:          3,
		SleepIssues:          1,
		Hopelessness:         1,
		FinancialComfort:     3,
		InstitutionalSupport: 3,
	}
}

// Parse reads a raw payload into Answers, applying defaults for missing or
// unreadable fields. No range checks are applied.
func Parse(p domain.RawPayload) domain.Answers {
	d := Defaults()
	return domain.Answers{
		Age:                  intField(p, "age", d.Age),
		StudyHours:           intField(p, "studyHours", d.StudyHours),
		SleepHours:           intField(p, "sleepHours", d.SleepHours),
		ScreenTime:           intField(p, "screenTime", d.ScreenTime),
		OutdoorActivity:      intField(p, "outdoorActivity", d.OutdoorActivity),
		Gender:               stringField(p, "gender", d.Gender),
		AcademicLevel:        stringField(p, "academicLevel", d.AcademicLevel),
		TalkTo:               stringField(p, "talkTo", d.TalkTo),
		Openness:             stringField(p, "openness", d.Openness),
		AcademicPressure:     intField(p, "academicPressure", d.AcademicPressure),
		StressLevel:          intField(p, "stressLevel", d.StressLevel),
		SleepIssues:          intField(p, "sleepIssues", d.SleepIssues),
		Hopelessness:         intField(p, "hopelessness", d.Hopelessness),
		FinancialComfort:     intField(p, "financialComfort", d.FinancialComfort),
		InstitutionalSupport: intField(p, "institutionalSupport", d.InstitutionalSupport),
	}
}

// intField reads an integer answer. Numbers are truncated toward zero and
// numeric strings are parsed; anything else yields def.
func intField(p domain.RawPayload, key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return truncate(n, def)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return truncate(f, def)
		}
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return truncate(f, def)
		}
	}
	return def
}

func truncate(f float64, def int) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return int(math.Trunc(f))
}

func stringField(p domain.RawPayload, key string, def string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return def
}
