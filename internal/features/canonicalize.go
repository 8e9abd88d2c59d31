package features

import (
	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// Canonicalize maps a raw payload to the fixed-order feature vector.
func Canonicalize(p domain.RawPayload) []float64 {
	return Encode(Parse(p))
}

// Encode maps answers to the fixed-order feature vector.
//
// Continuous answers pass through unchanged. Categorical selections fall
// back to their default column when unrecognized, while ordinal ratings
// are clamped into [1,5]. Every column not set below stays 0.
func Encode(a domain.Answers) []float64 {
	v := make([]float64, len(featureOrder))
	set := func(name string, val float64) {
		v[featureIndex[name]] = val
	}

	set("Age", float64(a.Age))
	set("Study_Hours", float64(a.StudyHours))
	set("Sleep_Hours", float64(a.SleepHours))
	set("Screen_Hours", float64(a.ScreenTime))
	set("Outdoor_Acts", float64(a.OutdoorActivity))

	set(genderGroup.column(a.Gender), 1)
	set(academicGroup.column(a.AcademicLevel), 1)
	set(talkGroup.column(a.TalkTo), 1)
	set(opennessGroup.column(a.Openness), 1)

	set(ordinalColumn(PrefixAcademicPressure, Clamp(a.AcademicPressure)), 1)
	set(ordinalColumn(PrefixStressLevel, Clamp(a.StressLevel)), 1)
	set(ordinalColumn(PrefixSleepIssues, Clamp(a.SleepIssues)), 1)
	set(ordinalColumn(PrefixHopelessness, Clamp(a.Hopelessness)), 1)
	set(ordinalColumn(PrefixFinancialComfort, Clamp(a.FinancialComfort)), 1)
	set(ordinalColumn(PrefixInstitutionalSupport, Clamp(a.InstitutionalSupport)), 1)

	return v
}

// Clamp bounds a rating to the [1,5] scale.
func Clamp(rating int) int {
	if rating < RatingMin {
		return RatingMin
	}
	if rating > RatingMax {
		return RatingMax
	}
	return rating
}
