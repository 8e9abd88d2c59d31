// Package features maps questionnaire answers onto the fixed feature vector
// the wellbeing classifier was trained on.
package features

import "fmt"

// featureOrder is the column order the classifier was trained on.
// Changing it invalidates every trained artifact.
var featureOrder = []string{
	"Age",
	"Study_Hours",
	"Sleep_Hours",
	"Screen_Hours",
	"Outdoor_Acts",
	"Gender_Male",
	"Gender_Female",
	"Gender_PNTS",
	"Acad_HighSchool",
	"Acad_Undergrad",
	"Acad_Postgrad",
	"Acad_Other",
	"Talk_Family",
	"Talk_Friends",
	"Talk_Counselor",
	"Talk_None",
	"Open_Yes",
	"Open_Maybe",
	"Open_No",
	"Acad_Pressure_1",
	"Acad_Pressure_2",
	"Acad_Pressure_3",
	"Acad_Pressure_4",
	"Acad_Pressure_5",
	"Sleep_Issue_1",
	"Sleep_Issue_2",
	"Sleep_Issue_3",
	"Sleep_Issue_4",
	"Sleep_Issue_5",
	"Stress_Level_1",
	"Stress_Level_2",
	"Stress_Level_3",
	"Stress_Level_4",
	"Stress_Level_5",
	"Hopelessness_1",
	"Hopelessness_2",
	"Hopelessness_3",
	"Hopelessness_4",
	"Hopelessness_5",
	"Finance_Comfort_1",
	"Finance_Comfort_2",
	"Finance_Comfort_3",
	"Finance_Comfort_4",
	"Finance_Comfort_5",
	"Inst_Support_1",
	"Inst_Support_2",
	"Inst_Support_3",
	"Inst_Support_4",
	"Inst_Support_5",
}

var featureIndex = func() map[string]int {
	m := make(map[string]int, len(featureOrder))
	for i, name := range featureOrder {
		if _, dup := m[name]; dup {
			panic("features: duplicate column " + name)
		}
		m[name] = i
	}
	return m
}()

// Size is the length of every feature vector.
func Size() int {
	return len(featureOrder)
}

// Names returns a copy of the column names in vector order.
func Names() []string {
	out := make([]string, len(featureOrder))
	copy(out, featureOrder)
	return out
}

// Index returns the vector position of a column.
func Index(name string) (int, bool) {
	i, ok := featureIndex[name]
	return i, ok
}

// Rating scale bounds for ordinal answers.
const (
	RatingMin = 1
	RatingMax = 5
)

// categorical is a one-hot group fed by a single selection.
type categorical struct {
	columns  []string
	lookup   map[string]string // selection -> column
	fallback string            // column used for unknown selections
}

func (c categorical) column(selection string) string {
	if col, ok := c.lookup[selection]; ok {
		return col
	}
	return c.fallback
}

var (
	genderGroup = categorical{
		columns: []string{"Gender_Male", "Gender_Female", "Gender_PNTS"},
		lookup: map[string]string{
			"Male":   "Gender_Male",
			"Female": "Gender_Female",
			"Other":  "Gender_PNTS",
		},
		fallback: "Gender_Male",
	}

	// Acad_Other is part of the trained schema but no selection maps to it.
	academicGroup = categorical{
		columns: []string{"Acad_HighSchool", "Acad_Undergrad", "Acad_Postgrad", "Acad_Other"},
		lookup: map[string]string{
			"High School":   "Acad_HighSchool",
			"Undergraduate": "Acad_Undergrad",
			"Postgraduate":  "Acad_Postgrad",
		},
		fallback: "Acad_Undergrad",
	}

	talkGroup = categorical{
		columns: []string{"Talk_Family", "Talk_Friends", "Talk_Counselor", "Talk_None"},
		lookup: map[string]string{
			"Family":    "Talk_Family",
			"Friends":   "Talk_Friends",
			"Counselor": "Talk_Counselor",
			"None":      "Talk_None",
		},
		fallback: "Talk_Friends",
	}

	opennessGroup = categorical{
		columns: []string{"Open_Yes", "Open_Maybe", "Open_No"},
		lookup: map[string]string{
			"Yes":   "Open_Yes",
			"Maybe": "Open_Maybe",
			"No":    "Open_No",
		},
		fallback: "Open_Maybe",
	}
)

// Ordinal one-hot prefixes. Each expands to <prefix>_1 .. <prefix>_5.
const (
	PrefixAcademicPressure     = "Acad_Pressure"
	PrefixSleepIssues          = "Sleep_Issue"
	PrefixStressLevel          = "Stress_Level"
	PrefixHopelessness         = "Hopelessness"
	PrefixFinancialComfort     = "Finance_Comfort"
	PrefixInstitutionalSupport = "Inst_Support"
)

func ordinalColumn(prefix string, rating int) string {
	return fmt.Sprintf("%s_%d", prefix, rating)
}

// OneHotGroups returns the column sets of every mutually exclusive group.
func OneHotGroups() [][]string {
	groups := [][]string{
		genderGroup.columns,
		academicGroup.columns,
		talkGroup.columns,
		opennessGroup.columns,
	}
	for _, prefix := range []string{
		PrefixAcademicPressure,
		PrefixSleepIssues,
		PrefixStressLevel,
		PrefixHopelessness,
		PrefixFinancialComfort,
		PrefixInstitutionalSupport,
	} {
		cols := make([]string, 0, RatingMax)
		for r := RatingMin; r <= RatingMax; r++ {
			cols = append(cols, ordinalColumn(prefix, r))
		}
		groups = append(groups, cols)
	}
	return groups
}
