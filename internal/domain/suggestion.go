package domain

// SuggestionRule is a recommendation triggered by the raw answers.
//
// When and Problem are CEL expressions over the answer fields (age,
// studyHours, sleepHours, ..., institutionalSupport). When must return a
// bool and Problem a string.
type SuggestionRule struct {
	ID      string `json:"id" yaml:"id"`
	When    string `json:"when" yaml:"when"`
	Problem string `json:"problem" yaml:"problem"`
	Why     string `json:"why" yaml:"why"`
	Action  string `json:"action" yaml:"action"`
}
