package advice

import "github.com/opensource-wellbeing/pulse/internal/domain"

// DefaultRules returns the built-in suggestion rules in evaluation order.
func DefaultRules() []domain.SuggestionRule {
	return []domain.SuggestionRule{
		{
			ID:      "sleep-short",
			When:    "sleepHours < 7",
			Problem: `"Sleep is " + string(sleepHours) + " hrs/night (below the 7-9 hr range)."`,
			Why:     "Students with similar sleep patterns showed higher predicted risk in our training data.",
			Action:  "Aim for 7.5-8 hours: shift bedtime earlier by 20-30 minutes for 1 week.",
		},
		{
			ID:      "outdoor-low",
			When:    "outdoorActivity < 2",
			Problem: `"Outdoor activity is " + string(outdoorActivity) + " hrs/week."`,
			Why:     "Higher outdoor activity was linked with lower predicted risk in similar profiles.",
			Action:  "Try 15-20 minutes of outdoor time 3-4 days this week.",
		},
		{
			ID:      "screen-high",
			When:    "screenTime > 7",
			Problem: `"Screen time is " + string(screenTime) + " hrs/day."`,
			Why:     "Higher screen time often co-occurs with sleep disruption patterns in the dataset.",
			Action:  "Add a 45-minute screen-free window before bed for 5 days.",
		},
		{
			ID:      "stress-high",
			When:    "stressLevel >= 4",
			Problem: `"Stress level is " + string(stressLevel) + "/5."`,
			Why:     "Stress is one of the strongest upward contributors in the logistic regression model.",
			Action:  "Use a 5-minute reset: breathing + short walk once daily for a week.",
		},
	}
}
