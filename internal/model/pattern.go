package model

import "time"

// Pattern is a known combination of signal categories historically
// correlated with conversion. Patterns are read-mostly: shared across
// concurrent analyses and mutated only through the engine's upsert hook.
type Pattern struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	RequiredCategories []SignalCategory `json:"required_categories"`
	ConversionRate     float64          `json:"conversion_rate"`
	SampleSize         int              `json:"sample_size"`
	ConfidenceLow      float64          `json:"confidence_low"`
	ConfidenceHigh     float64          `json:"confidence_high"`
	DiscoveredAt       time.Time        `json:"discovered_at"`
}

// Matches reports whether every required category is present in the set of
// extracted categories.
func (p Pattern) Matches(present map[SignalCategory]bool) bool {
	if len(p.RequiredCategories) == 0 {
		return false
	}
	for _, c := range p.RequiredCategories {
		if !present[c] {
			return false
		}
	}
	return true
}
