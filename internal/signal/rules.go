// Package signal extracts behavioral conversion signals from raw lead data
// by scanning preference fields and conversation history against
// per-category keyword tables. The tables are versioned configuration, not
// inline logic, so they can be tuned without redeploying the engine.
package signal

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadscore/internal/model"
)

// Matcher is one keyword group within a category rule. Every matched term
// adds Increment to the category's raw accumulator and contributes one
// evidence entry prefixed with Label.
type Matcher struct {
	// Source is "preference" (scan the category's preference field) or
	// "conversation" (scan the concatenated conversation text).
	Source    string   `yaml:"source"`
	Label     string   `yaml:"label"`
	Increment float64  `yaml:"increment"`
	Terms     []string `yaml:"terms"`
}

// CategoryRule configures extraction for a single signal category.
type CategoryRule struct {
	// PreferenceKey gates the category: when set, no signal is emitted
	// unless the lead carries this preference.
	PreferenceKey string `yaml:"preference_key,omitempty"`

	// RequireConversation gates the category on a non-empty conversation.
	RequireConversation bool `yaml:"require_conversation,omitempty"`

	Weight           float64 `yaml:"weight"`
	ConfidenceFactor float64 `yaml:"confidence_factor"`
	ConfidenceCap    float64 `yaml:"confidence_cap"`

	// NumericBonus is credited when the preference value is a number
	// (a concrete figure beats prose). When it applies, preference
	// keyword matchers are skipped for that lead.
	NumericBonus float64 `yaml:"numeric_bonus,omitempty"`

	// DigitBonus is credited when a string preference contains digits.
	DigitBonus float64 `yaml:"digit_bonus,omitempty"`

	// DetailBonus is credited when the preference value has at least
	// DetailWords words.
	DetailWords int     `yaml:"detail_words,omitempty"`
	DetailBonus float64 `yaml:"detail_bonus,omitempty"`

	Matchers []Matcher `yaml:"matchers"`
}

// RuleSet maps each signal category to its extraction rule.
type RuleSet map[model.SignalCategory]CategoryRule

// DefaultRules returns the built-in extraction tables. Weights sum to 1.00
// across the seven categories.
func DefaultRules() RuleSet {
	return RuleSet{
		model.CategoryUrgentTimeline: {
			PreferenceKey:    "timeline",
			Weight:           0.25,
			ConfidenceFactor: 0.8,
			ConfidenceCap:    0.9,
			Matchers: []Matcher{
				{Source: "preference", Label: "timeline", Increment: 0.3, Terms: []string{
					"asap", "immediately", "urgent", "this month", "next month",
					"this week", "next week", "soon", "right away", "quickly",
				}},
				{Source: "conversation", Label: "mentioned", Increment: 0.4, Terms: []string{
					"need to move fast", "time sensitive", "deadline approaching",
					"lease expires", "need to close soon", "relocating soon",
					"job starts", "school starts", "baby coming",
				}},
			},
		},
		model.CategoryBudgetClarity: {
			PreferenceKey:    "budget",
			Weight:           0.20,
			ConfidenceFactor: 0.7,
			ConfidenceCap:    0.85,
			NumericBonus:     0.5,
			DigitBonus:       0.4,
			Matchers: []Matcher{
				{Source: "preference", Label: "budget confidence", Increment: 0.3, Terms: []string{
					"pre-approved", "cash buyer", "no budget concerns", "flexible",
				}},
				{Source: "conversation", Label: "financial readiness", Increment: 0.3, Terms: []string{
					"pre-approved", "cash buyer", "down payment ready",
					"financing secured", "bank approved", "seller financing",
				}},
			},
		},
		model.CategoryLocationSpecificity: {
			PreferenceKey:    "location",
			Weight:           0.10,
			ConfidenceFactor: 0.6,
			ConfidenceCap:    0.8,
			DetailWords:      3,
			DetailBonus:      0.3,
			Matchers: []Matcher{
				{Source: "preference", Label: "specific location", Increment: 0.4, Terms: []string{
					"street", "avenue", "road", "drive", "neighborhood", "subdivision",
				}},
				{Source: "conversation", Label: "location knowledge", Increment: 0.2, Terms: []string{
					"know the area", "familiar with", "lived there", "work nearby",
					"school district", "commute", "neighborhood", "local amenities",
				}},
			},
		},
		model.CategoryFinancingReadiness: {
			PreferenceKey:    "financing",
			Weight:           0.18,
			ConfidenceFactor: 0.8,
			ConfidenceCap:    0.9,
			Matchers: []Matcher{
				{Source: "preference", Label: "high readiness", Increment: 0.5, Terms: []string{
					"pre-approved", "cash", "approved", "financing secured",
				}},
				{Source: "preference", Label: "medium readiness", Increment: 0.3, Terms: []string{
					"talking to lender", "getting pre-approved", "bank contact",
				}},
				{Source: "conversation", Label: "financing discussion", Increment: 0.2, Terms: []string{
					"lender", "mortgage", "down payment", "interest rate",
					"loan officer", "credit score", "debt-to-income",
				}},
			},
		},
		model.CategoryEmotionalInvestment: {
			RequireConversation: true,
			Weight:              0.15,
			ConfidenceFactor:    0.5,
			ConfidenceCap:       0.75,
			Matchers: []Matcher{
				{Source: "conversation", Label: "strong emotion", Increment: 0.4, Terms: []string{
					"dream home", "perfect for us", "love it", "exactly what we want",
					"can picture ourselves", "feels like home", "this is it",
				}},
				{Source: "conversation", Label: "lifestyle factor", Increment: 0.2, Terms: []string{
					"kids", "family", "retirement", "work from home",
					"pets", "hobbies", "lifestyle", "future plans",
				}},
				{Source: "conversation", Label: "personal story", Increment: 0.3, Terms: []string{
					"growing family", "new job", "moving closer to",
					"life change", "getting married", "downsizing",
				}},
			},
		},
		model.CategoryMarketAwareness: {
			RequireConversation: true,
			Weight:              0.04,
			ConfidenceFactor:    0.6,
			ConfidenceCap:       0.8,
			Matchers: []Matcher{
				{Source: "conversation", Label: "market knowledge", Increment: 0.3, Terms: []string{
					"market trends", "comparable sales", "price per square foot",
					"market analysis", "property values", "investment potential",
				}},
				{Source: "conversation", Label: "experience", Increment: 0.4, Terms: []string{
					"bought before", "sold before", "real estate experience",
					"previous home", "investment property", "rental property",
				}},
				{Source: "conversation", Label: "sophistication", Increment: 0.2, Terms: []string{
					"roi", "cap rate", "appreciation", "equity",
					"closing costs", "inspection", "appraisal",
				}},
			},
		},
		model.CategoryDecisionMakerStatus: {
			RequireConversation: true,
			Weight:              0.08,
			ConfidenceFactor:    0.6,
			ConfidenceCap:       0.8,
			Matchers: []Matcher{
				{Source: "conversation", Label: "decision authority", Increment: 0.5, Terms: []string{
					"i decide", "my decision", "i choose", "up to me",
					"i handle", "i manage", "my responsibility",
				}},
				{Source: "conversation", Label: "collaborative decision", Increment: 0.3, Terms: []string{
					"we decide", "discuss with spouse", "family decision",
					"need to consult", "joint decision",
				}},
				{Source: "conversation", Label: "financial authority", Increment: 0.4, Terms: []string{
					"i handle finances", "my budget", "i manage money",
					"my credit", "i qualify",
				}},
			},
		},
	}
}

// LoadRules reads extraction rules from a YAML file. Categories absent
// from the file fall back to the built-in defaults, so a rules file only
// needs to list the categories it tunes.
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "signal: read rules %s", path)
	}

	var wrapper struct {
		Signals RuleSet `yaml:"signals"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "signal: parse rules")
	}

	rules := DefaultRules()
	for cat, rule := range wrapper.Signals {
		if !cat.Valid() {
			return nil, eris.Errorf("signal: unknown category %q in rules file", cat)
		}
		rules[cat] = rule
	}
	return rules, nil
}
