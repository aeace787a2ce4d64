package signal

import (
	"fmt"
	"strings"

	"github.com/sells-group/leadscore/internal/model"
)

// maxEvidence limits how many matched phrases are kept per signal.
const maxEvidence = 3

// Extractor scans lead records against per-category keyword tables and
// produces behavioral signals. Extraction is pure and deterministic:
// identical input always yields identical output, which is what makes
// result caching and property testing possible.
type Extractor struct {
	rules RuleSet
}

// NewExtractor creates an Extractor. If rules is nil the built-in default
// tables are used.
func NewExtractor(rules RuleSet) *Extractor {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Extractor{rules: rules}
}

// Extract analyzes one lead and returns zero or more behavioral signals in
// fixed category order. A category with no matches yields no signal.
func (e *Extractor) Extract(lead model.LeadRecord) []model.BehavioralSignal {
	convo := lead.ConversationText()

	var signals []model.BehavioralSignal
	for _, cat := range model.AllCategories {
		rule, ok := e.rules[cat]
		if !ok {
			continue
		}
		if sig, ok := e.extractCategory(cat, rule, lead, convo); ok {
			signals = append(signals, sig)
		}
	}
	return signals
}

func (e *Extractor) extractCategory(cat model.SignalCategory, rule CategoryRule, lead model.LeadRecord, convo string) (model.BehavioralSignal, bool) {
	var (
		raw      float64
		evidence []string
	)

	prefText := ""
	if rule.PreferenceKey != "" {
		prefStr, hasStr := lead.PreferenceString(rule.PreferenceKey)
		prefNum, hasNum := lead.PreferenceNumber(rule.PreferenceKey)
		if !hasStr && !hasNum {
			return model.BehavioralSignal{}, false
		}

		if hasNum && rule.NumericBonus > 0 {
			// A concrete figure is the strongest form of the preference;
			// keyword matchers on the field are skipped.
			raw += rule.NumericBonus
			evidence = append(evidence, fmt.Sprintf("specific %s: %.0f", rule.PreferenceKey, prefNum))
		} else {
			prefText = strings.ToLower(prefStr)
			if rule.DigitBonus > 0 && strings.ContainsAny(prefText, "0123456789") {
				raw += rule.DigitBonus
				evidence = append(evidence, fmt.Sprintf("%s mentioned: '%s'", rule.PreferenceKey, prefStr))
			}
		}
	}
	if rule.RequireConversation && convo == "" {
		return model.BehavioralSignal{}, false
	}

	scan := func(text string, m Matcher) {
		for _, term := range m.Terms {
			if strings.Contains(text, term) {
				raw += m.Increment
				evidence = append(evidence, fmt.Sprintf("%s: '%s'", m.Label, term))
			}
		}
	}

	for _, m := range rule.Matchers {
		if m.Source == "preference" && prefText != "" {
			scan(prefText, m)
		}
	}

	// Detail bonus slots between the preference and conversation scans.
	if rule.DetailBonus > 0 && rule.DetailWords > 0 && prefText != "" {
		if n := len(strings.Fields(prefText)); n >= rule.DetailWords {
			raw += rule.DetailBonus
			evidence = append(evidence, fmt.Sprintf("detailed %s criteria (%d words)", rule.PreferenceKey, n))
		}
	}

	for _, m := range rule.Matchers {
		if m.Source == "conversation" && convo != "" {
			scan(convo, m)
		}
	}

	if raw <= 0 {
		return model.BehavioralSignal{}, false
	}

	if len(evidence) > maxEvidence {
		evidence = evidence[:maxEvidence]
	}

	return model.BehavioralSignal{
		Category:   cat,
		Strength:   min(1.0, raw),
		Evidence:   strings.Join(evidence, " | "),
		Confidence: min(rule.ConfidenceCap, raw*rule.ConfidenceFactor),
		Weight:     rule.Weight,
	}, true
}
