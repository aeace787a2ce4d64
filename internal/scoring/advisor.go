package scoring

import "github.com/sells-group/leadscore/internal/model"

// Recommendation carries the sales-strategy output of an analysis: when to
// reach out, how, what to do first, and what could derail the deal.
type Recommendation struct {
	OptimalContactTime  string   `json:"optimal_contact_time"`
	RecommendedApproach string   `json:"recommended_approach"`
	PriorityActions     []string `json:"priority_actions,omitempty"`
	RiskFactors         []string `json:"risk_factors,omitempty"`
}

// Advise derives contact recommendations from the extracted signals and
// the final conversion probability. It is a deterministic rule table, not
// a model.
func Advise(signals []model.BehavioralSignal, probability float64) Recommendation {
	present := make(map[model.SignalCategory]bool, len(signals))
	for _, s := range signals {
		present[s.Category] = true
	}

	rec := Recommendation{RecommendedApproach: "Standard engagement"}

	switch {
	case present[model.CategoryUrgentTimeline]:
		rec.OptimalContactTime = "Immediate (within 1 hour)"
	case probability >= 0.85:
		rec.OptimalContactTime = "High priority (within 4 hours)"
	case probability >= 0.70:
		rec.OptimalContactTime = "Same day (within 8 hours)"
	default:
		rec.OptimalContactTime = "Next business day"
	}

	switch {
	case probability >= 0.90:
		rec.RecommendedApproach = "Executive VIP Treatment"
	case probability >= 0.80:
		rec.RecommendedApproach = "Priority Golden Lead Protocol"
	case probability >= 0.70:
		rec.RecommendedApproach = "Enhanced Attention Strategy"
	}

	if present[model.CategoryUrgentTimeline] {
		rec.PriorityActions = append(rec.PriorityActions, "Schedule immediate consultation call")
	}
	if present[model.CategoryFinancingReadiness] {
		rec.PriorityActions = append(rec.PriorityActions, "Fast-track property showing")
	}
	if present[model.CategoryEmotionalInvestment] {
		rec.PriorityActions = append(rec.PriorityActions, "Focus on lifestyle benefits")
	}
	if present[model.CategoryBudgetClarity] {
		rec.PriorityActions = append(rec.PriorityActions, "Prepare targeted property list")
	}

	if !present[model.CategoryDecisionMakerStatus] {
		rec.RiskFactors = append(rec.RiskFactors, "Decision making authority unclear")
	}
	if !present[model.CategoryFinancingReadiness] && probability > 0.70 {
		rec.RiskFactors = append(rec.RiskFactors, "Financing preparedness needs verification")
	}
	if len(signals) < 3 {
		rec.RiskFactors = append(rec.RiskFactors, "Limited behavioral intelligence data")
	}

	return rec
}
