package model

// SignalCategory identifies a class of behavioral conversion indicator.
type SignalCategory string

const (
	CategoryUrgentTimeline      SignalCategory = "urgent_timeline"
	CategoryBudgetClarity       SignalCategory = "budget_clarity"
	CategoryLocationSpecificity SignalCategory = "location_specificity"
	CategoryFinancingReadiness  SignalCategory = "financing_readiness"
	CategoryEmotionalInvestment SignalCategory = "emotional_investment"
	CategoryMarketAwareness     SignalCategory = "market_awareness"
	CategoryDecisionMakerStatus SignalCategory = "decision_maker_status"
)

// AllCategories lists every signal category in extraction order. The order
// is fixed so identical input always produces identically ordered output.
var AllCategories = []SignalCategory{
	CategoryUrgentTimeline,
	CategoryBudgetClarity,
	CategoryLocationSpecificity,
	CategoryFinancingReadiness,
	CategoryEmotionalInvestment,
	CategoryMarketAwareness,
	CategoryDecisionMakerStatus,
}

// Valid reports whether c is one of the known categories.
func (c SignalCategory) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// BehavioralSignal is one detected conversion indicator. Strength,
// confidence and weight are all in [0, 1]; evidence holds up to three
// matched phrases for explainability.
type BehavioralSignal struct {
	Category   SignalCategory `json:"category"`
	Strength   float64        `json:"strength"`
	Evidence   string         `json:"evidence"`
	Confidence float64        `json:"confidence"`
	Weight     float64        `json:"weight"`
}
