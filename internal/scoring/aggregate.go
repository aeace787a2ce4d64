package scoring

import (
	"math"

	"github.com/sells-group/leadscore/internal/model"
)

// Aggregate is the numeric core of a lead analysis: every factor feeding
// the conversion probability, plus the probability and overall score
// themselves.
type Aggregate struct {
	BaseQuestionScore    int
	AIEnhancementBoost   float64
	BehavioralMultiplier float64

	UrgencyLevel         float64
	FinancialReadiness   float64
	EmotionalCommitment  float64
	MarketSophistication float64

	ConversionProbability float64
	OverallScore          float64
}

// Compute combines the base question score, extracted signals, and known
// patterns into a full aggregate. baseScore is the externally produced
// 0-7 qualifying-question count and is treated as opaque here.
func Compute(baseScore int, signals []model.BehavioralSignal, patterns []model.Pattern) Aggregate {
	agg := Aggregate{
		BaseQuestionScore:    baseScore,
		AIEnhancementBoost:   enhancementBoost(signals),
		BehavioralMultiplier: behavioralMultiplier(signals, patterns),
	}

	byCategory := make(map[model.SignalCategory]model.BehavioralSignal, len(signals))
	for _, s := range signals {
		byCategory[s.Category] = s
	}

	agg.UrgencyLevel = byCategory[model.CategoryUrgentTimeline].Strength
	agg.EmotionalCommitment = byCategory[model.CategoryEmotionalInvestment].Strength
	agg.MarketSophistication = byCategory[model.CategoryMarketAwareness].Strength
	agg.FinancialReadiness = financialReadiness(byCategory)

	agg.ConversionProbability = conversionProbability(agg)
	agg.OverallScore = clamp(float64(baseScore)*14.3+agg.AIEnhancementBoost+agg.BehavioralMultiplier*10, 0, 100)

	return agg
}

// enhancementBoost is the weighted signal contribution normalized to a
// 0-30 point boost.
func enhancementBoost(signals []model.BehavioralSignal) float64 {
	if len(signals) == 0 {
		return 0
	}

	var weighted, totalWeight float64
	for _, s := range signals {
		weighted += s.Strength * s.Confidence * s.Weight
		totalWeight += s.Weight
	}
	if totalWeight <= 0 {
		return 0
	}
	return math.Min(30.0, weighted/totalWeight*30.0)
}

// behavioralMultiplier amplifies leads matching known high-conversion
// patterns. The best pattern candidate competes against an average
// strength multiplier; the winner is capped at 2.0.
func behavioralMultiplier(signals []model.BehavioralSignal, patterns []model.Pattern) float64 {
	if len(signals) == 0 {
		return 1.0
	}

	present := make(map[model.SignalCategory]bool, len(signals))
	var strengthSum float64
	for _, s := range signals {
		present[s.Category] = true
		strengthSum += s.Strength
	}

	patternMult := 1.0
	for _, p := range patterns {
		if p.Matches(present) {
			patternMult = math.Max(patternMult, 1.0+p.ConversionRate*0.5)
		}
	}

	strengthMult := 1.0 + strengthSum/float64(len(signals))*0.3

	return math.Min(2.0, math.Max(patternMult, strengthMult))
}

// financialReadiness blends the budget and financing signals. Either one
// alone carries discounted weight.
func financialReadiness(byCategory map[model.SignalCategory]model.BehavioralSignal) float64 {
	budget, hasBudget := byCategory[model.CategoryBudgetClarity]
	financing, hasFinancing := byCategory[model.CategoryFinancingReadiness]

	switch {
	case hasBudget && hasFinancing:
		return (budget.Strength + financing.Strength) / 2
	case hasBudget:
		return budget.Strength * 0.7
	case hasFinancing:
		return financing.Strength * 0.8
	default:
		return 0
	}
}

// conversionProbability combines all factors and applies sigmoid smoothing
// so probabilities stay realistic near the extremes.
func conversionProbability(agg Aggregate) float64 {
	baseProbability := math.Min(0.70, float64(agg.BaseQuestionScore)/7.0*0.70)
	aiEnhancement := agg.AIEnhancementBoost / 30.0 * 0.25
	behavioralBoost := (agg.BehavioralMultiplier - 1.0) * 0.20
	intelligence := (agg.UrgencyLevel + agg.FinancialReadiness + agg.EmotionalCommitment + agg.MarketSophistication) / 4.0 * 0.15

	raw := baseProbability + aiEnhancement + behavioralBoost + intelligence
	smoothed := 1.0 / (1.0 + math.Exp(-5.0*(raw-0.5)))

	return clamp(smoothed, 0.05, 0.98)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
