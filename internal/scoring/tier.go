package scoring

import "github.com/sells-group/leadscore/internal/model"

// ClassifyTier buckets a conversion probability into a priority tier.
// Boundaries are lower-inclusive and strictly ordered: 0.95 > 0.85 > 0.70.
func ClassifyTier(probability float64) model.Tier {
	switch {
	case probability >= 0.95:
		return model.TierPlatinum
	case probability >= 0.85:
		return model.TierGold
	case probability >= 0.70:
		return model.TierSilver
	default:
		return model.TierStandard
	}
}
