package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadscore/internal/model"
)

func TestAdvise_UrgentLead(t *testing.T) {
	t.Parallel()

	rec := Advise(qualifiedSignals(), 0.87)

	assert.Equal(t, "Immediate (within 1 hour)", rec.OptimalContactTime)
	assert.Equal(t, "Priority Golden Lead Protocol", rec.RecommendedApproach)
	assert.Equal(t, []string{
		"Schedule immediate consultation call",
		"Fast-track property showing",
		"Focus on lifestyle benefits",
		"Prepare targeted property list",
	}, rec.PriorityActions)
	// Four signals, financing present: the only open risk is decision
	// authority.
	assert.Equal(t, []string{"Decision making authority unclear"}, rec.RiskFactors)
}

func TestAdvise_ContactTimeByProbability(t *testing.T) {
	t.Parallel()

	noUrgent := []model.BehavioralSignal{
		{Category: model.CategoryBudgetClarity, Strength: 0.5, Confidence: 0.3, Weight: 0.20},
	}

	tests := []struct {
		name        string
		probability float64
		wantTime    string
		wantAction  string
	}{
		{"vip", 0.91, "High priority (within 4 hours)", "Executive VIP Treatment"},
		{"golden", 0.85, "High priority (within 4 hours)", "Priority Golden Lead Protocol"},
		{"enhanced", 0.75, "Same day (within 8 hours)", "Enhanced Attention Strategy"},
		{"standard", 0.40, "Next business day", "Standard engagement"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := Advise(noUrgent, tt.probability)
			assert.Equal(t, tt.wantTime, rec.OptimalContactTime)
			assert.Equal(t, tt.wantAction, rec.RecommendedApproach)
		})
	}
}

func TestAdvise_RiskFactors(t *testing.T) {
	t.Parallel()

	// High probability without financing evidence flags verification, and
	// fewer than three signals flags thin data.
	sparse := []model.BehavioralSignal{
		{Category: model.CategoryDecisionMakerStatus, Strength: 0.5, Confidence: 0.3, Weight: 0.08},
	}
	rec := Advise(sparse, 0.75)
	assert.Equal(t, []string{
		"Financing preparedness needs verification",
		"Limited behavioral intelligence data",
	}, rec.RiskFactors)

	rec = Advise(nil, 0.10)
	assert.Equal(t, []string{
		"Decision making authority unclear",
		"Limited behavioral intelligence data",
	}, rec.RiskFactors)
	assert.Empty(t, rec.PriorityActions)
}
