package model

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// Tier buckets a lead by conversion probability. Boundaries are
// lower-inclusive: >=0.95 platinum, >=0.85 gold, >=0.70 silver.
type Tier string

const (
	TierPlatinum Tier = "platinum"
	TierGold     Tier = "gold"
	TierSilver   Tier = "silver"
	TierStandard Tier = "standard"
)

// ResultTTL is how long a score result stays valid. The cache write TTL
// and the result's own ExpiresAt are both derived from it so the two can
// never diverge.
const ResultTTL = 2 * time.Hour

// ScoreResult is the complete analysis for one lead. Immutable once
// produced; cached copies are returned verbatim until expiry.
type ScoreResult struct {
	LeadID                string             `json:"lead_id"`
	TenantID              string             `json:"tenant_id"`
	OverallScore          float64            `json:"overall_score"`
	Tier                  Tier               `json:"tier"`
	ConversionProbability float64            `json:"conversion_probability"`
	Signals               []BehavioralSignal `json:"behavioral_signals"`

	// Contributing factors.
	BaseQuestionScore    int     `json:"base_question_score"`
	AIEnhancementBoost   float64 `json:"ai_enhancement_boost"`
	BehavioralMultiplier float64 `json:"behavioral_multiplier"`

	// Intelligence factors.
	UrgencyLevel         float64 `json:"urgency_level"`
	FinancialReadiness   float64 `json:"financial_readiness"`
	EmotionalCommitment  float64 `json:"emotional_commitment"`
	MarketSophistication float64 `json:"market_sophistication"`

	// Contact recommendations.
	OptimalContactTime  string   `json:"optimal_contact_time,omitempty"`
	RecommendedApproach string   `json:"recommended_approach"`
	PriorityActions     []string `json:"priority_actions,omitempty"`
	RiskFactors         []string `json:"risk_factors,omitempty"`

	// Metadata.
	DetectionConfidence float64   `json:"detection_confidence"`
	AnalyzedAt          time.Time `json:"analyzed_at"`
	ExpiresAt           time.Time `json:"expires_at"`
}

// Encode serializes the result for cache storage.
func (r *ScoreResult) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, eris.Wrap(err, "model: encode score result")
	}
	return data, nil
}

// DecodeScoreResult restores a cached score result. Every field, including
// signal order and the tier tag, round-trips losslessly.
func DecodeScoreResult(data []byte) (*ScoreResult, error) {
	var r ScoreResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "model: decode score result")
	}
	return &r, nil
}
