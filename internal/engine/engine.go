// Package engine orchestrates lead conversion analysis: cache lookup,
// signal extraction, scoring, tier classification, contact
// recommendations, and concurrent batch processing, with a circuit
// breaker isolating dependency faults.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscore/internal/cache"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/resilience"
	"github.com/sells-group/leadscore/internal/scoring"
	"github.com/sells-group/leadscore/internal/signal"
	"github.com/sells-group/leadscore/internal/tenant"
)

// ErrTenantInvalid is returned (wrapped as a validation error) when the
// tenant is unknown or inactive.
var ErrTenantInvalid = eris.New("tenant is not active")

// BaseQuestionScorer produces the externally computed 0-7 count of
// answered qualifying questions. Opaque to this engine.
type BaseQuestionScorer interface {
	Score(ctx context.Context, lead model.LeadRecord) (int, error)
}

// Config tunes engine behavior.
type Config struct {
	// DefaultBatchSize is the sub-batch size used when a batch call does
	// not specify one. Default: 50.
	DefaultBatchSize int

	// Concurrency caps concurrent analyses within a sub-batch.
	// 0 means no cap beyond the sub-batch size.
	Concurrency int

	// RateLimit paces batch analyses in leads per second. 0 disables
	// pacing.
	RateLimit float64

	// CircuitBreaker configures failure isolation. ShouldTrip is set by
	// the engine: only non-validation errors count.
	CircuitBreaker resilience.CircuitBreakerConfig
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		DefaultBatchSize: 50,
		CircuitBreaker:   resilience.DefaultCircuitBreakerConfig(),
	}
}

// Deps are the collaborators the engine consumes.
type Deps struct {
	Extractor *signal.Extractor
	Patterns  *scoring.PatternBook
	Scorer    BaseQuestionScorer
	Tenants   tenant.Validator
	Cache     cache.Store
}

// Engine is one scoring engine instance. All mutable state (circuit
// breaker, metrics, pattern book) is owned here, not global, and resets
// on restart.
type Engine struct {
	cfg       Config
	extractor *signal.Extractor
	patterns  *scoring.PatternBook
	scorer    BaseQuestionScorer
	tenants   tenant.Validator
	cache     cache.Store
	breaker   *resilience.CircuitBreaker
	metrics   *Metrics
	limiter   *rate.Limiter

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// New creates an Engine.
func New(cfg Config, deps Deps) *Engine {
	if cfg.DefaultBatchSize <= 0 {
		cfg.DefaultBatchSize = 50
	}
	if deps.Extractor == nil {
		deps.Extractor = signal.NewExtractor(nil)
	}
	if deps.Patterns == nil {
		deps.Patterns = scoring.NewPatternBook(scoring.SeedPatterns()...)
	}

	cbCfg := cfg.CircuitBreaker
	// Validation failures abort before any work and never trip the breaker.
	cbCfg.ShouldTrip = func(err error) bool { return !resilience.IsValidation(err) }
	cbCfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("engine: circuit breaker state change",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Engine{
		cfg:       cfg,
		extractor: deps.Extractor,
		patterns:  deps.Patterns,
		scorer:    deps.Scorer,
		tenants:   deps.Tenants,
		cache:     deps.Cache,
		breaker:   resilience.NewCircuitBreaker(cbCfg),
		metrics:   NewMetrics(),
		limiter:   limiter,
		nowFunc:   time.Now,
	}
}

// AnalyzeOptions control a single-lead analysis.
type AnalyzeOptions struct {
	// IncludeOptimization adds contact-time, approach, priority actions
	// and risk factors to the result. Batch analyses skip it.
	IncludeOptimization bool

	// ForceRefresh bypasses the result cache and recomputes.
	ForceRefresh bool
}

// Analyze runs the full analysis pipeline for one lead. Cached results
// within their TTL are returned verbatim. Errors are either validation
// failures (invalid tenant) or analysis failures that feed the circuit
// breaker; no placeholder result is fabricated on failure.
func (e *Engine) Analyze(ctx context.Context, lead model.LeadRecord, tenantID string, opts AnalyzeOptions) (*model.ScoreResult, error) {
	if err := e.checkTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return e.analyzeLead(ctx, lead, tenantID, opts)
}

// DetectBatch analyzes all leads for one tenant and returns results sorted
// by descending conversion probability (stable on input order for ties).
// The tenant is validated once up front. A failure in one lead's analysis
// is logged, counted against the circuit breaker, and excluded from the
// output; it never aborts sibling analyses. Cancelling ctx stops
// scheduling further sub-batches and returns partial results.
func (e *Engine) DetectBatch(ctx context.Context, leads []model.LeadRecord, tenantID string, batchSize int) ([]*model.ScoreResult, error) {
	start := time.Now()
	if batchSize <= 0 {
		batchSize = e.cfg.DefaultBatchSize
	}

	if err := e.checkTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	log := zap.L().With(
		zap.String("batch_id", batchID),
		zap.String("tenant_id", tenantID),
	)
	log.Info("engine: batch detection started",
		zap.Int("leads", len(leads)),
		zap.Int("batch_size", batchSize),
	)

	slots := make([]*model.ScoreResult, len(leads))
	var failed atomic.Int64

	for i := 0; i < len(leads); i += batchSize {
		if ctx.Err() != nil {
			log.Warn("engine: batch cancelled, returning partial results",
				zap.Int("scheduled", i),
			)
			break
		}

		end := i + batchSize
		if end > len(leads) {
			end = len(leads)
		}

		g := new(errgroup.Group)
		if e.cfg.Concurrency > 0 {
			g.SetLimit(e.cfg.Concurrency)
		}

		for idx := i; idx < end; idx++ {
			idx := idx
			lead := leads[idx]
			g.Go(func() error {
				if e.limiter != nil {
					if err := e.limiter.Wait(ctx); err != nil {
						return nil
					}
				}

				res, err := e.analyzeLead(ctx, lead, tenantID, AnalyzeOptions{})
				if err != nil {
					failed.Add(1)
					log.Error("engine: lead analysis failed",
						zap.String("lead_id", lead.LeadID()),
						zap.Error(err),
					)
					return nil // don't abort siblings
				}
				slots[idx] = res
				return nil
			})
		}
		_ = g.Wait()
	}

	// Collect in input order, then rank; SliceStable keeps the original
	// order as the tie-break.
	results := make([]*model.ScoreResult, 0, len(leads))
	for _, r := range slots {
		if r != nil {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].ConversionProbability > results[b].ConversionProbability
	})

	elapsed := time.Since(start)
	if len(leads) > 0 {
		e.metrics.observeLatency(elapsed.Seconds() / float64(len(leads)))
	}

	log.Info("engine: batch detection complete",
		zap.Int("results", len(results)),
		zap.Int64("failed", failed.Load()),
		zap.Duration("elapsed", elapsed),
	)

	return results, nil
}

func (e *Engine) checkTenant(ctx context.Context, tenantID string) error {
	ok, err := e.tenants.IsActive(ctx, tenantID)
	if err != nil {
		return eris.Wrapf(err, "engine: validate tenant %s", tenantID)
	}
	if !ok {
		return resilience.NewValidationError(eris.Wrapf(ErrTenantInvalid, "tenant %s", tenantID))
	}
	return nil
}

// analyzeLead runs the per-lead pipeline without the tenant gate, through
// the circuit breaker.
func (e *Engine) analyzeLead(ctx context.Context, lead model.LeadRecord, tenantID string, opts AnalyzeOptions) (*model.ScoreResult, error) {
	return resilience.ExecuteVal(ctx, e.breaker, func(ctx context.Context) (*model.ScoreResult, error) {
		return e.runPipeline(ctx, lead, tenantID, opts)
	})
}

func cacheKey(tenantID, leadID string) string {
	return fmt.Sprintf("lead_intel:%s:%s", tenantID, leadID)
}

func (e *Engine) runPipeline(ctx context.Context, lead model.LeadRecord, tenantID string, opts AnalyzeOptions) (*model.ScoreResult, error) {
	leadID := lead.LeadID()
	key := cacheKey(tenantID, leadID)

	if !opts.ForceRefresh {
		data, hit, err := e.cache.Get(ctx, key)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "engine: cache read"))
		}
		if hit {
			cached, err := model.DecodeScoreResult(data)
			if err == nil {
				e.metrics.recordHit()
				return cached, nil
			}
			// Undecodable entry: recompute rather than fail the lead.
			zap.L().Warn("engine: discarding corrupt cache entry",
				zap.String("lead_id", leadID),
				zap.Error(err),
			)
		}
	}
	e.metrics.recordMiss()

	base, err := e.scorer.Score(ctx, lead)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "engine: base question score"))
	}
	if base < 0 {
		base = 0
	} else if base > 7 {
		base = 7
	}

	signals := e.extractor.Extract(lead)
	agg := scoring.Compute(base, signals, e.patterns.Snapshot())
	tier := scoring.ClassifyTier(agg.ConversionProbability)

	rec := scoring.Recommendation{RecommendedApproach: "Standard engagement"}
	if opts.IncludeOptimization {
		rec = scoring.Advise(signals, agg.ConversionProbability)
	}

	confidence := 0.5
	if len(signals) > 0 {
		var sum float64
		for _, s := range signals {
			sum += s.Confidence
		}
		confidence = min(0.95, sum/float64(len(signals)))
	}

	now := e.nowFunc().UTC()
	result := &model.ScoreResult{
		LeadID:                leadID,
		TenantID:              tenantID,
		OverallScore:          agg.OverallScore,
		Tier:                  tier,
		ConversionProbability: agg.ConversionProbability,
		Signals:               signals,
		BaseQuestionScore:     agg.BaseQuestionScore,
		AIEnhancementBoost:    agg.AIEnhancementBoost,
		BehavioralMultiplier:  agg.BehavioralMultiplier,
		UrgencyLevel:          agg.UrgencyLevel,
		FinancialReadiness:    agg.FinancialReadiness,
		EmotionalCommitment:   agg.EmotionalCommitment,
		MarketSophistication:  agg.MarketSophistication,
		OptimalContactTime:    rec.OptimalContactTime,
		RecommendedApproach:   rec.RecommendedApproach,
		PriorityActions:       rec.PriorityActions,
		RiskFactors:           rec.RiskFactors,
		DetectionConfidence:   confidence,
		AnalyzedAt:            now,
		ExpiresAt:             now.Add(model.ResultTTL),
	}

	data, err := result.Encode()
	if err != nil {
		return nil, eris.Wrap(err, "engine: encode result")
	}
	if err := e.cache.Set(ctx, key, data, model.ResultTTL); err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "engine: cache write"))
	}

	e.metrics.recordDetection()

	zap.L().Debug("engine: lead analysis complete",
		zap.String("lead_id", leadID),
		zap.String("tier", string(tier)),
		zap.Float64("probability", agg.ConversionProbability),
	)

	return result, nil
}

// PerformanceReport is the engine's observability surface.
type PerformanceReport struct {
	Detection      MetricsSnapshot   `json:"detection_metrics"`
	CircuitBreaker resilience.Status `json:"circuit_breaker"`
	KnownPatterns  int               `json:"known_patterns"`
}

// PerformanceMetrics returns the current detection counters, circuit
// breaker state, and known-pattern count.
func (e *Engine) PerformanceMetrics() PerformanceReport {
	return PerformanceReport{
		Detection:      e.metrics.Snapshot(),
		CircuitBreaker: e.breaker.Status(),
		KnownPatterns:  e.patterns.Count(),
	}
}

// ResetCircuitBreaker forces the breaker closed with a zero failure
// count. Administrative recovery hook.
func (e *Engine) ResetCircuitBreaker() bool {
	e.breaker.Reset()
	zap.L().Info("engine: circuit breaker reset")
	return true
}

// UpsertPattern updates or inserts a known-conversion pattern by ID.
// Learning-loop hook; never called during a batch.
func (e *Engine) UpsertPattern(p model.Pattern) bool {
	ok := e.patterns.Upsert(p)
	if ok {
		zap.L().Info("engine: pattern upserted",
			zap.String("pattern_id", p.ID),
			zap.Float64("conversion_rate", p.ConversionRate),
		)
	}
	return ok
}
