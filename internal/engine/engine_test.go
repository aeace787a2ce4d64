package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/cache"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/qualify"
	"github.com/sells-group/leadscore/internal/resilience"
	"github.com/sells-group/leadscore/internal/tenant"
)

// scorerFunc adapts a function to the BaseQuestionScorer interface.
type scorerFunc func(ctx context.Context, lead model.LeadRecord) (int, error)

func (f scorerFunc) Score(ctx context.Context, lead model.LeadRecord) (int, error) {
	return f(ctx, lead)
}

func newTestEngine(t *testing.T, cfg Config, scorer BaseQuestionScorer) *Engine {
	t.Helper()
	if scorer == nil {
		scorer = qualify.NewScorer()
	}
	return New(cfg, Deps{
		Scorer:  scorer,
		Tenants: tenant.NewStatic("tenant-1"),
		Cache:   cache.NewMemory(),
	})
}

func richLead(id string) model.LeadRecord {
	return model.LeadRecord{
		ID: id,
		Preferences: map[string]any{
			"timeline":  "asap",
			"budget":    500000.0,
			"financing": "pre-approved",
		},
		Conversation: []model.ConversationTurn{
			{Role: "user", Content: "We found our dream home and we are pre-approved"},
		},
	}
}

func TestAnalyze_TenantInvalid(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, DefaultConfig(), nil)

	_, err := eng.Analyze(context.Background(), richLead("l1"), "ghost", AnalyzeOptions{})
	require.Error(t, err)
	assert.True(t, resilience.IsValidation(err))
	assert.ErrorIs(t, err, ErrTenantInvalid)

	// Validation failures never reach the breaker.
	assert.Equal(t, 0, eng.PerformanceMetrics().CircuitBreaker.FailureCount)
}

func TestAnalyze_CacheIdempotence(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, DefaultConfig(), nil)
	ctx := context.Background()
	lead := richLead("l1")

	first, err := eng.Analyze(ctx, lead, "tenant-1", AnalyzeOptions{})
	require.NoError(t, err)

	second, err := eng.Analyze(ctx, lead, "tenant-1", AnalyzeOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, second, "cached result is returned verbatim")

	m := eng.PerformanceMetrics().Detection
	assert.Equal(t, int64(1), m.TotalDetections)
	assert.Equal(t, int64(1), m.CacheHits)
	assert.Equal(t, int64(1), m.CacheMisses)
	assert.InDelta(t, 50.0, m.CacheHitRate, 1e-9)
}

func TestAnalyze_ForceRefresh(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, DefaultConfig(), nil)
	ctx := context.Background()
	lead := richLead("l1")

	_, err := eng.Analyze(ctx, lead, "tenant-1", AnalyzeOptions{})
	require.NoError(t, err)

	_, err = eng.Analyze(ctx, lead, "tenant-1", AnalyzeOptions{ForceRefresh: true})
	require.NoError(t, err)

	m := eng.PerformanceMetrics().Detection
	assert.Equal(t, int64(2), m.TotalDetections)
	assert.Equal(t, int64(0), m.CacheHits)
	assert.Equal(t, int64(2), m.CacheMisses)
}

func TestAnalyze_ResultShape(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, DefaultConfig(), nil)

	res, err := eng.Analyze(context.Background(), richLead("l1"), "tenant-1", AnalyzeOptions{IncludeOptimization: true})
	require.NoError(t, err)

	assert.Equal(t, "l1", res.LeadID)
	assert.Equal(t, "tenant-1", res.TenantID)
	assert.Equal(t, 3, res.BaseQuestionScore)
	assert.Len(t, res.Signals, 4)
	assert.Equal(t, "Immediate (within 1 hour)", res.OptimalContactTime)
	assert.NotEmpty(t, res.PriorityActions)
	assert.Equal(t, res.AnalyzedAt.Add(model.ResultTTL), res.ExpiresAt)
	assert.GreaterOrEqual(t, res.ConversionProbability, 0.05)
	assert.LessOrEqual(t, res.ConversionProbability, 0.98)
}

func TestAnalyze_WithoutOptimization(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, DefaultConfig(), nil)

	res, err := eng.Analyze(context.Background(), richLead("l1"), "tenant-1", AnalyzeOptions{})
	require.NoError(t, err)

	assert.Empty(t, res.OptimalContactTime)
	assert.Equal(t, "Standard engagement", res.RecommendedApproach)
	assert.Empty(t, res.PriorityActions)
	assert.Empty(t, res.RiskFactors)
}

func TestAnalyze_CorruptCacheEntry(t *testing.T) {
	t.Parallel()

	store := cache.NewMemory()
	eng := New(DefaultConfig(), Deps{
		Scorer:  qualify.NewScorer(),
		Tenants: tenant.NewStatic("tenant-1"),
		Cache:   store,
	})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, cacheKey("tenant-1", "l1"), []byte("{garbage"), model.ResultTTL))

	res, err := eng.Analyze(ctx, richLead("l1"), "tenant-1", AnalyzeOptions{})
	require.NoError(t, err, "corrupt entries recompute instead of failing")
	assert.Equal(t, "l1", res.LeadID)
	assert.Equal(t, int64(1), eng.PerformanceMetrics().Detection.TotalDetections)
}

func TestAnalyze_ScorerFailure(t *testing.T) {
	t.Parallel()

	failing := scorerFunc(func(context.Context, model.LeadRecord) (int, error) {
		return 0, eris.New("scoring service down")
	})
	eng := newTestEngine(t, DefaultConfig(), failing)

	_, err := eng.Analyze(context.Background(), richLead("l1"), "tenant-1", AnalyzeOptions{})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, 1, eng.PerformanceMetrics().CircuitBreaker.FailureCount)
}

func TestAnalyze_BaseScoreClamped(t *testing.T) {
	t.Parallel()

	overshooting := scorerFunc(func(context.Context, model.LeadRecord) (int, error) {
		return 12, nil
	})
	eng := newTestEngine(t, DefaultConfig(), overshooting)

	res, err := eng.Analyze(context.Background(), model.LeadRecord{ID: "l1"}, "tenant-1", AnalyzeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 7, res.BaseQuestionScore)
}

func TestEngine_CircuitBreakerLifecycle(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.CircuitBreaker.FailureThreshold = 3

	failing := scorerFunc(func(context.Context, model.LeadRecord) (int, error) {
		return 0, eris.New("scoring service down")
	})
	eng := newTestEngine(t, cfg, failing)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := eng.Analyze(ctx, richLead(fmt.Sprintf("l%d", i)), "tenant-1", AnalyzeOptions{})
		require.Error(t, err)
	}
	assert.Equal(t, resilience.CircuitOpen, eng.PerformanceMetrics().CircuitBreaker.State)

	// Open circuit rejects before any work.
	_, err := eng.Analyze(ctx, richLead("l9"), "tenant-1", AnalyzeOptions{})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)

	require.True(t, eng.ResetCircuitBreaker())
	st := eng.PerformanceMetrics().CircuitBreaker
	assert.Equal(t, resilience.CircuitClosed, st.State)
	assert.Equal(t, 0, st.FailureCount)
}

func TestDetectBatch_RanksByProbability(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, Config{DefaultBatchSize: 2, Concurrency: 4}, nil)

	leads := []model.LeadRecord{
		{ID: "cold"},
		richLead("hot"),
		{ID: "warm", Preferences: map[string]any{"timeline": "soon", "budget": 250000.0}},
	}

	results, err := eng.DetectBatch(context.Background(), leads, "tenant-1", 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "hot", results[0].LeadID)
	assert.Equal(t, "warm", results[1].LeadID)
	assert.Equal(t, "cold", results[2].LeadID)
	assert.GreaterOrEqual(t, results[0].ConversionProbability, results[1].ConversionProbability)
	assert.GreaterOrEqual(t, results[1].ConversionProbability, results[2].ConversionProbability)
}

func TestDetectBatch_StableTieBreak(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, DefaultConfig(), nil)

	// Identical leads score identically; input order decides.
	leads := []model.LeadRecord{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	results, err := eng.DetectBatch(context.Background(), leads, "tenant-1", 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].LeadID)
	assert.Equal(t, "b", results[1].LeadID)
	assert.Equal(t, "c", results[2].LeadID)
}

func TestDetectBatch_PartialFailure(t *testing.T) {
	t.Parallel()

	flaky := scorerFunc(func(_ context.Context, lead model.LeadRecord) (int, error) {
		if lead.ID == "lead-3" {
			return 0, eris.New("scoring service down")
		}
		return 2, nil
	})
	eng := newTestEngine(t, Config{DefaultBatchSize: 4, Concurrency: 4}, flaky)

	leads := make([]model.LeadRecord, 10)
	for i := range leads {
		leads[i] = model.LeadRecord{ID: fmt.Sprintf("lead-%d", i)}
	}

	results, err := eng.DetectBatch(context.Background(), leads, "tenant-1", 0)
	require.NoError(t, err, "one bad lead never fails the batch")
	require.Len(t, results, 9)
	for _, r := range results {
		assert.NotEqual(t, "lead-3", r.LeadID)
	}
}

func TestDetectBatch_TenantInvalid(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, DefaultConfig(), nil)

	_, err := eng.DetectBatch(context.Background(), []model.LeadRecord{richLead("l1")}, "ghost", 0)
	require.Error(t, err)
	assert.True(t, resilience.IsValidation(err))
}

func TestDetectBatch_Cancelled(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, DefaultConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := eng.DetectBatch(ctx, []model.LeadRecord{richLead("l1")}, "tenant-1", 0)
	require.NoError(t, err, "cancellation yields partial results, not an error")
	assert.Empty(t, results)
}

func TestDetectBatch_Empty(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, DefaultConfig(), nil)

	results, err := eng.DetectBatch(context.Background(), nil, "tenant-1", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUpsertPattern(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, DefaultConfig(), nil)
	require.Equal(t, 3, eng.PerformanceMetrics().KnownPatterns)

	ok := eng.UpsertPattern(model.Pattern{
		ID:                 "cash_flipper",
		Name:               "Cash Flipper",
		RequiredCategories: []model.SignalCategory{model.CategoryBudgetClarity, model.CategoryMarketAwareness},
		ConversionRate:     0.71,
		SampleSize:         44,
	})
	assert.True(t, ok)
	assert.Equal(t, 4, eng.PerformanceMetrics().KnownPatterns)

	assert.False(t, eng.UpsertPattern(model.Pattern{Name: "no id"}))
	assert.Equal(t, 4, eng.PerformanceMetrics().KnownPatterns)
}

func TestPerformanceMetrics_InitialState(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, DefaultConfig(), nil)
	report := eng.PerformanceMetrics()

	assert.Equal(t, int64(0), report.Detection.TotalDetections)
	assert.Zero(t, report.Detection.CacheHitRate)
	assert.Equal(t, resilience.CircuitClosed, report.CircuitBreaker.State)
	assert.Equal(t, 5, report.CircuitBreaker.FailureThreshold)
	assert.Equal(t, 300.0, report.CircuitBreaker.RecoveryTimeout)
}
