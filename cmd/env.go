package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/cache"
	"github.com/sells-group/leadscore/internal/engine"
	"github.com/sells-group/leadscore/internal/qualify"
	"github.com/sells-group/leadscore/internal/resilience"
	"github.com/sells-group/leadscore/internal/scoring"
	"github.com/sells-group/leadscore/internal/signal"
	"github.com/sells-group/leadscore/internal/tenant"
)

// env holds the wired engine and the resources it owns.
type env struct {
	Engine  *engine.Engine
	closers []func()
}

// Close releases owned resources in reverse order.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// initEngine builds the engine from config: rule tables, cache backend,
// tenant validator, base question scorer.
func initEngine(ctx context.Context) (*env, error) {
	e := &env{}

	rules := signal.RuleSet(nil)
	if cfg.Signals.RulesPath != "" {
		loaded, err := signal.LoadRules(cfg.Signals.RulesPath)
		if err != nil {
			return nil, err
		}
		rules = loaded
		zap.L().Info("loaded signal rules", zap.String("path", cfg.Signals.RulesPath))
	}

	var store cache.Store
	switch cfg.Cache.Driver {
	case "redis":
		r, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, func() { _ = r.Close() })
		store = r
	case "memory", "":
		store = cache.NewMemory()
	default:
		return nil, eris.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}

	var tenants tenant.Validator
	switch cfg.Tenant.Driver {
	case "postgres":
		pg, err := tenant.NewPostgres(ctx, cfg.Tenant.DatabaseURL)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, pg.Close)
		tenants = pg
	case "static", "":
		tenants = tenant.NewStatic(cfg.Tenant.Allowlist...)
	default:
		return nil, eris.Errorf("unknown tenant driver %q", cfg.Tenant.Driver)
	}

	e.Engine = engine.New(engine.Config{
		DefaultBatchSize: cfg.Engine.BatchSize,
		Concurrency:      cfg.Engine.Concurrency,
		RateLimit:        cfg.Engine.RateLimit,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Engine.FailureThreshold,
			RecoveryTimeout:  time.Duration(cfg.Engine.RecoveryTimeoutSecs) * time.Second,
		},
	}, engine.Deps{
		Extractor: signal.NewExtractor(rules),
		Patterns:  scoring.NewPatternBook(scoring.SeedPatterns()...),
		Scorer:    qualify.NewScorer(),
		Tenants:   tenants,
		Cache:     store,
	})

	return e, nil
}
