// Package service provides the business logic layer: the fetch orchestrator
// that drives providers through their lifecycle, and the wealth queries
// behind the dashboard API.
package service

import (
	"context"
	"os"
	"time"

	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/domain"
	"github.com/tallyhq/tally/internal/gapfill"
	"github.com/tallyhq/tally/internal/infra/observability"
	"github.com/tallyhq/tally/internal/infra/resilience"
	"github.com/tallyhq/tally/internal/port"
	"github.com/tallyhq/tally/internal/provider"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var fetchTracer = otel.Tracer("service/fetcher")

// Fetcher sequences login/extract/logout across every configured
// relationship, strictly in config order and strictly one at a time:
// providers commonly hold an exclusive automated-browser session, and
// concurrent sessions against one institution invite anti-automation
// defenses.
type Fetcher struct {
	cfg     *config.Config
	store   port.BalanceStore
	secrets port.SecretStore
	metrics *observability.Metrics
	logger  *zap.Logger
	breaker *gobreaker.CircuitBreaker
}

// NewFetcher creates the orchestrator.
func NewFetcher(cfg *config.Config, store port.BalanceStore, secrets port.SecretStore, metrics *observability.Metrics, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		cfg:     cfg,
		store:   store,
		secrets: secrets,
		metrics: metrics,
		logger:  logger,
		breaker: resilience.NewInstitutionBreaker("institutions"),
	}
}

// Fetch runs one full aggregation pass. Only configuration problems and
// store open/close failures are fatal; anything going wrong inside a single
// relationship is logged against that institution and the loop moves on.
func (f *Fetcher) Fetch(ctx context.Context, execCtx domain.ExecutionContext) (err error) {
	ctx, span := fetchTracer.Start(ctx, "Fetcher.Fetch")
	defer span.End()

	cfg, err := config.LoadRelationships(f.cfg.RelationshipsPath)
	if err != nil {
		return err
	}

	logger := f.logger.With(zap.String("run_id", uuid.NewString()))
	logger.Info("starting fetch", zap.Int("relationships", len(cfg.Relationships)))

	if err := os.MkdirAll(f.cfg.StatementDir, 0o755); err != nil {
		return err
	}

	if err := f.store.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if cerr := f.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	// Aggregate of everything collected this run, in processing order.
	// Calculated providers see only what was collected before them.
	var balances []domain.AccountBalance

	for _, rel := range cfg.Relationships {
		rel := rel
		// Only network-class failures count toward the breaker: bad
		// credentials or a changed page layout at one institution says
		// nothing about the next, but three connectivity failures in a row
		// mean the network is down and the rest should fail fast.
		var relErr error
		_, breakerErr := f.breaker.Execute(func() (any, error) {
			relErr = f.fetchRelationship(ctx, execCtx, rel, &balances)
			if resilience.IsNetworkError(relErr) {
				return nil, relErr
			}
			return nil, nil
		})
		if relErr == nil {
			relErr = breakerErr
		}
		if relErr != nil {
			f.metrics.IncrRelationship("failed")
			logger.Error("relationship failed",
				zap.String("relationship", rel.Name),
				zap.String("provider", rel.Provider),
				zap.Error(relErr),
			)
			continue
		}
		f.metrics.IncrRelationship("fetched")
	}

	summary := f.metrics.Snapshot()
	logger.Info("fetch complete",
		zap.Int64("balances_written", summary.Total()),
		zap.Int64("relationships_fetched", summary.Fetched),
		zap.Int64("relationships_failed", summary.Failed),
	)
	return nil
}

func (f *Fetcher) fetchRelationship(ctx context.Context, execCtx domain.ExecutionContext, rel config.Relationship, aggregate *[]domain.AccountBalance) error {
	ctx, span := fetchTracer.Start(ctx, "Fetcher.fetchRelationship")
	defer span.End()
	span.SetAttributes(
		attribute.String("relationship", rel.Name),
		attribute.String("provider", rel.Provider),
	)

	logger := f.logger.With(
		zap.String("relationship", rel.Name),
		zap.String("provider", rel.Provider),
	)
	logger.Info("fetching")

	p, err := provider.New(rel.Provider, execCtx, logger)
	if err != nil {
		return err
	}

	// Logout runs unconditionally so provider-held resources (typically a
	// driven browser session) are released even when extraction failed.
	defer func() {
		logger.Info("logging out")
		if err := p.Logout(ctx); err != nil {
			logger.Warn("logout failed", zap.Error(err))
		}
	}()

	lookup := func(key string) (string, error) {
		value, err := f.secrets.RetrieveSecret(rel.Name + ":" + key)
		if err != nil {
			f.metrics.IncrSecretLookup("miss")
			return "", err
		}
		f.metrics.IncrSecretLookup("hit")
		return value, nil
	}

	logger.Info("logging in")
	start := time.Now()
	err = resilience.RetryWithBackoff(ctx, resilience.Config{
		MaxRetries:     f.cfg.LoginRetries,
		InitialBackoff: f.cfg.LoginBackoff,
	}, func() error {
		return p.Login(ctx, lookup, rel)
	})
	f.metrics.RecordPhase("login", time.Since(start))
	if err != nil {
		return &domain.ErrRelationship{Relationship: rel.Name, Phase: "login", Err: err}
	}

	logger.Info("getting balances")
	start = time.Now()
	live, err := p.Balances(ctx)
	f.metrics.RecordPhase("balances", time.Since(start))
	if err != nil {
		return &domain.ErrRelationship{Relationship: rel.Name, Phase: "balances", Err: err}
	}
	logger.Info("found balances", zap.Int("count", len(live)))

	// Write-through, one row at a time: a crash after account N still
	// preserves accounts 1..N.
	for _, b := range live {
		if err := f.store.AddBalance(ctx, b); err != nil {
			return &domain.ErrRelationship{Relationship: rel.Name, Phase: "store", Err: err}
		}
		*aggregate = append(*aggregate, b)
		f.metrics.IncrBalancesWritten("live", 1)
	}

	if hp, ok := p.(provider.HistoricalProvider); ok {
		if err := f.backfill(ctx, hp, rel, logger); err != nil {
			return err
		}
	}

	if dp, ok := p.(provider.DocumentProvider); ok {
		logger.Info("getting documents")
		start = time.Now()
		err := dp.Documents(ctx, f.cfg.StatementDir)
		f.metrics.RecordPhase("documents", time.Since(start))
		if err != nil {
			// Statements are nice-to-have; a failed download never fails
			// the relationship.
			logger.Error("document download failed", zap.Error(err))
		}
	} else {
		logger.Debug("doesn't support documents; skipping")
	}

	if cp, ok := p.(provider.CalculatedProvider); ok {
		logger.Info("calculating balances")
		start = time.Now()
		calculated, err := cp.CalculatedBalances(ctx, *aggregate)
		f.metrics.RecordPhase("calculated", time.Since(start))
		if err != nil {
			return &domain.ErrRelationship{Relationship: rel.Name, Phase: "calculated", Err: err}
		}
		logger.Info("calculated balances", zap.Int("count", len(calculated)))

		for _, b := range calculated {
			if err := f.store.AddBalance(ctx, b); err != nil {
				return &domain.ErrRelationship{Relationship: rel.Name, Phase: "store", Err: err}
			}
			*aggregate = append(*aggregate, b)
			f.metrics.IncrBalancesWritten("calculated", 1)
		}
	}

	return nil
}

// backfill asks a historical provider for the calendar days missing between
// its earliest and latest known observations, bounded to one batch per run.
func (f *Fetcher) backfill(ctx context.Context, hp provider.HistoricalProvider, rel config.Relationship, logger *zap.Logger) error {
	records, err := f.store.AllBalances(ctx, hp.Institution())
	if err != nil {
		return &domain.ErrRelationship{Relationship: rel.Name, Phase: "historical", Err: err}
	}

	known := make([]time.Time, 0, len(records))
	for _, r := range records {
		known = append(known, r.Date)
	}

	dates := gapfill.Plan(known, f.cfg.BackfillBatchSize)
	if len(dates) == 0 {
		logger.Info("no historical gaps to backfill")
		return nil
	}
	logger.Info("getting historical balances", zap.Int("dates", len(dates)))

	start := time.Now()
	historical, err := hp.HistoricalBalances(ctx, dates)
	f.metrics.RecordPhase("historical", time.Since(start))
	if err != nil {
		return &domain.ErrRelationship{Relationship: rel.Name, Phase: "historical", Err: err}
	}
	logger.Info("found historical balances", zap.Int("count", len(historical)))

	for _, b := range historical {
		if err := f.store.AddHistoricalBalance(ctx, b); err != nil {
			return &domain.ErrRelationship{Relationship: rel.Name, Phase: "store", Err: err}
		}
		f.metrics.IncrBalancesWritten("historical", 1)
	}
	return nil
}
