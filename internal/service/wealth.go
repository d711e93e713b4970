package service

import (
	"context"
	"time"

	"github.com/tallyhq/tally/internal/domain"
	"github.com/tallyhq/tally/internal/infra/observability"
	"github.com/tallyhq/tally/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var wealthTracer = otel.Tracer("service/wealth")

// Wealth serves the read-only dashboard queries. Results are cached briefly;
// the underlying data only changes when a fetch run completes.
type Wealth struct {
	store   port.BalanceStore
	cache   port.Cache[any]
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewWealth creates the query service on an already-open store.
func NewWealth(store port.BalanceStore, cache port.Cache[any], metrics *observability.Metrics, logger *zap.Logger) *Wealth {
	return &Wealth{store: store, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// NetWealth returns the sum of the latest balance per account across all
// institutions.
func (s *Wealth) NetWealth(ctx context.Context) (decimal.Decimal, error) {
	ctx, span := wealthTracer.Start(ctx, "Wealth.NetWealth")
	defer span.End()

	if cached, ok := s.cache.Get("net_wealth"); ok {
		return cached.(decimal.Decimal), nil
	}

	start := time.Now()
	value, err := s.store.NetWealth(ctx)
	s.metrics.RecordQuery("net_wealth", time.Since(start))
	if err != nil {
		return decimal.Zero, err
	}

	s.cache.Set("net_wealth", value)
	return value, nil
}

// Balances returns the full latest-per-account-per-day history used to draw
// the net-worth-over-time chart.
func (s *Wealth) Balances(ctx context.Context) ([]domain.BalanceRecord, error) {
	ctx, span := wealthTracer.Start(ctx, "Wealth.Balances")
	defer span.End()

	if cached, ok := s.cache.Get("balances"); ok {
		return cached.([]domain.BalanceRecord), nil
	}

	start := time.Now()
	records, err := s.store.AllBalances(ctx, "")
	s.metrics.RecordQuery("balances", time.Since(start))
	if err != nil {
		return nil, err
	}

	s.cache.Set("balances", records)
	return records, nil
}

// DataIssues counts accounts whose latest nonzero balance is more than one
// full day stale — institutions that silently stopped yielding data and need
// attention. An observation from yesterday is still fine; the day before is
// not.
func (s *Wealth) DataIssues(ctx context.Context) (int, error) {
	ctx, span := wealthTracer.Start(ctx, "Wealth.DataIssues")
	defer span.End()

	records, err := s.Balances(ctx)
	if err != nil {
		return 0, err
	}

	type accountKey struct {
		institution, number string
	}
	latest := make(map[accountKey]domain.BalanceRecord)
	for _, r := range records {
		key := accountKey{r.Institution, r.AccountNumber}
		if existing, ok := latest[key]; !ok || r.Date.After(existing.Date) {
			latest[key] = r
		}
	}

	cutoff := s.now().UTC().AddDate(0, 0, -2)
	issues := 0
	for _, r := range latest {
		if !r.Balance.IsZero() && !r.Date.After(cutoff) {
			issues++
		}
	}
	return issues, nil
}
