package service

import (
	"context"
	"testing"
	"time"

	"github.com/tallyhq/tally/internal/domain"
	"github.com/tallyhq/tally/internal/infra/cache"
	"github.com/tallyhq/tally/internal/infra/observability"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// countingStore records how often each query hits the store, to verify the
// cache actually absorbs repeat queries.
type countingStore struct {
	records        []domain.BalanceRecord
	netWealth      decimal.Decimal
	allCalls       int
	netWealthCalls int
}

func (s *countingStore) Open(context.Context) error { return nil }
func (s *countingStore) Close() error               { return nil }
func (s *countingStore) AddBalance(context.Context, domain.AccountBalance) error {
	return nil
}
func (s *countingStore) AddHistoricalBalance(context.Context, domain.HistoricalAccountBalance) error {
	return nil
}
func (s *countingStore) AllBalances(context.Context, string) ([]domain.BalanceRecord, error) {
	s.allCalls++
	return s.records, nil
}
func (s *countingStore) NetWealth(context.Context) (decimal.Decimal, error) {
	s.netWealthCalls++
	return s.netWealth, nil
}

func newTestWealth(store *countingStore) *Wealth {
	return NewWealth(store, cache.New[any](time.Minute), observability.NewMetrics(), zap.NewNop())
}

func record(date time.Time, institution, number, amount string) domain.BalanceRecord {
	return domain.BalanceRecord{
		Date:          date,
		Institution:   institution,
		AccountNumber: number,
		AccountName:   number,
		Balance:       decimal.RequireFromString(amount),
		ValueType:     domain.ValueTypeCash,
	}
}

func TestNetWealthIsCached(t *testing.T) {
	store := &countingStore{netWealth: decimal.RequireFromString("99.00")}
	w := newTestWealth(store)

	for i := 0; i < 3; i++ {
		value, err := w.NetWealth(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !value.Equal(decimal.RequireFromString("99.00")) {
			t.Errorf("expected 99.00, got %s", value)
		}
	}

	if store.netWealthCalls != 1 {
		t.Errorf("expected 1 store query, got %d", store.netWealthCalls)
	}
}

func TestBalancesAreCached(t *testing.T) {
	store := &countingStore{records: []domain.BalanceRecord{
		record(time.Now(), "Bank", "1", "10.00"),
	}}
	w := newTestWealth(store)

	for i := 0; i < 3; i++ {
		records, err := w.Balances(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
	}

	if store.allCalls != 1 {
		t.Errorf("expected 1 store query, got %d", store.allCalls)
	}
}

func TestDataIssues(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-2 * time.Hour)
	yesterday := now.AddDate(0, 0, -1)
	stale := now.AddDate(0, 0, -5)

	store := &countingStore{records: []domain.BalanceRecord{
		// Stale but nonzero: an issue.
		record(stale, "Quiet Bank", "1", "500.00"),
		// Stale and zero: closed account, not an issue.
		record(stale, "Closed Bank", "2", "0"),
		// Fresh: not an issue.
		record(fresh, "Active Bank", "3", "10.00"),
		// Same account seen stale then fresh: only the latest row counts.
		record(stale, "Recovered Bank", "4", "20.00"),
		record(fresh, "Recovered Bank", "4", "25.00"),
		// Observed yesterday: not yet more than one full day stale.
		record(yesterday, "Slow Bank", "5", "30.00"),
		// Two full days ago: stale.
		record(now.AddDate(0, 0, -2), "Boundary Bank", "6", "40.00"),
	}}
	w := newTestWealth(store)
	w.now = func() time.Time { return now }

	issues, err := w.DataIssues(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if issues != 2 {
		t.Errorf("expected 2 data issues, got %d", issues)
	}
}

func TestDataIssues_EmptyStore(t *testing.T) {
	w := newTestWealth(&countingStore{})

	issues, err := w.DataIssues(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if issues != 0 {
		t.Errorf("expected 0 data issues, got %d", issues)
	}
}
