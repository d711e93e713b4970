// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from concrete implementations.
package port

import (
	"context"

	"github.com/tallyhq/tally/internal/domain"

	"github.com/shopspring/decimal"
)

// BalanceStore is the durable, append-only time series of balance
// observations. Implemented by the sqlite adapter. The store is a
// single-writer resource: opened once per run and closed once at the end.
type BalanceStore interface {
	// Open acquires the backing store and applies schema migrations.
	Open(ctx context.Context) error
	// Close releases the backing store. Closing before Open is an error.
	Close() error

	// AddBalance appends an observation stamped with the current time.
	AddBalance(ctx context.Context, b domain.AccountBalance) error
	// AddHistoricalBalance appends an observation stamped with its explicit
	// as-of date.
	AddHistoricalBalance(ctx context.Context, b domain.HistoricalAccountBalance) error

	// AllBalances returns the latest balance per account per calendar day it
	// was observed, ordered by value type, date, institution and account
	// name. An empty institution returns every institution.
	AllBalances(ctx context.Context, institution string) ([]domain.BalanceRecord, error)
	// NetWealth sums the single latest balance per account across the whole
	// store. An empty store yields zero.
	NetWealth(ctx context.Context) (decimal.Decimal, error)
}

// SecretStore resolves and persists credentials for providers. Keys are
// namespaced per relationship by the orchestrator; providers never learn
// which backend served a value.
type SecretStore interface {
	RetrieveSecret(key string) (string, error)
	StoreSecret(key, value string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
