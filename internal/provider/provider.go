// Package provider defines the contract every institution provider
// implements, plus the optional capability extensions a provider may
// additionally satisfy. The orchestrator discovers capabilities through
// type assertions, so implementing an extension interface is all a provider
// needs to do to opt in.
package provider

import (
	"context"
	"time"

	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/domain"
)

// SecretLookup resolves a credential by key. The orchestrator namespaces the
// key to the relationship before it reaches the secret store, so the same
// provider can run under different names with independent credentials.
type SecretLookup func(key string) (string, error)

// Provider is the mandatory base contract: authenticate, extract balances,
// release resources. Logout must be safe to call even when Login failed, as
// the orchestrator invokes it unconditionally for cleanup.
type Provider interface {
	Institution() string
	Login(ctx context.Context, secrets SecretLookup, rel config.Relationship) error
	Logout(ctx context.Context) error
	Balances(ctx context.Context) ([]domain.AccountBalance, error)
}

// HistoricalProvider is the backfill capability: given the batch of missing
// calendar days planned by gapfill, return balance observations as of those
// days. Implementations pace their own per-day requests; each day typically
// costs a slow, rate-limited interaction with the institution.
type HistoricalProvider interface {
	Provider
	HistoricalBalances(ctx context.Context, dates []time.Time) ([]domain.HistoricalAccountBalance, error)
}

// DocumentProvider is the statement-download capability. Downloads into dir
// must be idempotent: a file that already exists is skipped, not replaced.
type DocumentProvider interface {
	Provider
	Documents(ctx context.Context, dir string) error
}

// CalculatedProvider derives balances from observations other relationships
// produced earlier in the same run. Relationship order in the config is the
// execution order, so a calculated relationship must be listed after the
// relationships it depends on.
type CalculatedProvider interface {
	Provider
	CalculatedBalances(ctx context.Context, others []domain.AccountBalance) ([]domain.AccountBalance, error)
}
