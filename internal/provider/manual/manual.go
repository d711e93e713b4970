// Package manual implements a provider for balances that can't be scraped:
// cash floats, vehicles, collectibles. Accounts and their balances are
// declared directly in the relationship config and reported as-is.
package manual

import (
	"context"

	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/domain"
	"github.com/tallyhq/tally/internal/provider"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func init() {
	provider.Register("manual", func(execCtx domain.ExecutionContext, logger *zap.Logger) provider.Provider {
		return &Provider{execCtx: execCtx, logger: logger}
	})
}

type settings struct {
	Accounts []struct {
		Name      string  `yaml:"name"`
		Number    string  `yaml:"number"`
		Balance   float64 `yaml:"balance"`
		ValueType string  `yaml:"valueType"`
	} `yaml:"accounts"`
}

// Provider reports the statically configured accounts. The relationship name
// doubles as the institution, so several manual relationships can coexist.
type Provider struct {
	execCtx  domain.ExecutionContext
	logger   *zap.Logger
	name     string
	settings settings
	loggedIn bool
}

func (p *Provider) Institution() string {
	if p.name != "" {
		return p.name
	}
	return "Manual"
}

func (p *Provider) Login(_ context.Context, _ provider.SecretLookup, rel config.Relationship) error {
	if err := rel.Decode(&p.settings); err != nil {
		return err
	}
	p.name = rel.Name
	p.loggedIn = true
	return nil
}

func (p *Provider) Logout(context.Context) error { return nil }

func (p *Provider) Balances(context.Context) ([]domain.AccountBalance, error) {
	if !p.loggedIn {
		return nil, &domain.ErrNotLoggedIn{Institution: p.Institution()}
	}

	balances := make([]domain.AccountBalance, 0, len(p.settings.Accounts))
	for _, a := range p.settings.Accounts {
		vt := domain.ValueType(a.ValueType)
		if vt == "" {
			vt = domain.GuessValueType(a.Name)
		}
		balances = append(balances, domain.AccountBalance{
			Institution:   p.name,
			AccountName:   a.Name,
			AccountNumber: a.Number,
			Balance:       decimal.NewFromFloat(a.Balance),
			ValueType:     vt,
		})
	}
	return balances, nil
}
