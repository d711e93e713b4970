// Package property implements the mortgaged-property calculated provider.
// It owns no institution login; instead it derives the mortgaged portion and
// equity of a property from a loan balance another relationship scraped
// earlier in the same run.
package property

import (
	"context"

	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/domain"
	"github.com/tallyhq/tally/internal/provider"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const institution = "Mortgaged Property"

func init() {
	provider.Register("property", func(execCtx domain.ExecutionContext, logger *zap.Logger) provider.Provider {
		return &Provider{execCtx: execCtx, logger: logger}
	})
}

type settings struct {
	// Value is the estimated market value of the property.
	Value float64 `yaml:"value"`
	// Loan identifies the mortgage account, which must be fetched by another
	// relationship earlier in the same run.
	Loan struct {
		Institution   string `yaml:"institution"`
		AccountNumber string `yaml:"accountNumber"`
	} `yaml:"loan"`
}

// Provider satisfies the base contract plus the calculated-balances
// capability. Login only captures the relationship settings.
type Provider struct {
	execCtx  domain.ExecutionContext
	logger   *zap.Logger
	name     string
	settings settings
	loggedIn bool
}

func (p *Provider) Institution() string { return institution }

func (p *Provider) Login(_ context.Context, _ provider.SecretLookup, rel config.Relationship) error {
	if err := rel.Decode(&p.settings); err != nil {
		return err
	}
	p.name = rel.Name
	p.loggedIn = true
	return nil
}

func (p *Provider) Logout(context.Context) error { return nil }

// Balances is empty: everything this provider reports is calculated.
func (p *Provider) Balances(context.Context) ([]domain.AccountBalance, error) {
	return nil, nil
}

// CalculatedBalances emits a mortgage/equity pair derived from the loan
// balance found among the observations collected so far this run. A missing
// loan balance is diagnosed and skipped rather than failing the
// relationship: the loan may simply be configured later in the run, or its
// provider may have failed independently.
func (p *Provider) CalculatedBalances(_ context.Context, others []domain.AccountBalance) ([]domain.AccountBalance, error) {
	if !p.loggedIn {
		return nil, &domain.ErrNotLoggedIn{Institution: institution}
	}

	var loan *domain.AccountBalance
	for i := range others {
		if others[i].Institution == p.settings.Loan.Institution &&
			others[i].AccountNumber == p.settings.Loan.AccountNumber {
			loan = &others[i]
			break
		}
	}

	if loan == nil {
		p.logger.Warn("loan balance not found in this run; it must be fetched by an earlier relationship (execution order follows config order)",
			zap.String("relationship", p.name),
			zap.String("loan_institution", p.settings.Loan.Institution),
			zap.String("loan_account", p.settings.Loan.AccountNumber),
			zap.Int("balances_seen", len(others)),
		)
		return nil, nil
	}

	// The loan is a liability (negative), so the mortgaged portion of the
	// property's value is its negation.
	mortgaged := loan.Balance.Neg()
	value := decimal.NewFromFloat(p.settings.Value)

	return []domain.AccountBalance{
		{
			Institution:   institution,
			AccountName:   p.name,
			AccountNumber: "Mortgaged " + p.name,
			Balance:       mortgaged,
			ValueType:     domain.ValueTypePropertyMortgage,
		},
		{
			Institution:   institution,
			AccountName:   p.name,
			AccountNumber: "Equity " + p.name,
			Balance:       value.Sub(mortgaged),
			ValueType:     domain.ValueTypePropertyEquity,
		},
	}, nil
}
