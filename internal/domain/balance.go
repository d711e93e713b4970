package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Balance observations
// ============================================================

// AccountBalance is a single point-in-time balance observation as reported by
// a provider. A negative balance indicates a liability (money owed).
type AccountBalance struct {
	Institution   string          `json:"institution"`
	AccountName   string          `json:"account_name"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	ValueType     ValueType       `json:"value_type"`
}

// HistoricalAccountBalance is an AccountBalance observed as of an explicit
// past date, rather than at fetch time. Only providers with the historical
// capability produce these.
type HistoricalAccountBalance struct {
	AccountBalance
	Date time.Time `json:"date"`
}

// BalanceRecord is the persisted view of a balance: one row per account per
// day it was observed, carrying the latest value for that day.
type BalanceRecord struct {
	Date          time.Time       `json:"date"`
	Institution   string          `json:"institution"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	Balance       decimal.Decimal `json:"balance"`
	ValueType     ValueType       `json:"value_type"`
}

// ExecutionContext carries run-wide flags that every orchestrator and
// provider call receives explicitly. Debug switches provider automation from
// headless to visible mode and enables verbose logging.
type ExecutionContext struct {
	Debug bool
}

// minorUnitFactor scales dollars to integer cents for storage.
var minorUnitFactor = decimal.NewFromInt(100)

// MinorUnits converts a decimal balance to integer minor units (cents),
// truncating toward zero. Sub-cent precision is deliberately discarded;
// storing integers avoids binary floating-point drift across repeated writes.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Mul(minorUnitFactor).Truncate(0).IntPart()
}

// FromMinorUnits converts stored integer cents back to a decimal balance.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
