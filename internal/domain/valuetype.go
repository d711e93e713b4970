package domain

import "strings"

// ValueType classifies a balance for portfolio composition reporting.
// The set is closed; providers assign one explicitly or via GuessValueType.
type ValueType string

const (
	ValueTypeCash             ValueType = "Cash"
	ValueTypeCashSavings      ValueType = "Cash Savings"
	ValueTypeSuperannuation   ValueType = "Superannuation"
	ValueTypeConsumerDebt     ValueType = "Consumer Debt"
	ValueTypePropertyMortgage ValueType = "Property Mortgage"
	ValueTypePropertyEquity   ValueType = "Property Equity"
	ValueTypeStoredValueCard  ValueType = "Stored Value Card"
	ValueTypeLoanOffset       ValueType = "Loan Offset"
	ValueTypeUnknown          ValueType = "Unknown"
)

// GuessValueType infers a classification from the account's display name.
// Providers that can't classify an account any better fall back to this.
func GuessValueType(accountName string) ValueType {
	name := strings.ToLower(accountName)

	switch {
	case strings.Contains(name, "superannuation"):
		return ValueTypeSuperannuation
	case strings.Contains(name, "savings"):
		return ValueTypeCashSavings
	case strings.Contains(name, "offset"):
		return ValueTypeLoanOffset
	case strings.Contains(name, "frequent flyer"):
		return ValueTypeConsumerDebt
	}

	return ValueTypeCash
}
