package core

import "github.com/shopspring/decimal"

// Amounts are shopspring decimals so that sums of stored values never go
// through binary floating point. The ledger service rounds every balance and
// amount to cents before it reaches the store.

// NormalizeAmount rounds half away from zero to two decimal places.
func NormalizeAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatAmount renders an amount with exactly two decimals, e.g. "1234.50".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
