package utils

import (
	"github.com/shopspring/decimal"
)

// CalculateLineAmounts returns (subtotal, tax) for price*qty under a flat rate.
// Tax is rounded half away from zero to whole currency units; non-taxable lines carry zero tax.
func CalculateLineAmounts(unitPrice decimal.Decimal, qty int64, isTaxable bool, rate decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	subtotal := unitPrice.Mul(decimal.NewFromInt(qty))
	if !isTaxable || rate.IsZero() {
		return subtotal, decimal.Zero
	}
	return subtotal, subtotal.Mul(rate).Round(0)
}
