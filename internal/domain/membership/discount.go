// internal/domain/membership/discount.go
package membership

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	zero    = decimal.Zero
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// CalculateDiscount prices a service for a member. The discount is zero
// unless the membership is valid and active at now and lists serviceID as
// eligible. Amounts are kept at full precision; round only for display.
func CalculateDiscount(price decimal.Decimal, m *Membership, serviceID string, now time.Time) DiscountResult {
	result := DiscountResult{
		OriginalPrice:      price,
		DiscountAmount:     zero,
		DiscountPercentage: zero,
		FinalPrice:         price,
		Savings:            zero,
	}

	if m == nil || serviceID == "" || !price.IsPositive() {
		return result
	}
	if !m.Benefits.EligibleServices.Contains(serviceID) {
		return result
	}
	if !Validate(m, now).Eligible() {
		return result
	}

	rate := clampRate(m.Benefits.ServiceDiscount)
	if rate.IsZero() {
		return result
	}

	discount := price.Mul(rate)
	if discount.GreaterThan(price) {
		discount = price
	}

	result.DiscountAmount = discount
	result.DiscountPercentage = rate.Mul(hundred)
	result.FinalPrice = price.Sub(discount)
	result.Savings = discount
	return result
}

func clampRate(rate decimal.Decimal) decimal.Decimal {
	if rate.IsNegative() {
		return zero
	}
	if rate.GreaterThan(one) {
		return one
	}
	return rate
}
