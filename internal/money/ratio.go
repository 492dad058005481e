package money

import "github.com/shopspring/decimal"

// RatioPlaces is the precision of every percentage and ratio we emit.
const RatioPlaces = 2

var hundred = decimal.NewFromInt(100)

// SafeDivide divides num by den, returning fallback when den is zero.
func SafeDivide(num, den, fallback decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return fallback
	}
	return num.Div(den)
}

// PercentChange is (current - previous) / previous * 100, zero when the
// previous value is zero.
func PercentChange(current, previous decimal.Decimal) decimal.Decimal {
	return SafeDivide(current.Sub(previous), previous, decimal.Zero).Mul(hundred).Round(RatioPlaces)
}

// Percent is part / total * 100, zero when total is zero.
func Percent(part, total decimal.Decimal) decimal.Decimal {
	return SafeDivide(part, total, decimal.Zero).Mul(hundred).Round(RatioPlaces)
}

// Average is total / count, zero when count is zero.
func Average(total decimal.Decimal, count int) decimal.Decimal {
	return SafeDivide(total, decimal.NewFromInt(int64(count)), decimal.Zero).Round(RatioPlaces)
}
