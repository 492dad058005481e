// Package money holds the monetary primitives shared by every report: exact
// amounts are decimal.Decimal, uncertain amounts are a Range of two decimals.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Bound selects which value of a Range stands in for it when a single number
// is required, for example a chart point or a margin.
type Bound string

const (
	// BoundMid resolves a range to the midpoint of its bounds.
	BoundMid Bound = "mid"
	// BoundMin resolves a range to its pessimistic bound.
	BoundMin Bound = "min"
	// BoundMax resolves a range to its optimistic bound.
	BoundMax Bound = "max"
)

// Valid reports whether b is a recognised bound.
func (b Bound) Valid() bool {
	switch b {
	case BoundMid, BoundMin, BoundMax:
		return true
	}
	return false
}

var two = decimal.NewFromInt(2)

// Range is a [Min, Max] monetary interval. Min never exceeds Max.
type Range struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// NewRange builds a range from two bounds, swapping them when given out of order.
func NewRange(min, max decimal.Decimal) Range {
	if min.GreaterThan(max) {
		min, max = max, min
	}
	return Range{Min: min, Max: max}
}

// Exact returns the degenerate range of a known amount.
func Exact(v decimal.Decimal) Range {
	return Range{Min: v, Max: v}
}

// Add sums bound by bound.
func (r Range) Add(o Range) Range {
	return Range{Min: r.Min.Add(o.Min), Max: r.Max.Add(o.Max)}
}

// AddScalar adds an exact amount to both bounds.
func (r Range) AddScalar(v decimal.Decimal) Range {
	return Range{Min: r.Min.Add(v), Max: r.Max.Add(v)}
}

// Sub subtracts bound by bound. The result may be negative and is
// re-ordered when o is wider than r.
func (r Range) Sub(o Range) Range {
	return NewRange(r.Min.Sub(o.Min), r.Max.Sub(o.Max))
}

// SubCost subtracts a cost range using the profit rule: the low bound pays
// the highest cost and the high bound pays the lowest cost.
func (r Range) SubCost(cost Range) Range {
	return Range{Min: r.Min.Sub(cost.Max), Max: r.Max.Sub(cost.Min)}
}

// SubScalar subtracts an exact amount from both bounds.
func (r Range) SubScalar(v decimal.Decimal) Range {
	return Range{Min: r.Min.Sub(v), Max: r.Max.Sub(v)}
}

// ClampZero raises each negative bound to zero independently. Only
// remaining-balance metrics clamp.
func (r Range) ClampZero() Range {
	return Range{Min: decimal.Max(r.Min, decimal.Zero), Max: decimal.Max(r.Max, decimal.Zero)}
}

// DivScalar divides both bounds by n; a zero n yields the zero range.
func (r Range) DivScalar(n decimal.Decimal) Range {
	if n.IsZero() {
		return Range{}
	}
	return NewRange(r.Min.Div(n), r.Max.Div(n))
}

// Mid returns the midpoint of the range.
func (r Range) Mid() decimal.Decimal {
	return r.Min.Add(r.Max).Div(two)
}

// Resolve reduces the range to one value according to b. Unknown bounds
// resolve to the midpoint.
func (r Range) Resolve(b Bound) decimal.Decimal {
	switch b {
	case BoundMin:
		return r.Min
	case BoundMax:
		return r.Max
	default:
		return r.Mid()
	}
}

// Round rounds both bounds to the given number of places.
func (r Range) Round(places int32) Range {
	return Range{Min: r.Min.Round(places), Max: r.Max.Round(places)}
}

// IsZero reports whether both bounds are zero.
func (r Range) IsZero() bool {
	return r.Min.IsZero() && r.Max.IsZero()
}

// Equal compares both bounds numerically.
func (r Range) Equal(o Range) bool {
	return r.Min.Equal(o.Min) && r.Max.Equal(o.Max)
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s]", r.Min.String(), r.Max.String())
}
