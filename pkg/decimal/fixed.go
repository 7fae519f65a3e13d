// Package decimal provides fixed-point arithmetic so the control plane
// reproduces byte-identical output across two runs with the same seed
// and clock. internal/safety uses it to round incident z-score/RoC
// values; the Scheduler's scores use shopspring/decimal directly, not
// this package. It wraps shopspring/decimal for the same reason a price
// or quantity would: 0.1+0.2 != 0.3 in float64, and that kind of drift
// would make two "identical" simulation runs diverge in their
// serialized JSON.
package decimal

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Fixed is a fixed-point number used for scores, weights, and metrics.
type Fixed struct {
	value decimal.Decimal
}

// NewFixedFromFloat builds a Fixed from a float64 input (e.g. a
// configured weight or an efficiency read from Equipment).
func NewFixedFromFloat(f float64) Fixed {
	return Fixed{value: decimal.NewFromFloat(f)}
}

// NewFixedFromString parses a Fixed from its decimal string form.
func NewFixedFromString(s string) (Fixed, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Fixed{}, fmt.Errorf("invalid fixed-point value: %w", err)
	}
	return Fixed{value: d}, nil
}

func Zero() Fixed { return Fixed{value: decimal.Zero} }

func (f Fixed) Add(other Fixed) Fixed { return Fixed{value: f.value.Add(other.value)} }
func (f Fixed) Sub(other Fixed) Fixed { return Fixed{value: f.value.Sub(other.value)} }
func (f Fixed) Mul(other Fixed) Fixed { return Fixed{value: f.value.Mul(other.value)} }

// MulFloat multiplies by a plain float64 weight or coefficient.
func (f Fixed) MulFloat(w float64) Fixed {
	return Fixed{value: f.value.Mul(decimal.NewFromFloat(w))}
}

func (f Fixed) Div(other Fixed) (Fixed, error) {
	if other.value.IsZero() {
		return Fixed{}, fmt.Errorf("division by zero")
	}
	return Fixed{value: f.value.Div(other.value)}, nil
}

func (f Fixed) Cmp(other Fixed) int { return f.value.Cmp(other.value) }

func (f Fixed) IsZero() bool { return f.value.IsZero() }

func (f Fixed) IsNegative() bool { return f.value.IsNegative() }

// Clamp01 clamps the value into [0, 1].
func (f Fixed) Clamp01() Fixed {
	zero := decimal.Zero
	one := decimal.NewFromInt(1)
	v := f.value
	if v.Cmp(zero) < 0 {
		v = zero
	}
	if v.Cmp(one) > 0 {
		v = one
	}
	return Fixed{value: v}
}

// Round rounds to the given number of decimal places. Incident z-score
// and RoC values are persisted rounded to 2 places.
func (f Fixed) Round(places int32) Fixed {
	return Fixed{value: f.value.Round(places)}
}

func (f Fixed) Float64() float64 {
	v, _ := f.value.Float64()
	return v
}

func (f Fixed) String() string { return f.value.StringFixed(4) }

// MarshalJSON renders the fixed-point value as its decimal string in
// JSON quotes (shopspring/decimal's default encoding), not a Go float,
// to avoid reintroducing the float imprecision this type exists to avoid.
func (f Fixed) MarshalJSON() ([]byte, error) {
	return f.value.MarshalJSON()
}

func (f *Fixed) UnmarshalJSON(data []byte) error {
	return f.value.UnmarshalJSON(data)
}

// Sum adds a set of Fixed values.
func Sum(values ...Fixed) Fixed {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v.value)
	}
	return Fixed{value: total}
}
