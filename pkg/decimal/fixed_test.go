package decimal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedArithmeticAvoidsFloatDrift(t *testing.T) {
	a := NewFixedFromFloat(0.1)
	b := NewFixedFromFloat(0.2)

	assert.Equal(t, "0.3000", a.Add(b).String())
}

func TestFixedClamp01(t *testing.T) {
	t.Run("clamps below zero", func(t *testing.T) {
		f := NewFixedFromFloat(-0.5)
		assert.True(t, f.Clamp01().IsZero())
	})

	t.Run("clamps above one", func(t *testing.T) {
		f := NewFixedFromFloat(1.5)
		one, _ := NewFixedFromString("1")
		assert.Equal(t, 0, f.Clamp01().Cmp(one))
	})

	t.Run("passes through values already in range", func(t *testing.T) {
		f := NewFixedFromFloat(0.42)
		assert.Equal(t, 0, f.Clamp01().Cmp(f))
	})
}

func TestFixedRound(t *testing.T) {
	f := NewFixedFromFloat(3.14159)
	assert.InDelta(t, 3.14, f.Round(2).Float64(), 0.0001)
}

func TestFixedDivByZero(t *testing.T) {
	a := NewFixedFromFloat(10)
	_, err := a.Div(Zero())
	assert.Error(t, err)
}

func TestSum(t *testing.T) {
	weights := []Fixed{
		NewFixedFromFloat(0.3),
		NewFixedFromFloat(0.3),
		NewFixedFromFloat(0.2),
		NewFixedFromFloat(0.2),
	}
	total := Sum(weights...)
	assert.InDelta(t, 1.0, total.Float64(), 0.0001)
}

func TestFixedJSONRoundTrip(t *testing.T) {
	f := NewFixedFromFloat(12.5)
	data, err := f.MarshalJSON()
	assert.NoError(t, err)

	var out Fixed
	assert.NoError(t, out.UnmarshalJSON(data))
	assert.Equal(t, 0, f.Cmp(out))
}
