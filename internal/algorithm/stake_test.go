package algorithm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiredStakeNeverBelowBaseline(t *testing.T) {
	calc := NewStakeCalculator(50)

	// All multipliers bottom out at 1, so the formula can only raise
	// the price above the baseline.
	stake := calc.RequiredStake(1000, 0, 0)
	assert.GreaterOrEqual(t, stake, calc.Baseline())
}

func TestTimeMultiplierDecaysWithDistance(t *testing.T) {
	// Last-minute disputes pay the full surcharge.
	assert.InDelta(t, 1.5, TimeMultiplier(0), 1e-9)

	// The surcharge shrinks monotonically as the boundary recedes.
	prev := TimeMultiplier(0)
	for _, days := range []float64{0.5, 1, 2, 5, 10, 30} {
		m := TimeMultiplier(days)
		assert.Less(t, m, prev, "multiplier must decay at %v days", days)
		assert.Greater(t, m, 1.0)
		prev = m
	}
}

func TestReputationMultiplierGrowsLogarithmically(t *testing.T) {
	assert.InDelta(t, 1.0, ReputationMultiplier(0), 1e-9)

	low := ReputationMultiplier(1_000)
	high := ReputationMultiplier(1_000_000)
	assert.Greater(t, high, low)

	// Saturation: a thousandfold reputation gain moves the multiplier
	// far less than proportionally.
	assert.Less(t, high-low, 0.01)
}

func TestConfidenceMultiplierThresholds(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		expected   float64
	}{
		{"no verification", 0.0, 1.0},
		{"weak verification", 0.79, 1.0},
		{"mid boundary", 0.80, 1.5},
		{"mid band", 0.90, 1.5},
		{"high boundary", 0.95, 2.0},
		{"certain", 1.0, 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConfidenceMultiplier(tt.confidence))
		})
	}
}

func TestRequiredStakeMonotonicInConfidence(t *testing.T) {
	calc := NewStakeCalculator(100)

	low := calc.RequiredStake(5, 10_000, 0.5)
	mid := calc.RequiredStake(5, 10_000, 0.85)
	high := calc.RequiredStake(5, 10_000, 0.99)

	assert.Less(t, low, mid)
	assert.Less(t, mid, high)
}

func TestRequiredStakeClampsNegativeInputs(t *testing.T) {
	calc := NewStakeCalculator(100)

	assert.Equal(t, calc.RequiredStake(0, 0, 0), calc.RequiredStake(-5, -100, 0))
}

func TestRequiredStakeRoundsUp(t *testing.T) {
	calc := NewStakeCalculator(1)

	// Any fractional product must round toward the protocol, never the
	// disputer.
	stake := calc.RequiredStake(0, 0, 0)
	assert.Equal(t, int64(2), stake) // ceil(1 * 1.5)
}
