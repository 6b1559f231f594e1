package algorithm

import "math"

// Stake pricing constants
const (
	// TimeDecayLambda controls how fast the late-dispute surcharge grows
	TimeDecayLambda = 0.5

	// ReputationScale dampens the logarithmic reputation multiplier
	ReputationScale = 10000.0

	// Confidence thresholds for the verification multiplier
	ConfidenceHigh = 0.95
	ConfidenceMid  = 0.80
)

// StakeCalculator computes the advisory stake required to open a
// dispute. The full formula is computed by callers; the engine only
// enforces the baseline, so this calculator never sees enforcement
// paths and stays a pure function of its inputs.
type StakeCalculator struct {
	baseline int64
}

// NewStakeCalculator creates a stake calculator with the given
// baseline stake (the engine-enforced minimum)
func NewStakeCalculator(baseline int64) *StakeCalculator {
	return &StakeCalculator{baseline: baseline}
}

// Baseline returns the enforced minimum stake
func (c *StakeCalculator) Baseline() int64 {
	return c.baseline
}

// RequiredStake computes Sreq = Sbase * Mtime * Mrep * MAI.
//
// timeRemainingDays is the time left until the settlement boundary;
// totalValueSettled is the contributor's settled-value reputation
// aggregate; aiConfidence is the external verification score in [0,1].
// The result is rounded up so truncation can never undercut the
// multiplied price.
func (c *StakeCalculator) RequiredStake(timeRemainingDays float64, totalValueSettled int64, aiConfidence float64) int64 {
	if timeRemainingDays < 0 {
		timeRemainingDays = 0
	}
	if totalValueSettled < 0 {
		totalValueSettled = 0
	}

	mTime := TimeMultiplier(timeRemainingDays)
	mRep := ReputationMultiplier(totalValueSettled)
	mAI := ConfidenceMultiplier(aiConfidence)

	required := float64(c.baseline) * mTime * mRep * mAI
	return int64(math.Ceil(required))
}

// TimeMultiplier penalizes disputes filed close to the settlement
// boundary: 1 + 0.5 * e^(-lambda * daysRemaining). Approaches 1.5 as
// the boundary nears and decays toward 1 for early disputes.
func TimeMultiplier(timeRemainingDays float64) float64 {
	return 1 + 0.5*math.Exp(-TimeDecayLambda*timeRemainingDays)
}

// ReputationMultiplier grows logarithmically with the contributor's
// settled value so reputation protection saturates rather than
// growing unbounded: 1 + ln(totalValueSettled + 1) / K.
func ReputationMultiplier(totalValueSettled int64) float64 {
	return 1 + math.Log(float64(totalValueSettled)+1)/ReputationScale
}

// ConfidenceMultiplier makes disputing well-verified work
// disproportionately expensive
func ConfidenceMultiplier(aiConfidence float64) float64 {
	switch {
	case aiConfidence >= ConfidenceHigh:
		return 2.0
	case aiConfidence >= ConfidenceMid:
		return 1.5
	default:
		return 1.0
	}
}
