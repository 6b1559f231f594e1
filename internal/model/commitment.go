package model

import "time"

// CommitmentState represents the lifecycle stage of a commitment
type CommitmentState string

const (
	StateFunded    CommitmentState = "FUNDED"
	StateSubmitted CommitmentState = "SUBMITTED"
	StateDisputed  CommitmentState = "DISPUTED"
	StateSettled   CommitmentState = "SETTLED"
	StateRefunded  CommitmentState = "REFUNDED"
)

// Terminal reports whether no further transitions exist from the state
func (s CommitmentState) Terminal() bool {
	return s == StateSettled || s == StateRefunded
}

// Commitment represents one escrowed work agreement. Amount is fixed at
// creation and the evidence reference is write-once. Funds are debited
// from the owning tenant the moment the commitment is created.
type Commitment struct {
	CommitmentID  string          `json:"commitment_id"`
	TenantID      string          `json:"tenant_id"`
	CreatedBy     string          `json:"created_by"`
	Contributor   string          `json:"contributor"`
	Token         string          `json:"token"`
	Amount        int64           `json:"amount"`
	Deadline      time.Time       `json:"deadline"`
	DisputeWindow time.Duration   `json:"dispute_window"`
	SpecRef       string          `json:"spec_ref"`
	EvidenceRef   string          `json:"evidence_ref,omitempty"`
	State         CommitmentState `json:"state"`
	CreatedAt     time.Time       `json:"created_at"`
	SubmittedAt   *time.Time      `json:"submitted_at,omitempty"`
}

// SettleableAt returns the earliest instant automatic settlement is
// allowed. The zero time is returned before submission.
func (c *Commitment) SettleableAt() time.Time {
	if c.SubmittedAt == nil {
		return time.Time{}
	}
	return c.SubmittedAt.Add(c.DisputeWindow)
}

// Settleable reports whether the commitment can settle at the given
// instant: submitted, undisputed, and past the dispute window. The
// delivery deadline deliberately plays no part here; the dispute clock
// starts at submission, so late delivery never shortens the window.
func (c *Commitment) Settleable(now time.Time) bool {
	if c.State != StateSubmitted || c.SubmittedAt == nil {
		return false
	}
	return !now.Before(c.SettleableAt())
}
