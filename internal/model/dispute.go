package model

import "time"

// Dispute represents a staked challenge to a submitted commitment.
// At most one dispute ever exists per commitment and the record is
// immutable once Resolved is set.
type Dispute struct {
	CommitmentID      string     `json:"commitment_id"`
	Disputer          string     `json:"disputer"`
	Stake             int64      `json:"stake"`
	CreatedAt         time.Time  `json:"created_at"`
	Resolved          bool       `json:"resolved"`
	FavorsContributor bool       `json:"favors_contributor"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
}
