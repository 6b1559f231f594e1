package model

import "time"

// EventType identifies the mutation that produced a change record
type EventType string

const (
	EventTenantRegistered EventType = "tenant.registered"
	EventTenantDeposited  EventType = "tenant.deposited"
	EventTenantWithdrawn  EventType = "tenant.withdrawn"
	EventCommitmentFunded EventType = "commitment.funded"
	EventWorkSubmitted    EventType = "commitment.submitted"
	EventCommitmentSettled EventType = "commitment.settled"
	EventCommitmentRefunded EventType = "commitment.refunded"
	EventDisputeOpened    EventType = "dispute.opened"
	EventDisputeResolved  EventType = "dispute.resolved"
	EventRoleRotated      EventType = "role.rotated"
)

// ChangeEvent is emitted on every successful mutation. It carries the
// ids, new state and balance figures an external indexer needs to
// rebuild read models without re-querying the engine.
type ChangeEvent struct {
	EventID      string          `json:"event_id"`
	Type         EventType       `json:"type"`
	TenantID     string          `json:"tenant_id,omitempty"`
	CommitmentID string          `json:"commitment_id,omitempty"`
	State        CommitmentState `json:"state,omitempty"`
	Amount       int64           `json:"amount,omitempty"`
	Stake        int64           `json:"stake,omitempty"`
	Balances     *BalanceSnapshot `json:"balances,omitempty"`
	Actor        string          `json:"actor,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// BalanceSnapshot captures a tenant's counters after a mutation
type BalanceSnapshot struct {
	TotalDeposited   int64 `json:"total_deposited"`
	TotalSpent       int64 `json:"total_spent"`
	TotalWithdrawn   int64 `json:"total_withdrawn"`
	AvailableBalance int64 `json:"available_balance"`
}

// SnapshotOf copies the tenant's counters into a snapshot
func SnapshotOf(t *Tenant) *BalanceSnapshot {
	return &BalanceSnapshot{
		TotalDeposited:   t.TotalDeposited,
		TotalSpent:       t.TotalSpent,
		TotalWithdrawn:   t.TotalWithdrawn,
		AvailableBalance: t.AvailableBalance,
	}
}
