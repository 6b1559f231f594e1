package model

import "time"

// Tenant represents one funding treasury and its balance counters.
// TotalDeposited, TotalSpent and TotalWithdrawn only ever grow;
// AvailableBalance must always equal their difference.
type Tenant struct {
	TenantID         string    `json:"tenant_id"`
	AdminID          string    `json:"admin_id"`
	Active           bool      `json:"active"`
	TotalDeposited   int64     `json:"total_deposited"`
	TotalSpent       int64     `json:"total_spent"`
	TotalWithdrawn   int64     `json:"total_withdrawn"`
	AvailableBalance int64     `json:"available_balance"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CheckInvariant verifies the balance accounting identity.
// Returns false when the counters no longer reconcile.
func (t *Tenant) CheckInvariant() bool {
	if t.AvailableBalance != t.TotalDeposited-t.TotalSpent-t.TotalWithdrawn {
		return false
	}
	return t.AvailableBalance >= 0 && t.AvailableBalance <= t.TotalDeposited
}
