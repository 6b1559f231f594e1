package validation

import (
	"strings"
	"time"
	"unicode"

	"github.com/commonfund/escrowd/internal/errors"
)

const (
	// Size limits
	MaxIDSize         = 256
	MaxContentRefSize = 2048
)

// Validator validates escrow operation inputs. Content references are
// opaque: only their presence and size are checked, never their
// contents.
type Validator struct {
	maxIDSize         int
	maxContentRefSize int
}

// NewValidator creates a new validator with default limits
func NewValidator() *Validator {
	return &Validator{
		maxIDSize:         MaxIDSize,
		maxContentRefSize: MaxContentRefSize,
	}
}

// ValidateID validates an identifier (tenant, contributor, caller, token)
func (v *Validator) ValidateID(field, id string) error {
	if id == "" {
		return errors.InvalidAddress(field, id)
	}
	if len(id) > v.maxIDSize {
		return errors.InvalidAddress(field, id).WithDetail("max_size", v.maxIDSize)
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return errors.InvalidAddress(field, id).WithDetail("reason", "contains control or whitespace characters")
		}
	}
	return nil
}

// ValidateAmount validates a token amount
func (v *Validator) ValidateAmount(amount int64) error {
	if amount <= 0 {
		return errors.InvalidAmount(amount)
	}
	return nil
}

// ValidateDeadline validates that the deadline lies in the future
func (v *Validator) ValidateDeadline(deadline, now time.Time) error {
	if deadline.IsZero() {
		return errors.InvalidDeadline("deadline is required")
	}
	if !deadline.After(now) {
		return errors.InvalidDeadline("deadline must be in the future")
	}
	return nil
}

// ValidateDisputeWindow validates a dispute window duration
func (v *Validator) ValidateDisputeWindow(window time.Duration) error {
	if window <= 0 {
		return errors.InvalidDeadline("dispute window must be positive")
	}
	return nil
}

// ValidateContentRef validates an opaque content reference
func (v *Validator) ValidateContentRef(field, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return errors.InvalidAddress(field, ref).WithDetail("reason", "content reference is required")
	}
	if len(ref) > v.maxContentRefSize {
		return errors.InvalidAddress(field, ref).WithDetail("max_size", v.maxContentRefSize)
	}
	return nil
}
