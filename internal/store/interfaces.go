package store

import (
	"context"
	"errors"
	"time"

	"github.com/commonfund/escrowd/internal/model"
)

// ErrNotFound is returned when a record is not found
var ErrNotFound = errors.New("not found")

// LedgerStore interface for tenant, commitment and dispute records.
// Implementations return copies; callers mutate and write back through
// the Update methods so no ledger state escapes by reference.
type LedgerStore interface {
	// Tenant operations
	GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error)
	CreateTenant(ctx context.Context, tenant *model.Tenant) error
	UpdateTenant(ctx context.Context, tenant *model.Tenant) error

	// Commitment operations
	GetCommitment(ctx context.Context, commitmentID string) (*model.Commitment, error)
	CreateCommitment(ctx context.Context, commitment *model.Commitment) error
	UpdateCommitment(ctx context.Context, commitment *model.Commitment) error
	// ListCommitmentsByState returns up to limit commitments in the
	// given state, oldest first
	ListCommitmentsByState(ctx context.Context, state model.CommitmentState, limit int) ([]*model.Commitment, error)

	// Dispute operations (keyed by commitment id, 1:1)
	GetDispute(ctx context.Context, commitmentID string) (*model.Dispute, error)
	CreateDispute(ctx context.Context, dispute *model.Dispute) error
	UpdateDispute(ctx context.Context, dispute *model.Dispute) error

	// Reputation aggregate
	ContributorSettledValue(ctx context.Context, contributor string) (int64, error)
	AddContributorSettledValue(ctx context.Context, contributor string, amount int64) error

	// Health check
	Ping(ctx context.Context) error
	Close()
}

// IdempotencyStore interface for cached mutation responses
type IdempotencyStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
