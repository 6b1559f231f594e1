package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/commonfund/escrowd/internal/model"
	"go.uber.org/zap"
)

// MemoryLedgerStore implements LedgerStore using in-memory maps. The
// default backend: the ledger is a single sequentially consistent
// store owned by one engine process.
type MemoryLedgerStore struct {
	mu           sync.RWMutex
	tenants      map[string]*model.Tenant
	commitments  map[string]*model.Commitment
	disputes     map[string]*model.Dispute
	settledValue map[string]int64
	logger       *zap.Logger
}

// NewMemoryLedgerStore creates an empty in-memory ledger store
func NewMemoryLedgerStore(logger *zap.Logger) *MemoryLedgerStore {
	return &MemoryLedgerStore{
		tenants:      make(map[string]*model.Tenant),
		commitments:  make(map[string]*model.Commitment),
		disputes:     make(map[string]*model.Dispute),
		settledValue: make(map[string]int64),
		logger:       logger,
	}
}

// GetTenant retrieves a tenant by id
func (s *MemoryLedgerStore) GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenant, exists := s.tenants[tenantID]
	if !exists {
		return nil, ErrNotFound
	}
	return copyTenant(tenant), nil
}

// CreateTenant stores a new tenant
func (s *MemoryLedgerStore) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tenants[tenant.TenantID]; exists {
		return fmt.Errorf("tenant already exists: %s", tenant.TenantID)
	}
	s.tenants[tenant.TenantID] = copyTenant(tenant)
	return nil
}

// UpdateTenant replaces the stored tenant record
func (s *MemoryLedgerStore) UpdateTenant(ctx context.Context, tenant *model.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tenants[tenant.TenantID]; !exists {
		return ErrNotFound
	}
	s.tenants[tenant.TenantID] = copyTenant(tenant)
	return nil
}

// GetCommitment retrieves a commitment by id
func (s *MemoryLedgerStore) GetCommitment(ctx context.Context, commitmentID string) (*model.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	commitment, exists := s.commitments[commitmentID]
	if !exists {
		return nil, ErrNotFound
	}
	return copyCommitment(commitment), nil
}

// CreateCommitment stores a new commitment
func (s *MemoryLedgerStore) CreateCommitment(ctx context.Context, commitment *model.Commitment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.commitments[commitment.CommitmentID]; exists {
		return fmt.Errorf("commitment already exists: %s", commitment.CommitmentID)
	}
	s.commitments[commitment.CommitmentID] = copyCommitment(commitment)
	return nil
}

// UpdateCommitment replaces the stored commitment record
func (s *MemoryLedgerStore) UpdateCommitment(ctx context.Context, commitment *model.Commitment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.commitments[commitment.CommitmentID]; !exists {
		return ErrNotFound
	}
	s.commitments[commitment.CommitmentID] = copyCommitment(commitment)
	return nil
}

// ListCommitmentsByState returns up to limit commitments in the given
// state, oldest creation first for a stable scan order
func (s *MemoryLedgerStore) ListCommitmentsByState(ctx context.Context, state model.CommitmentState, limit int) ([]*model.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*model.Commitment, 0)
	for _, commitment := range s.commitments {
		if commitment.State == state {
			matched = append(matched, copyCommitment(commitment))
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// GetDispute retrieves the dispute for a commitment
func (s *MemoryLedgerStore) GetDispute(ctx context.Context, commitmentID string) (*model.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dispute, exists := s.disputes[commitmentID]
	if !exists {
		return nil, ErrNotFound
	}
	return copyDispute(dispute), nil
}

// CreateDispute stores a new dispute
func (s *MemoryLedgerStore) CreateDispute(ctx context.Context, dispute *model.Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.disputes[dispute.CommitmentID]; exists {
		return fmt.Errorf("dispute already exists for commitment: %s", dispute.CommitmentID)
	}
	s.disputes[dispute.CommitmentID] = copyDispute(dispute)
	return nil
}

// UpdateDispute replaces the stored dispute record
func (s *MemoryLedgerStore) UpdateDispute(ctx context.Context, dispute *model.Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.disputes[dispute.CommitmentID]; !exists {
		return ErrNotFound
	}
	s.disputes[dispute.CommitmentID] = copyDispute(dispute)
	return nil
}

// ContributorSettledValue returns the contributor's settled-value aggregate
func (s *MemoryLedgerStore) ContributorSettledValue(ctx context.Context, contributor string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settledValue[contributor], nil
}

// AddContributorSettledValue increments the contributor's settled-value aggregate
func (s *MemoryLedgerStore) AddContributorSettledValue(ctx context.Context, contributor string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settledValue[contributor] += amount
	return nil
}

// Ping always succeeds for the in-memory store
func (s *MemoryLedgerStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryLedgerStore) Close() {}

func copyTenant(t *model.Tenant) *model.Tenant {
	c := *t
	return &c
}

func copyCommitment(c *model.Commitment) *model.Commitment {
	cp := *c
	if c.SubmittedAt != nil {
		submittedAt := *c.SubmittedAt
		cp.SubmittedAt = &submittedAt
	}
	return &cp
}

func copyDispute(d *model.Dispute) *model.Dispute {
	cp := *d
	if d.ResolvedAt != nil {
		resolvedAt := *d.ResolvedAt
		cp.ResolvedAt = &resolvedAt
	}
	return &cp
}
