// Package service implements the escrow engine: the balance ledger,
// the commitment state machine, the dispute engine and the settlement
// batch operations. Every mutating entry point takes the engine lock,
// so mutations execute atomically in a total order; correctness under
// races (check vs execute, dispute vs settlement) comes from
// re-validating every precondition at the start of each call rather
// than trusting previously observed state.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/commonfund/escrowd/internal/algorithm"
	"github.com/commonfund/escrowd/internal/client"
	"github.com/commonfund/escrowd/internal/errors"
	"github.com/commonfund/escrowd/internal/events"
	"github.com/commonfund/escrowd/internal/metrics"
	"github.com/commonfund/escrowd/internal/model"
	"github.com/commonfund/escrowd/internal/store"
	"github.com/commonfund/escrowd/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EngineParams carries the economic parameters of the engine
type EngineParams struct {
	RegistrationFee int64
	LedgerToken     string
	BaselineStake   int64
	MaxBatchSize    int
}

// Engine owns the commitment ledger. All mutating entry points pass
// through role checks first and re-validate preconditions under the
// engine lock.
type Engine struct {
	mu     sync.Mutex
	ledger store.LedgerStore
	tokens client.TokenClient

	roles         model.Roles
	baselineStake int64

	registrationFee int64
	ledgerToken     string
	maxBatchSize    int

	publisher events.Publisher
	metrics   *metrics.Metrics
	validator *validation.Validator
	logger    *zap.Logger

	now func() time.Time
}

// NewEngine creates a new escrow engine
func NewEngine(
	ledger store.LedgerStore,
	tokens client.TokenClient,
	roles model.Roles,
	params EngineParams,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Engine {
	if params.MaxBatchSize <= 0 {
		params.MaxBatchSize = 50
	}

	return &Engine{
		ledger:          ledger,
		tokens:          tokens,
		roles:           roles,
		baselineStake:   params.BaselineStake,
		registrationFee: params.RegistrationFee,
		ledgerToken:     params.LedgerToken,
		maxBatchSize:    params.MaxBatchSize,
		publisher:       publisher,
		metrics:         m,
		validator:       validation.NewValidator(),
		logger:          logger,
		now:             time.Now,
	}
}

// requireRole checks that the caller holds the role. Rotation takes
// effect immediately: the check always reads the current assignment.
// Callers must not hold the engine lock.
func (e *Engine) requireRole(caller string, role model.Role) *errors.EscrowError {
	e.mu.Lock()
	holder := e.roles.Holder(role)
	e.mu.Unlock()

	if holder != caller {
		return errors.Unauthorized(caller, string(role))
	}
	return nil
}

// emit publishes a change record for a successful mutation. Publish
// failures never roll back the mutation; the ledger is the source of
// truth and indexers catch up.
func (e *Engine) emit(ctx context.Context, event *model.ChangeEvent) {
	event.EventID = uuid.New().String()
	event.OccurredAt = e.now()

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("Failed to publish change event",
			zap.String("type", string(event.Type)),
			zap.String("tenant_id", event.TenantID),
			zap.String("commitment_id", event.CommitmentID),
			zap.Error(err))
	}
}

// countOp records operation metrics; err may be nil
func (e *Engine) countOp(operation string, err error) {
	e.metrics.OperationsTotal.WithLabelValues(operation).Inc()
	if err != nil {
		code := "INTERNAL_ERROR"
		if ee, ok := err.(*errors.EscrowError); ok {
			code = ee.CodeString()
		}
		e.metrics.OperationErrors.WithLabelValues(operation, code).Inc()
	}
}

// activeTenant loads a tenant and rejects missing or deactivated ones
func (e *Engine) activeTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	tenant, err := e.ledger.GetTenant(ctx, tenantID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, errors.UnregisteredTenant(tenantID)
		}
		return nil, errors.InternalError("failed to load tenant", err)
	}
	if !tenant.Active {
		return nil, errors.UnregisteredTenant(tenantID)
	}
	return tenant, nil
}

// GetTenant returns the tenant record
func (e *Engine) GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	tenant, err := e.ledger.GetTenant(ctx, tenantID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, errors.NotFound("tenant", tenantID)
		}
		return nil, errors.InternalError("failed to load tenant", err)
	}
	return tenant, nil
}

// GetCommitment returns the commitment record
func (e *Engine) GetCommitment(ctx context.Context, commitmentID string) (*model.Commitment, error) {
	commitment, err := e.ledger.GetCommitment(ctx, commitmentID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, errors.NotFound("commitment", commitmentID)
		}
		return nil, errors.InternalError("failed to load commitment", err)
	}
	return commitment, nil
}

// GetDispute returns the dispute record for a commitment
func (e *Engine) GetDispute(ctx context.Context, commitmentID string) (*model.Dispute, error) {
	dispute, err := e.ledger.GetDispute(ctx, commitmentID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, errors.NotFound("dispute", commitmentID)
		}
		return nil, errors.InternalError("failed to load dispute", err)
	}
	return dispute, nil
}

// ContributorReputation returns the contributor's settled-value
// aggregate as tracked by the engine
func (e *Engine) ContributorReputation(ctx context.Context, contributor string) (int64, error) {
	value, err := e.ledger.ContributorSettledValue(ctx, contributor)
	if err != nil {
		return 0, errors.InternalError("failed to load settled value", err)
	}
	return value, nil
}

// stakeCalculator builds a stake calculator from the current
// baseline. Reads the baseline under the lock so tuning is
// immediately visible.
func (e *Engine) stakeCalculator() *algorithm.StakeCalculator {
	e.mu.Lock()
	baseline := e.baselineStake
	e.mu.Unlock()
	return algorithm.NewStakeCalculator(baseline)
}
