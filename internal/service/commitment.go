package service

import (
	"context"
	"time"

	"github.com/commonfund/escrowd/internal/errors"
	"github.com/commonfund/escrowd/internal/model"
	"github.com/commonfund/escrowd/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateCommitment opens a new escrowed commitment and debits the
// tenant's available balance for the full amount. Relayer-only; the
// relayer is trusted to have verified off-protocol authorization.
func (e *Engine) CreateCommitment(
	ctx context.Context,
	caller, tenantID, contributor, token string,
	amount int64,
	deadline time.Time,
	disputeWindow time.Duration,
	specRef string,
) (commitment *model.Commitment, err error) {
	defer func() { e.countOp("create", err) }()

	if rerr := e.requireRole(caller, model.RoleRelayer); rerr != nil {
		return nil, rerr
	}
	if err = e.validator.ValidateID("contributor", contributor); err != nil {
		return nil, err
	}
	if err = e.validator.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if err = e.validator.ValidateDisputeWindow(disputeWindow); err != nil {
		return nil, err
	}
	if err = e.validator.ValidateContentRef("spec_ref", specRef); err != nil {
		return nil, err
	}
	if token != e.ledgerToken {
		return nil, errors.InvalidAddress("token", token).
			WithDetail("reason", "payment token is not the ledger token")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if err = e.validator.ValidateDeadline(deadline, now); err != nil {
		return nil, err
	}

	tenant, terr := e.activeTenant(ctx, tenantID)
	if terr != nil {
		return nil, terr
	}

	if derr := e.debitTenant(ctx, tenant, amount); derr != nil {
		return nil, derr
	}

	commitment = &model.Commitment{
		CommitmentID:  uuid.New().String(),
		TenantID:      tenantID,
		CreatedBy:     caller,
		Contributor:   contributor,
		Token:         token,
		Amount:        amount,
		Deadline:      deadline,
		DisputeWindow: disputeWindow,
		SpecRef:       specRef,
		State:         model.StateFunded,
		CreatedAt:     now,
	}

	if cerr := e.ledger.CreateCommitment(ctx, commitment); cerr != nil {
		// Release the reservation; the commitment never existed.
		if rerr := e.creditTenant(ctx, tenant, amount); rerr != nil {
			e.logger.Error("Failed to release debit after commitment creation failure",
				zap.String("tenant_id", tenantID),
				zap.Int64("amount", amount),
				zap.Error(rerr))
		}
		return nil, errors.InternalError("failed to create commitment", cerr)
	}

	e.metrics.CommitmentsCreated.Inc()
	e.metrics.EscrowedAmount.WithLabelValues(tenantID).Add(float64(amount))

	e.logger.Info("Commitment created",
		zap.String("commitment_id", commitment.CommitmentID),
		zap.String("tenant_id", tenantID),
		zap.String("contributor", contributor),
		zap.Int64("amount", amount),
		zap.Time("deadline", deadline),
		zap.Duration("dispute_window", disputeWindow))

	e.emit(ctx, &model.ChangeEvent{
		Type:         model.EventCommitmentFunded,
		TenantID:     tenantID,
		CommitmentID: commitment.CommitmentID,
		State:        commitment.State,
		Amount:       amount,
		Actor:        caller,
		Balances:     model.SnapshotOf(tenant),
	})

	return commitment, nil
}

// SubmitWork records the contributor's delivery evidence and starts
// the dispute clock. Relayer-only; the evidence reference is
// write-once. The delivery deadline is informational: submitting after
// it neither fails nor shortens the dispute window.
func (e *Engine) SubmitWork(ctx context.Context, caller, tenantID, commitmentID, evidenceRef string) (commitment *model.Commitment, err error) {
	defer func() { e.countOp("submit", err) }()

	if rerr := e.requireRole(caller, model.RoleRelayer); rerr != nil {
		return nil, rerr
	}
	if err = e.validator.ValidateContentRef("evidence_ref", evidenceRef); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	commitment, err = e.loadCommitment(ctx, commitmentID)
	if err != nil {
		return nil, err
	}

	if commitment.TenantID != tenantID {
		return nil, errors.Unauthorized(tenantID, "tenant owner").
			WithDetail("commitment_id", commitmentID)
	}
	if commitment.State != model.StateFunded {
		return nil, errors.InvalidState(string(model.StateFunded), string(commitment.State))
	}

	now := e.now()
	commitment.EvidenceRef = evidenceRef
	commitment.SubmittedAt = &now
	commitment.State = model.StateSubmitted

	if uerr := e.ledger.UpdateCommitment(ctx, commitment); uerr != nil {
		return nil, errors.InternalError("failed to update commitment", uerr)
	}

	e.logger.Info("Work submitted",
		zap.String("commitment_id", commitmentID),
		zap.String("tenant_id", tenantID),
		zap.Time("submitted_at", now),
		zap.Time("settleable_at", commitment.SettleableAt()))

	e.emit(ctx, &model.ChangeEvent{
		Type:         model.EventWorkSubmitted,
		TenantID:     tenantID,
		CommitmentID: commitmentID,
		State:        commitment.State,
		Amount:       commitment.Amount,
		Actor:        caller,
	})

	return commitment, nil
}

// Settle pays out a single commitment after its dispute window.
// Executor-only. Calling it on an already-terminal commitment fails
// cleanly and never pays twice.
func (e *Engine) Settle(ctx context.Context, caller, commitmentID string) (commitment *model.Commitment, err error) {
	defer func() { e.countOp("settle", err) }()

	if rerr := e.requireRole(caller, model.RoleExecutor); rerr != nil {
		return nil, rerr
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	commitment, err = e.loadCommitment(ctx, commitmentID)
	if err != nil {
		return nil, err
	}

	if err = e.settleLocked(ctx, commitment); err != nil {
		return nil, err
	}
	return commitment, nil
}

// settleLocked performs the settlement transition. Callers hold the
// engine lock and re-validate through this function: the settleable
// predicate is checked here, at the moment of mutation, regardless of
// what any earlier check phase observed.
func (e *Engine) settleLocked(ctx context.Context, commitment *model.Commitment) error {
	if commitment.State != model.StateSubmitted {
		return errors.InvalidState(string(model.StateSubmitted), string(commitment.State))
	}

	now := e.now()
	if !commitment.Settleable(now) {
		return errors.WindowClosed("dispute window still open").
			WithDetail("commitment_id", commitment.CommitmentID).
			WithDetail("settleable_at", commitment.SettleableAt())
	}

	if ferr := e.tokens.TransferOut(ctx, commitment.Contributor, commitment.Token, commitment.Amount); ferr != nil {
		return errors.TransferFailed("settlement payout failed", ferr)
	}

	commitment.State = model.StateSettled
	if uerr := e.ledger.UpdateCommitment(ctx, commitment); uerr != nil {
		return errors.InternalError("failed to update commitment", uerr)
	}

	if aerr := e.ledger.AddContributorSettledValue(ctx, commitment.Contributor, commitment.Amount); aerr != nil {
		e.logger.Warn("Failed to update contributor settled value",
			zap.String("contributor", commitment.Contributor),
			zap.Error(aerr))
	}

	e.metrics.CommitmentsSettled.Inc()
	e.metrics.EscrowedAmount.WithLabelValues(commitment.TenantID).Sub(float64(commitment.Amount))

	e.logger.Info("Commitment settled",
		zap.String("commitment_id", commitment.CommitmentID),
		zap.String("tenant_id", commitment.TenantID),
		zap.String("contributor", commitment.Contributor),
		zap.Int64("amount", commitment.Amount))

	e.emit(ctx, &model.ChangeEvent{
		Type:         model.EventCommitmentSettled,
		TenantID:     commitment.TenantID,
		CommitmentID: commitment.CommitmentID,
		State:        commitment.State,
		Amount:       commitment.Amount,
	})

	return nil
}

// CanSettle reports whether the commitment could settle right now
func (e *Engine) CanSettle(ctx context.Context, commitmentID string) (bool, error) {
	commitment, err := e.GetCommitment(ctx, commitmentID)
	if err != nil {
		return false, err
	}
	return commitment.Settleable(e.now()), nil
}

func (e *Engine) loadCommitment(ctx context.Context, commitmentID string) (*model.Commitment, error) {
	commitment, err := e.ledger.GetCommitment(ctx, commitmentID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, errors.NotFound("commitment", commitmentID)
		}
		return nil, errors.InternalError("failed to load commitment", err)
	}
	return commitment, nil
}
