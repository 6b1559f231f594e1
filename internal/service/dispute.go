package service

import (
	"context"

	"github.com/commonfund/escrowd/internal/errors"
	"github.com/commonfund/escrowd/internal/model"
	"github.com/commonfund/escrowd/internal/store"
	"go.uber.org/zap"
)

// AdvisoryStake computes the full advisory stake for disputing the
// commitment right now. Pure read: reputation and confidence come from
// external collaborators, so the result is advice for the caller; the
// engine only ever enforces the baseline.
func (e *Engine) AdvisoryStake(ctx context.Context, commitmentID string, totalValueSettled int64, aiConfidence float64) (int64, error) {
	commitment, err := e.GetCommitment(ctx, commitmentID)
	if err != nil {
		return 0, err
	}

	timeRemainingDays := 0.0
	if commitment.SubmittedAt != nil {
		remaining := commitment.SettleableAt().Sub(e.now())
		if remaining > 0 {
			timeRemainingDays = remaining.Hours() / 24
		}
	}

	return e.stakeCalculator().RequiredStake(timeRemainingDays, totalValueSettled, aiConfidence), nil
}

// BaselineStake returns the engine-enforced minimum stake
func (e *Engine) BaselineStake() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.baselineStake
}

// OpenDispute files a staked challenge against a submitted commitment.
// The caller must act for the commitment's tenant, the dispute window
// must still be open, and the posted stake must meet the baseline. At
// most one dispute ever exists per commitment.
func (e *Engine) OpenDispute(ctx context.Context, caller, tenantID, commitmentID string, postedStake int64) (dispute *model.Dispute, err error) {
	defer func() { e.countOp("open_dispute", err) }()

	if rerr := e.requireRole(caller, model.RoleRelayer); rerr != nil {
		return nil, rerr
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	commitment, cerr := e.loadCommitment(ctx, commitmentID)
	if cerr != nil {
		return nil, cerr
	}

	if commitment.TenantID != tenantID {
		return nil, errors.Unauthorized(tenantID, "tenant owner").
			WithDetail("commitment_id", commitmentID)
	}
	if commitment.State != model.StateSubmitted {
		return nil, errors.InvalidState(string(model.StateSubmitted), string(commitment.State))
	}

	now := e.now()
	if now.After(commitment.SettleableAt()) {
		return nil, errors.WindowClosed("dispute window has elapsed").
			WithDetail("commitment_id", commitmentID).
			WithDetail("window_closed_at", commitment.SettleableAt())
	}

	if postedStake < e.baselineStake {
		return nil, errors.InsufficientStake(e.baselineStake, postedStake)
	}

	// The stake moves into custody before the dispute exists; a failed
	// transfer leaves the commitment untouched.
	if ferr := e.tokens.TransferIn(ctx, caller, commitment.Token, postedStake); ferr != nil {
		return nil, errors.TransferFailed("stake transfer failed", ferr)
	}

	dispute = &model.Dispute{
		CommitmentID: commitmentID,
		Disputer:     caller,
		Stake:        postedStake,
		CreatedAt:    now,
	}

	if derr := e.ledger.CreateDispute(ctx, dispute); derr != nil {
		if rerr := e.tokens.TransferOut(ctx, caller, commitment.Token, postedStake); rerr != nil {
			e.logger.Error("Failed to return stake after dispute creation failure",
				zap.String("commitment_id", commitmentID),
				zap.Int64("stake", postedStake),
				zap.Error(rerr))
		}
		return nil, errors.InternalError("failed to create dispute", derr)
	}

	commitment.State = model.StateDisputed
	if uerr := e.ledger.UpdateCommitment(ctx, commitment); uerr != nil {
		return nil, errors.InternalError("failed to update commitment", uerr)
	}

	e.metrics.DisputesOpened.Inc()

	e.logger.Info("Dispute opened",
		zap.String("commitment_id", commitmentID),
		zap.String("tenant_id", tenantID),
		zap.String("disputer", caller),
		zap.Int64("stake", postedStake))

	e.emit(ctx, &model.ChangeEvent{
		Type:         model.EventDisputeOpened,
		TenantID:     tenantID,
		CommitmentID: commitmentID,
		State:        model.StateDisputed,
		Amount:       commitment.Amount,
		Stake:        postedStake,
		Actor:        caller,
	})

	return dispute, nil
}

// ResolveDispute decides a dispute. Arbitrator-only, from DISPUTED
// only. Favoring the contributor pays out the commitment amount;
// favoring the tenant credits the amount back to the treasury's
// available balance. The posted stake returns to the disputer either
// way. Both branches are terminal.
func (e *Engine) ResolveDispute(ctx context.Context, caller, commitmentID string, favorContributor bool) (dispute *model.Dispute, err error) {
	defer func() { e.countOp("resolve_dispute", err) }()

	if rerr := e.requireRole(caller, model.RoleArbitrator); rerr != nil {
		return nil, rerr
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	commitment, cerr := e.loadCommitment(ctx, commitmentID)
	if cerr != nil {
		return nil, cerr
	}
	if commitment.State != model.StateDisputed {
		return nil, errors.InvalidState(string(model.StateDisputed), string(commitment.State))
	}

	dispute, derr := e.ledger.GetDispute(ctx, commitmentID)
	if derr != nil {
		if derr == store.ErrNotFound {
			return nil, errors.NotFound("dispute", commitmentID)
		}
		return nil, errors.InternalError("failed to load dispute", derr)
	}
	if dispute.Resolved {
		return nil, errors.InvalidState("unresolved dispute", "resolved dispute")
	}

	if favorContributor {
		if ferr := e.tokens.TransferOut(ctx, commitment.Contributor, commitment.Token, commitment.Amount); ferr != nil {
			return nil, errors.TransferFailed("dispute payout failed", ferr)
		}
		commitment.State = model.StateSettled

		if aerr := e.ledger.AddContributorSettledValue(ctx, commitment.Contributor, commitment.Amount); aerr != nil {
			e.logger.Warn("Failed to update contributor settled value",
				zap.String("contributor", commitment.Contributor),
				zap.Error(aerr))
		}
	} else {
		tenant, terr := e.activeTenant(ctx, commitment.TenantID)
		if terr != nil {
			return nil, terr
		}
		if crerr := e.creditTenant(ctx, tenant, commitment.Amount); crerr != nil {
			return nil, crerr
		}
		commitment.State = model.StateRefunded
	}

	// The stake returns to the disputer in both branches.
	if ferr := e.tokens.TransferOut(ctx, dispute.Disputer, commitment.Token, dispute.Stake); ferr != nil {
		e.logger.Error("Failed to return dispute stake",
			zap.String("commitment_id", commitmentID),
			zap.String("disputer", dispute.Disputer),
			zap.Int64("stake", dispute.Stake),
			zap.Error(ferr))
	}

	now := e.now()
	dispute.Resolved = true
	dispute.FavorsContributor = favorContributor
	dispute.ResolvedAt = &now

	if uerr := e.ledger.UpdateDispute(ctx, dispute); uerr != nil {
		return nil, errors.InternalError("failed to update dispute", uerr)
	}
	if uerr := e.ledger.UpdateCommitment(ctx, commitment); uerr != nil {
		return nil, errors.InternalError("failed to update commitment", uerr)
	}

	outcome := "refunded"
	eventType := model.EventCommitmentRefunded
	if favorContributor {
		outcome = "settled"
		eventType = model.EventCommitmentSettled
		e.metrics.CommitmentsSettled.Inc()
	} else {
		e.metrics.CommitmentsRefunded.Inc()
	}
	e.metrics.DisputesResolved.WithLabelValues(outcome).Inc()
	e.metrics.EscrowedAmount.WithLabelValues(commitment.TenantID).Sub(float64(commitment.Amount))

	e.logger.Info("Dispute resolved",
		zap.String("commitment_id", commitmentID),
		zap.Bool("favor_contributor", favorContributor),
		zap.String("outcome", outcome),
		zap.Int64("amount", commitment.Amount),
		zap.Int64("stake", dispute.Stake))

	e.emit(ctx, &model.ChangeEvent{
		Type:         model.EventDisputeResolved,
		TenantID:     commitment.TenantID,
		CommitmentID: commitmentID,
		State:        commitment.State,
		Amount:       commitment.Amount,
		Stake:        dispute.Stake,
		Actor:        caller,
	})
	e.emit(ctx, &model.ChangeEvent{
		Type:         eventType,
		TenantID:     commitment.TenantID,
		CommitmentID: commitmentID,
		State:        commitment.State,
		Amount:       commitment.Amount,
	})

	return dispute, nil
}
