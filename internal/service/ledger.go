package service

import (
	"context"

	"github.com/commonfund/escrowd/internal/errors"
	"github.com/commonfund/escrowd/internal/model"
	"github.com/commonfund/escrowd/internal/store"
	"go.uber.org/zap"
)

// Register registers a new tenant treasury and charges the fixed
// registration fee from the caller's token balance. Registration is
// one-time; tenants are never deleted, only deactivated.
func (e *Engine) Register(ctx context.Context, caller, tenantID, adminID string) (tenant *model.Tenant, err error) {
	defer func() { e.countOp("register", err) }()

	if err = e.validator.ValidateID("tenant_id", tenantID); err != nil {
		return nil, err
	}
	if err = e.validator.ValidateID("admin_id", adminID); err != nil {
		return nil, err
	}
	if err = e.validator.ValidateID("caller", caller); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, getErr := e.ledger.GetTenant(ctx, tenantID); getErr == nil {
		return nil, errors.AlreadyRegistered(tenantID)
	} else if getErr != store.ErrNotFound {
		return nil, errors.InternalError("failed to check tenant", getErr)
	}

	// Fee moves before any ledger state exists; on failure nothing
	// was created and the whole call is a no-op.
	if e.registrationFee > 0 {
		if ferr := e.tokens.TransferIn(ctx, caller, e.ledgerToken, e.registrationFee); ferr != nil {
			return nil, errors.TransferFailed("registration fee transfer failed", ferr)
		}
	}

	now := e.now()
	tenant = &model.Tenant{
		TenantID:  tenantID,
		AdminID:   adminID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if cerr := e.ledger.CreateTenant(ctx, tenant); cerr != nil {
		return nil, errors.InternalError("failed to create tenant", cerr)
	}

	e.logger.Info("Tenant registered",
		zap.String("tenant_id", tenantID),
		zap.String("admin_id", adminID),
		zap.Int64("registration_fee", e.registrationFee))

	e.emit(ctx, &model.ChangeEvent{
		Type:     model.EventTenantRegistered,
		TenantID: tenantID,
		Actor:    caller,
		Balances: model.SnapshotOf(tenant),
	})

	return tenant, nil
}

// Deposit moves tokens from the caller into escrow custody and
// credits the tenant's available balance
func (e *Engine) Deposit(ctx context.Context, caller, tenantID string, amount int64) (tenant *model.Tenant, err error) {
	defer func() { e.countOp("deposit", err) }()

	if err = e.validator.ValidateAmount(amount); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tenant, err = e.activeTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if ferr := e.tokens.TransferIn(ctx, caller, e.ledgerToken, amount); ferr != nil {
		return nil, errors.TransferFailed("deposit transfer failed", ferr)
	}

	tenant.TotalDeposited += amount
	tenant.AvailableBalance += amount
	tenant.UpdatedAt = e.now()

	if uerr := e.commitTenant(ctx, tenant); uerr != nil {
		// Give the tokens back; the deposit never happened.
		if rerr := e.tokens.TransferOut(ctx, caller, e.ledgerToken, amount); rerr != nil {
			e.logger.Error("Failed to return deposit after ledger failure",
				zap.String("tenant_id", tenantID),
				zap.Int64("amount", amount),
				zap.Error(rerr))
		}
		return nil, uerr
	}

	e.metrics.DepositsTotal.WithLabelValues(tenantID).Add(float64(amount))

	e.logger.Info("Deposit recorded",
		zap.String("tenant_id", tenantID),
		zap.Int64("amount", amount),
		zap.Int64("available_balance", tenant.AvailableBalance))

	e.emit(ctx, &model.ChangeEvent{
		Type:     model.EventTenantDeposited,
		TenantID: tenantID,
		Amount:   amount,
		Actor:    caller,
		Balances: model.SnapshotOf(tenant),
	})

	return tenant, nil
}

// Withdraw releases part of the tenant's available balance to an
// external account. Relayer-only.
func (e *Engine) Withdraw(ctx context.Context, caller, tenantID, to string, amount int64) (tenant *model.Tenant, err error) {
	defer func() { e.countOp("withdraw", err) }()

	if rerr := e.requireRole(caller, model.RoleRelayer); rerr != nil {
		return nil, rerr
	}
	if err = e.validator.ValidateID("to", to); err != nil {
		return nil, err
	}
	if err = e.validator.ValidateAmount(amount); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tenant, err = e.activeTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if amount > tenant.AvailableBalance {
		return nil, errors.InsufficientBalance(amount, tenant.AvailableBalance)
	}

	tenant.AvailableBalance -= amount
	tenant.TotalWithdrawn += amount
	tenant.UpdatedAt = e.now()

	if uerr := e.commitTenant(ctx, tenant); uerr != nil {
		return nil, uerr
	}

	if ferr := e.tokens.TransferOut(ctx, to, e.ledgerToken, amount); ferr != nil {
		// Roll the counters back; the withdrawal never happened.
		tenant.AvailableBalance += amount
		tenant.TotalWithdrawn -= amount
		if rerr := e.ledger.UpdateTenant(ctx, tenant); rerr != nil {
			e.logger.Error("Failed to restore balance after transfer failure",
				zap.String("tenant_id", tenantID),
				zap.Int64("amount", amount),
				zap.Error(rerr))
		}
		return nil, errors.TransferFailed("withdrawal transfer failed", ferr)
	}

	e.metrics.WithdrawalsTotal.WithLabelValues(tenantID).Add(float64(amount))

	e.logger.Info("Withdrawal executed",
		zap.String("tenant_id", tenantID),
		zap.String("to", to),
		zap.Int64("amount", amount),
		zap.Int64("available_balance", tenant.AvailableBalance))

	e.emit(ctx, &model.ChangeEvent{
		Type:     model.EventTenantWithdrawn,
		TenantID: tenantID,
		Amount:   amount,
		Actor:    caller,
		Balances: model.SnapshotOf(tenant),
	})

	return tenant, nil
}

// debitTenant reserves funds for a commitment: availableBalance down,
// totalSpent up. Internal primitive; callers hold the engine lock.
func (e *Engine) debitTenant(ctx context.Context, tenant *model.Tenant, amount int64) error {
	if amount > tenant.AvailableBalance {
		return errors.InsufficientBalance(amount, tenant.AvailableBalance)
	}

	tenant.AvailableBalance -= amount
	tenant.TotalSpent += amount
	tenant.UpdatedAt = e.now()

	return e.commitTenant(ctx, tenant)
}

// creditTenant releases previously debited funds back to the tenant's
// available balance. Internal primitive; callers hold the engine lock.
func (e *Engine) creditTenant(ctx context.Context, tenant *model.Tenant, amount int64) error {
	tenant.AvailableBalance += amount
	tenant.TotalSpent -= amount
	tenant.UpdatedAt = e.now()

	return e.commitTenant(ctx, tenant)
}

// commitTenant persists tenant counters after verifying the balance
// invariant. A violation aborts the enclosing call before anything is
// written; no partial debit ever reaches the store.
func (e *Engine) commitTenant(ctx context.Context, tenant *model.Tenant) error {
	if !tenant.CheckInvariant() {
		return errors.InternalError("balance invariant violated", nil).
			WithDetail("tenant_id", tenant.TenantID).
			WithDetail("available_balance", tenant.AvailableBalance).
			WithDetail("total_deposited", tenant.TotalDeposited).
			WithDetail("total_spent", tenant.TotalSpent).
			WithDetail("total_withdrawn", tenant.TotalWithdrawn)
	}

	if err := e.ledger.UpdateTenant(ctx, tenant); err != nil {
		return errors.InternalError("failed to persist tenant", err)
	}
	return nil
}
