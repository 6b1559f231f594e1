package service

import (
	"context"

	"github.com/commonfund/escrowd/internal/errors"
	"github.com/commonfund/escrowd/internal/model"
	"go.uber.org/zap"
)

// GetRoles returns the current role assignments
func (e *Engine) GetRoles() model.Roles {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roles
}

// RotateRole reassigns a role to a new identity. Owner-only; takes
// effect immediately for subsequent calls, with no grace period.
func (e *Engine) RotateRole(ctx context.Context, caller string, role model.Role, identity string) (roles model.Roles, err error) {
	defer func() { e.countOp("rotate_role", err) }()

	if !model.ValidRole(role) {
		return model.Roles{}, errors.InvalidAddress("role", string(role)).
			WithDetail("reason", "unknown role")
	}
	if err = e.validator.ValidateID("identity", identity); err != nil {
		return model.Roles{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.roles.Owner != caller {
		return model.Roles{}, errors.Unauthorized(caller, string(model.RoleOwner))
	}

	previous := e.roles.Holder(role)
	e.roles.Assign(role, identity)

	e.logger.Info("Role rotated",
		zap.String("role", string(role)),
		zap.String("previous", previous),
		zap.String("identity", identity))

	e.emit(ctx, &model.ChangeEvent{
		Type:  model.EventRoleRotated,
		Actor: caller,
	})

	return e.roles, nil
}

// SetBaselineStake tunes the enforced minimum dispute stake.
// Owner-only.
func (e *Engine) SetBaselineStake(ctx context.Context, caller string, baseline int64) (err error) {
	defer func() { e.countOp("set_baseline_stake", err) }()

	if baseline <= 0 {
		return errors.InvalidAmount(baseline)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.roles.Owner != caller {
		return errors.Unauthorized(caller, string(model.RoleOwner))
	}

	previous := e.baselineStake
	e.baselineStake = baseline

	e.logger.Info("Baseline stake updated",
		zap.Int64("previous", previous),
		zap.Int64("baseline", baseline))

	return nil
}

// DeactivateTenant administratively deactivates a tenant. Owner-only;
// tenants are never deleted, history stays append-only.
func (e *Engine) DeactivateTenant(ctx context.Context, caller, tenantID string) (err error) {
	defer func() { e.countOp("deactivate_tenant", err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.roles.Owner != caller {
		return errors.Unauthorized(caller, string(model.RoleOwner))
	}

	tenant, terr := e.activeTenant(ctx, tenantID)
	if terr != nil {
		return terr
	}

	tenant.Active = false
	tenant.UpdatedAt = e.now()

	if uerr := e.ledger.UpdateTenant(ctx, tenant); uerr != nil {
		return errors.InternalError("failed to deactivate tenant", uerr)
	}

	e.logger.Info("Tenant deactivated", zap.String("tenant_id", tenantID))

	return nil
}
