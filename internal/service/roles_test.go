package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonfund/escrowd/internal/errors"
	"github.com/commonfund/escrowd/internal/model"
)

func TestRotateRoleOwnerOnly(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.RotateRole(context.Background(), testRelayer, model.RoleExecutor, "new-exec")
	assertCode(t, err, errors.ErrCodeUnauthorized)
}

func TestRotateRoleRejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.RotateRole(context.Background(), testOwner, model.Role("janitor"), "someone")
	assertCode(t, err, errors.ErrCodeInvalidAddress)
}

// Rotation takes effect immediately: the old holder loses the role on
// the very next call and the new holder gains it.
func TestRotateRoleImmediate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerFunded(t, testTenant, 1000)

	roles, err := env.engine.RotateRole(ctx, testOwner, model.RoleRelayer, "relay-2")
	require.NoError(t, err)
	assert.Equal(t, "relay-2", roles.Relayer)

	_, err = env.engine.Withdraw(ctx, testRelayer, testTenant, testAdmin, 100)
	assertCode(t, err, errors.ErrCodeUnauthorized)

	_, err = env.engine.Withdraw(ctx, "relay-2", testTenant, testAdmin, 100)
	require.NoError(t, err)
}

func TestRotateOwnerHandsOverControl(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.RotateRole(ctx, testOwner, model.RoleOwner, "owner-2")
	require.NoError(t, err)

	_, err = env.engine.RotateRole(ctx, testOwner, model.RoleExecutor, "exec-2")
	assertCode(t, err, errors.ErrCodeUnauthorized)

	roles, err := env.engine.RotateRole(ctx, "owner-2", model.RoleExecutor, "exec-2")
	require.NoError(t, err)
	assert.Equal(t, "exec-2", roles.Executor)
}

func TestSetBaselineStakeOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.engine.SetBaselineStake(ctx, testRelayer, 200)
	assertCode(t, err, errors.ErrCodeUnauthorized)

	require.NoError(t, env.engine.SetBaselineStake(ctx, testOwner, 200))
	assert.Equal(t, int64(200), env.engine.BaselineStake())

	// Raised baseline binds new disputes.
	env.registerFunded(t, testTenant, 1000)
	commitment := env.createSubmitted(t, testTenant, 400, 24*time.Hour)
	env.vault.Mint(testRelayer, testToken, 300)

	_, err = env.engine.OpenDispute(ctx, testRelayer, testTenant, commitment.CommitmentID, 150)
	assertCode(t, err, errors.ErrCodeInsufficientStake)
}

func TestDeactivateTenantBlocksOperations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerFunded(t, testTenant, 1000)

	err := env.engine.DeactivateTenant(ctx, testRelayer, testTenant)
	assertCode(t, err, errors.ErrCodeUnauthorized)

	require.NoError(t, env.engine.DeactivateTenant(ctx, testOwner, testTenant))

	env.vault.Mint(testAdmin, testToken, 100)
	_, err = env.engine.Deposit(ctx, testAdmin, testTenant, 100)
	assertCode(t, err, errors.ErrCodeUnregisteredTenant)
}
