package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonfund/escrowd/internal/errors"
)

func TestRegisterChargesFee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.vault.Mint(testAdmin, testToken, 150)

	tenant, err := env.engine.Register(ctx, testAdmin, testTenant, testAdmin)
	require.NoError(t, err)
	assert.True(t, tenant.Active)
	assert.Equal(t, int64(0), tenant.AvailableBalance)

	balance, _ := env.vault.Balance(ctx, testAdmin, testToken)
	assert.Equal(t, int64(50), balance)
	assert.Equal(t, testFee, env.vault.Escrowed(testToken))
}

func TestRegisterInsufficientFee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.vault.Mint(testAdmin, testToken, testFee-1)

	_, err := env.engine.Register(ctx, testAdmin, testTenant, testAdmin)
	assertCode(t, err, errors.ErrCodeTransferFailed)

	// Nothing was created
	_, err = env.engine.GetTenant(ctx, testTenant)
	assertCode(t, err, errors.ErrCodeNotFound)
}

func TestRegisterDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.vault.Mint(testAdmin, testToken, 2*testFee)

	_, err := env.engine.Register(ctx, testAdmin, testTenant, testAdmin)
	require.NoError(t, err)

	_, err = env.engine.Register(ctx, testAdmin, testTenant, testAdmin)
	assertCode(t, err, errors.ErrCodeAlreadyRegistered)

	// The duplicate attempt must not charge a second fee.
	balance, _ := env.vault.Balance(ctx, testAdmin, testToken)
	assert.Equal(t, testFee, balance)
}

func TestRegisterRejectsBadIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.Register(ctx, testAdmin, "", testAdmin)
	assertCode(t, err, errors.ErrCodeInvalidAddress)

	_, err = env.engine.Register(ctx, testAdmin, "has space", testAdmin)
	assertCode(t, err, errors.ErrCodeInvalidAddress)
}

func TestDepositUnregisteredTenant(t *testing.T) {
	env := newTestEnv(t)
	env.vault.Mint(testAdmin, testToken, 500)

	_, err := env.engine.Deposit(context.Background(), testAdmin, "ghost", 500)
	assertCode(t, err, errors.ErrCodeUnregisteredTenant)
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.Deposit(ctx, testAdmin, testTenant, 0)
	assertCode(t, err, errors.ErrCodeInvalidAmount)

	_, err = env.engine.Deposit(ctx, testAdmin, testTenant, -5)
	assertCode(t, err, errors.ErrCodeInvalidAmount)
}

func TestWithdrawRequiresRelayer(t *testing.T) {
	env := newTestEnv(t)
	env.registerFunded(t, testTenant, 500)

	_, err := env.engine.Withdraw(context.Background(), "rando", testTenant, testAdmin, 100)
	assertCode(t, err, errors.ErrCodeUnauthorized)
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	env.registerFunded(t, testTenant, 500)

	_, err := env.engine.Withdraw(context.Background(), testRelayer, testTenant, testAdmin, 501)
	assertCode(t, err, errors.ErrCodeInsufficientBalance)
}

// Balance invariant held across a full deposit / commit / withdraw
// sequence: available always equals deposited minus spent minus
// withdrawn.
func TestBalanceInvariantAcrossSequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.registerFunded(t, testTenant, 1000)

	_, err := env.engine.CreateCommitment(
		ctx, testRelayer, testTenant, testContrib, testToken,
		300, env.clock.Add(24*time.Hour), time.Hour, "ipfs://spec",
	)
	require.NoError(t, err)

	tenant, err := env.engine.Withdraw(ctx, testRelayer, testTenant, "payout-acct", 200)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), tenant.TotalDeposited)
	assert.Equal(t, int64(300), tenant.TotalSpent)
	assert.Equal(t, int64(200), tenant.TotalWithdrawn)
	assert.Equal(t, int64(500), tenant.AvailableBalance)
	assert.True(t, tenant.CheckInvariant())

	recipientBalance, _ := env.vault.Balance(ctx, "payout-acct", testToken)
	assert.Equal(t, int64(200), recipientBalance)
}
