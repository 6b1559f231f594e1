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

func TestOpenDisputeWithinWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerFunded(t, testTenant, 1000)
	commitment := env.createSubmitted(t, testTenant, 400, 24*time.Hour)

	env.vault.Mint(testRelayer, testToken, 100)
	env.advance(23 * time.Hour)

	dispute, err := env.engine.OpenDispute(ctx, testRelayer, testTenant, commitment.CommitmentID, 60)
	require.NoError(t, err)
	assert.Equal(t, testRelayer, dispute.Disputer)
	assert.False(t, dispute.Resolved)

	disputed, err := env.engine.GetCommitment(ctx, commitment.CommitmentID)
	require.NoError(t, err)
	assert.Equal(t, model.StateDisputed, disputed.State)

	// The stake moved into custody
	balance, _ := env.vault.Balance(ctx, testRelayer, testToken)
	assert.Equal(t, int64(40), balance)
}

func TestOpenDisputeAfterWindow(t *testing.T) {
	env := newTestEnv(t)
	env.registerFunded(t, testTenant, 1000)
	commitment := env.createSubmitted(t, testTenant, 400, time.Hour)

	env.vault.Mint(testRelayer, testToken, 100)
	env.advance(time.Hour + time.Second)

	_, err := env.engine.OpenDispute(context.Background(), testRelayer, testTenant, commitment.CommitmentID, 60)
	assertCode(t, err, errors.ErrCodeWindowClosed)
}

func TestOpenDisputeBelowBaseline(t *testing.T) {
	env := newTestEnv(t)
	env.registerFunded(t, testTenant, 1000)
	commitment := env.createSubmitted(t, testTenant, 400, time.Hour)

	env.vault.Mint(testRelayer, testToken, 100)

	_, err := env.engine.OpenDispute(context.Background(), testRelayer, testTenant, commitment.CommitmentID, testStake-1)
	assertCode(t, err, errors.ErrCodeInsufficientStake)
}

func TestOpenDisputeUnfundedState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerFunded(t, testTenant, 1000)

	commitment, err := env.engine.CreateCommitment(
		ctx, testRelayer, testTenant, testContrib, testToken,
		400, env.clock.Add(time.Hour), time.Hour, "ipfs://spec",
	)
	require.NoError(t, err)

	env.vault.Mint(testRelayer, testToken, 100)
	_, err = env.engine.OpenDispute(ctx, testRelayer, testTenant, commitment.CommitmentID, 60)
	assertCode(t, err, errors.ErrCodeInvalidState)
}

func TestOpenDisputeTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerFunded(t, testTenant, 1000)
	commitment := env.createSubmitted(t, testTenant, 400, 24*time.Hour)

	env.vault.Mint(testRelayer, testToken, 200)

	_, err := env.engine.OpenDispute(ctx, testRelayer, testTenant, commitment.CommitmentID, 60)
	require.NoError(t, err)

	_, err = env.engine.OpenDispute(ctx, testRelayer, testTenant, commitment.CommitmentID, 60)
	assertCode(t, err, errors.ErrCodeInvalidState)
}

func TestResolveDisputeRequiresArbitrator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerFunded(t, testTenant, 1000)
	commitment := env.createSubmitted(t, testTenant, 400, 24*time.Hour)

	env.vault.Mint(testRelayer, testToken, 100)
	_, err := env.engine.OpenDispute(ctx, testRelayer, testTenant, commitment.CommitmentID, 60)
	require.NoError(t, err)

	_, err = env.engine.ResolveDispute(ctx, testRelayer, commitment.CommitmentID, true)
	assertCode(t, err, errors.ErrCodeUnauthorized)
}

func TestResolveDisputeUndisputedCommitment(t *testing.T) {
	env := newTestEnv(t)
	env.registerFunded(t, testTenant, 1000)
	commitment := env.createSubmitted(t, testTenant, 400, 24*time.Hour)

	_, err := env.engine.ResolveDispute(context.Background(), testArbitrator, commitment.CommitmentID, true)
	assertCode(t, err, errors.ErrCodeInvalidState)
}

func TestResolveFavorContributor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerFunded(t, testTenant, 1000)
	commitment := env.createSubmitted(t, testTenant, 400, 24*time.Hour)

	env.vault.Mint(testRelayer, testToken, 100)
	_, err := env.engine.OpenDispute(ctx, testRelayer, testTenant, commitment.CommitmentID, 60)
	require.NoError(t, err)

	dispute, err := env.engine.ResolveDispute(ctx, testArbitrator, commitment.CommitmentID, true)
	require.NoError(t, err)
	assert.True(t, dispute.Resolved)
	assert.True(t, dispute.FavorsContributor)
	require.NotNil(t, dispute.ResolvedAt)

	settled, err := env.engine.GetCommitment(ctx, commitment.CommitmentID)
	require.NoError(t, err)
	assert.Equal(t, model.StateSettled, settled.State)

	// Contributor paid, stake returned, treasury unchanged.
	contribBalance, _ := env.vault.Balance(ctx, testContrib, testToken)
	assert.Equal(t, int64(400), contribBalance)
	stakeBalance, _ := env.vault.Balance(ctx, testRelayer, testToken)
	assert.Equal(t, int64(100), stakeBalance)

	tenant, err := env.engine.GetTenant(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, int64(600), tenant.AvailableBalance)

	reputation, err := env.engine.ContributorReputation(ctx, testContrib)
	require.NoError(t, err)
	assert.Equal(t, int64(400), reputation)
}

func TestResolveDisputeTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerFunded(t, testTenant, 1000)
	commitment := env.createSubmitted(t, testTenant, 400, 24*time.Hour)

	env.vault.Mint(testRelayer, testToken, 100)
	_, err := env.engine.OpenDispute(ctx, testRelayer, testTenant, commitment.CommitmentID, 60)
	require.NoError(t, err)

	_, err = env.engine.ResolveDispute(ctx, testArbitrator, commitment.CommitmentID, false)
	require.NoError(t, err)

	_, err = env.engine.ResolveDispute(ctx, testArbitrator, commitment.CommitmentID, false)
	assertCode(t, err, errors.ErrCodeInvalidState)
}

func TestAdvisoryStakeNeverBelowFormula(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerFunded(t, testTenant, 1000)
	commitment := env.createSubmitted(t, testTenant, 400, 48*time.Hour)

	// Disputing well-verified work costs more; the baseline stays the
	// enforced floor regardless.
	advisory, err := env.engine.AdvisoryStake(ctx, commitment.CommitmentID, 0, 0.5)
	require.NoError(t, err)
	assert.Greater(t, advisory, env.engine.BaselineStake())

	highConfidence, err := env.engine.AdvisoryStake(ctx, commitment.CommitmentID, 0, 0.99)
	require.NoError(t, err)
	assert.Greater(t, highConfidence, advisory)
}
