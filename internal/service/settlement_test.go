package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonfund/escrowd/internal/errors"
)

func TestCheckSettleableFiltersOpenWindows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerFunded(t, testTenant, 1000)

	due := env.createSubmitted(t, testTenant, 100, time.Hour)
	env.advance(90 * time.Minute)
	pending := env.createSubmitted(t, testTenant, 100, time.Hour)

	ids, err := env.engine.CheckSettleable(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{due.CommitmentID}, ids)
	assert.NotContains(t, ids, pending.CommitmentID)
}

func TestCheckSettleableEmpty(t *testing.T) {
	env := newTestEnv(t)

	ids, err := env.engine.CheckSettleable(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestExecuteSettlementRequiresExecutor(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.ExecuteSettlement(context.Background(), testRelayer, []string{"c-1"})
	assertCode(t, err, errors.ErrCodeUnauthorized)
}

// One stale candidate never blocks the rest of the batch: unknown ids,
// already-settled commitments and late disputes are skipped while the
// remaining candidates settle.
func TestExecuteSettlementSkipsStaleCandidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerFunded(t, testTenant, 1000)

	first := env.createSubmitted(t, testTenant, 100, time.Hour)
	second := env.createSubmitted(t, testTenant, 150, time.Hour)
	disputed := env.createSubmitted(t, testTenant, 200, time.Hour)

	// Dispute the third candidate before the window elapses.
	env.vault.Mint(testRelayer, testToken, 100)
	_, err := env.engine.OpenDispute(ctx, testRelayer, testTenant, disputed.CommitmentID, 60)
	require.NoError(t, err)

	env.advance(2 * time.Hour)

	// Settle the first one out of band so the batch sees it stale.
	_, err = env.engine.Settle(ctx, testExecutor, first.CommitmentID)
	require.NoError(t, err)

	result, err := env.engine.ExecuteSettlement(ctx, testExecutor, []string{
		first.CommitmentID,
		second.CommitmentID,
		disputed.CommitmentID,
		"no-such-commitment",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{second.CommitmentID}, result.Settled)
	assert.ElementsMatch(t, []string{first.CommitmentID, disputed.CommitmentID, "no-such-commitment"}, result.Skipped)

	// Exactly two payouts: the out-of-band settle and the batch one.
	balance, _ := env.vault.Balance(ctx, testContrib, testToken)
	assert.Equal(t, int64(250), balance)
}

func TestExecuteSettlementTruncatesToBatchSize(t *testing.T) {
	env := newTestEnv(t)
	env.engine.maxBatchSize = 2
	ctx := context.Background()
	env.registerFunded(t, testTenant, 1000)

	var ids []string
	for i := 0; i < 3; i++ {
		c := env.createSubmitted(t, testTenant, 100, time.Hour)
		ids = append(ids, c.CommitmentID)
	}
	env.advance(2 * time.Hour)

	result, err := env.engine.ExecuteSettlement(ctx, testExecutor, ids)
	require.NoError(t, err)
	assert.Len(t, result.Settled, 2)

	// The truncated candidate still settles on the next batch.
	result, err = env.engine.ExecuteSettlement(ctx, testExecutor, []string{ids[2]})
	require.NoError(t, err)
	assert.Equal(t, []string{ids[2]}, result.Settled)
}

func TestAutomationRunnerSettlesDueCommitments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerFunded(t, testTenant, 1000)

	commitment := env.createSubmitted(t, testTenant, 100, time.Hour)
	env.advance(2 * time.Hour)

	runner := NewAutomationRunner(env.engine, testExecutor, 10*time.Millisecond, env.engine.logger)
	runner.Start()
	defer runner.Stop()

	require.Eventually(t, func() bool {
		c, err := env.engine.GetCommitment(ctx, commitment.CommitmentID)
		return err == nil && c.State.Terminal()
	}, 2*time.Second, 10*time.Millisecond)
}
