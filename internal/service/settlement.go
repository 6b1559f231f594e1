package service

import (
	"context"

	"github.com/commonfund/escrowd/internal/errors"
	"github.com/commonfund/escrowd/internal/model"
	"go.uber.org/zap"
)

// BatchResult reports the outcome of one settlement batch. Skipped ids
// are not errors: a candidate that stopped qualifying between check
// and execute is simply left alone.
type BatchResult struct {
	Settled []string `json:"settled"`
	Skipped []string `json:"skipped"`
}

// CheckSettleable scans up to the configured batch size of submitted
// commitments and returns the ids whose dispute window has elapsed.
// Read-only and callable by anyone at any frequency; it observes
// ledger state without touching it, so it cannot be abused to move
// funds.
func (e *Engine) CheckSettleable(ctx context.Context) ([]string, error) {
	candidates, err := e.ledger.ListCommitmentsByState(ctx, model.StateSubmitted, e.maxBatchSize)
	if err != nil {
		return nil, errors.InternalError("failed to scan commitments", err)
	}

	now := e.now()
	settleable := make([]string, 0, len(candidates))
	for _, commitment := range candidates {
		if commitment.Settleable(now) {
			settleable = append(settleable, commitment.CommitmentID)
		}
	}

	e.metrics.SettleableCandidates.Set(float64(len(settleable)))

	return settleable, nil
}

// ExecuteSettlement settles a batch of candidate ids. Executor-only.
// Every id is re-validated under the engine lock before acting: a
// dispute opened after the check phase, a commitment already settled,
// or an unknown id is silently skipped. One stale id never blocks the
// rest of the batch.
func (e *Engine) ExecuteSettlement(ctx context.Context, caller string, commitmentIDs []string) (result *BatchResult, err error) {
	defer func() { e.countOp("execute_settlement", err) }()

	if rerr := e.requireRole(caller, model.RoleExecutor); rerr != nil {
		return nil, rerr
	}

	if len(commitmentIDs) > e.maxBatchSize {
		commitmentIDs = commitmentIDs[:e.maxBatchSize]
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	result = &BatchResult{
		Settled: make([]string, 0, len(commitmentIDs)),
		Skipped: make([]string, 0),
	}

	for _, commitmentID := range commitmentIDs {
		commitment, cerr := e.loadCommitment(ctx, commitmentID)
		if cerr != nil {
			result.Skipped = append(result.Skipped, commitmentID)
			e.logger.Debug("Skipping unknown batch candidate",
				zap.String("commitment_id", commitmentID))
			continue
		}

		if serr := e.settleLocked(ctx, commitment); serr != nil {
			result.Skipped = append(result.Skipped, commitmentID)
			e.logger.Debug("Skipping stale batch candidate",
				zap.String("commitment_id", commitmentID),
				zap.String("state", string(commitment.State)),
				zap.Error(serr))
			continue
		}

		result.Settled = append(result.Settled, commitmentID)
	}

	e.metrics.BatchesExecuted.Inc()
	e.metrics.BatchSettled.Add(float64(len(result.Settled)))
	e.metrics.BatchSkipped.Add(float64(len(result.Skipped)))

	e.logger.Info("Settlement batch executed",
		zap.Int("candidates", len(commitmentIDs)),
		zap.Int("settled", len(result.Settled)),
		zap.Int("skipped", len(result.Skipped)))

	return result, nil
}
