package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AutomationRunner drives the check/execute settlement cycle on a
// timer, acting as the configured executor identity. The two phases
// stay independently callable; the runner is just a caller that never
// sleeps through a due window for long.
type AutomationRunner struct {
	engine       *Engine
	executor     string
	pollInterval time.Duration
	logger       *zap.Logger

	stopCh chan struct{}
}

// NewAutomationRunner creates a new settlement automation runner
func NewAutomationRunner(engine *Engine, executor string, pollInterval time.Duration, logger *zap.Logger) *AutomationRunner {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}

	return &AutomationRunner{
		engine:       engine,
		executor:     executor,
		pollInterval: pollInterval,
		logger:       logger,
		stopCh:       make(chan struct{}),
	}
}

// Start begins the background settlement process
func (r *AutomationRunner) Start() {
	r.logger.Info("Starting settlement automation",
		zap.String("executor", r.executor),
		zap.Duration("poll_interval", r.pollInterval))

	ticker := time.NewTicker(r.pollInterval)
	go func() {
		for {
			select {
			case <-ticker.C:
				r.runOnce()
			case <-r.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the background settlement process
func (r *AutomationRunner) Stop() {
	close(r.stopCh)
	r.logger.Info("Settlement automation stopped")
}

// runOnce performs one check/execute cycle. The execute phase
// re-validates every candidate, so a stale check result is harmless.
func (r *AutomationRunner) runOnce() {
	ctx := context.Background()

	candidates, err := r.engine.CheckSettleable(ctx)
	if err != nil {
		r.logger.Error("Settlement check failed", zap.Error(err))
		return
	}
	if len(candidates) == 0 {
		return
	}

	result, err := r.engine.ExecuteSettlement(ctx, r.executor, candidates)
	if err != nil {
		r.logger.Error("Settlement execution failed",
			zap.Int("candidates", len(candidates)),
			zap.Error(err))
		return
	}

	r.logger.Info("Automated settlement cycle completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("settled", len(result.Settled)),
		zap.Int("skipped", len(result.Skipped)))
}
