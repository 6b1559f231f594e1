// Package health provides liveness and readiness checks.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/commonfund/escrowd/internal/store"
)

// Checker tracks the health of the ledger's backing stores.
type Checker struct {
	ledger      store.LedgerStore
	idempotency store.IdempotencyStore
	logger      *zap.Logger

	mu            sync.RWMutex
	ready         bool
	lastError     string
	checkInterval time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
}

// LivenessResponse is the response for liveness checks.
type LivenessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse is the response for readiness checks.
type ReadinessResponse struct {
	Status    string    `json:"status"`
	Ready     bool      `json:"ready"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChecker creates a health checker and starts periodic background checks.
func NewChecker(ledger store.LedgerStore, idempotency store.IdempotencyStore, checkInterval time.Duration, logger *zap.Logger) *Checker {
	c := &Checker{
		ledger:        ledger,
		idempotency:   idempotency,
		logger:        logger,
		checkInterval: checkInterval,
		stopCh:        make(chan struct{}),
	}
	c.check()
	go c.backgroundCheck()
	return c
}

// backgroundCheck periodically refreshes readiness.
func (c *Checker) backgroundCheck() {
	ticker := time.NewTicker(c.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.check()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Checker) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ready := true
	lastError := ""

	if err := c.ledger.Ping(ctx); err != nil {
		ready = false
		lastError = "ledger store: " + err.Error()
		c.logger.Warn("ledger store health check failed", zap.Error(err))
	}

	if ready && c.idempotency != nil {
		if err := c.idempotency.Ping(ctx); err != nil {
			ready = false
			lastError = "idempotency store: " + err.Error()
			c.logger.Warn("idempotency store health check failed", zap.Error(err))
		}
	}

	c.mu.Lock()
	c.ready = ready
	c.lastError = lastError
	c.mu.Unlock()
}

// Stop stops the background checks.
func (c *Checker) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// LivenessHandler handles GET /health/live.
func (c *Checker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// ReadinessHandler handles GET /health/ready.
func (c *Checker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	ready := c.ready
	lastError := c.lastError
	c.mu.RUnlock()

	resp := ReadinessResponse{
		Ready:     ready,
		Error:     lastError,
		Timestamp: time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	if ready {
		resp.Status = "ready"
		w.WriteHeader(http.StatusOK)
	} else {
		resp.Status = "not ready"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(resp)
}
