package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/commonfund/escrowd/internal/store"
	"go.uber.org/zap"
)

// IdempotencyService caches mutation responses so a retried request
// carrying the same idempotency key replays the original outcome
// instead of re-executing the mutation
type IdempotencyService struct {
	idempotencyStore store.IdempotencyStore
	ttl              time.Duration
	logger           *zap.Logger
}

// CachedResponse represents a cached mutation response
type CachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
}

// NewIdempotencyService creates a new idempotency service
func NewIdempotencyService(
	idempotencyStore store.IdempotencyStore,
	ttl time.Duration,
	logger *zap.Logger,
) *IdempotencyService {
	return &IdempotencyService{
		idempotencyStore: idempotencyStore,
		ttl:              ttl,
		logger:           logger,
	}
}

// Get retrieves a cached response for the key; returns nil when absent
func (s *IdempotencyService) Get(ctx context.Context, operation, key string) (*CachedResponse, error) {
	data, err := s.idempotencyStore.Get(ctx, s.storeKey(operation, key))
	if err != nil {
		if err == store.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get idempotency response: %w", err)
	}

	var response CachedResponse
	if err := json.Unmarshal(data, &response); err != nil {
		s.logger.Error("Invalid cached idempotency response",
			zap.String("operation", operation),
			zap.Error(err))
		return nil, fmt.Errorf("invalid cached idempotency response: %w", err)
	}

	return &response, nil
}

// Set caches a mutation response under the key
func (s *IdempotencyService) Set(ctx context.Context, operation, key string, statusCode int, body []byte) error {
	data, err := json.Marshal(&CachedResponse{
		StatusCode: statusCode,
		Body:       body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency response: %w", err)
	}

	if err := s.idempotencyStore.Set(ctx, s.storeKey(operation, key), data, s.ttl); err != nil {
		return fmt.Errorf("failed to cache idempotency response: %w", err)
	}

	return nil
}

func (s *IdempotencyService) storeKey(operation, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", operation, key)
}
