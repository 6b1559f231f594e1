package client

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// TokenClient moves fungible tokens between external accounts and the
// escrow vault. Token custody is an external collaborator concern: the
// engine only asks for movements and aborts the enclosing operation
// when a movement fails.
type TokenClient interface {
	// TransferIn moves amount of token from the account into escrow custody
	TransferIn(ctx context.Context, from, token string, amount int64) error
	// TransferOut moves amount of token from escrow custody to the account
	TransferOut(ctx context.Context, to, token string, amount int64) error
	// Balance returns the account's balance for the token
	Balance(ctx context.Context, account, token string) (int64, error)
}

// MemoryVault is an in-process TokenClient backed by per-account
// balance maps. Used for development and tests; a deployment fronting
// a real token ledger supplies its own TokenClient.
type MemoryVault struct {
	mu       sync.Mutex
	accounts map[string]int64 // account/token -> balance
	escrowed map[string]int64 // token -> custody balance
	logger   *zap.Logger
}

// NewMemoryVault creates an empty in-memory vault
func NewMemoryVault(logger *zap.Logger) *MemoryVault {
	return &MemoryVault{
		accounts: make(map[string]int64),
		escrowed: make(map[string]int64),
		logger:   logger,
	}
}

// Mint credits an account with tokens. Test and bootstrap helper.
func (v *MemoryVault) Mint(account, token string, amount int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.accounts[accountKey(account, token)] += amount
}

// TransferIn moves tokens from an account into escrow custody
func (v *MemoryVault) TransferIn(ctx context.Context, from, token string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	key := accountKey(from, token)
	if v.accounts[key] < amount {
		return fmt.Errorf("account %s holds %d %s, cannot transfer %d", from, v.accounts[key], token, amount)
	}

	v.accounts[key] -= amount
	v.escrowed[token] += amount

	v.logger.Debug("Tokens transferred into escrow",
		zap.String("from", from),
		zap.String("token", token),
		zap.Int64("amount", amount))

	return nil
}

// TransferOut moves tokens from escrow custody to an account
func (v *MemoryVault) TransferOut(ctx context.Context, to, token string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.escrowed[token] < amount {
		return fmt.Errorf("escrow custody holds %d %s, cannot release %d", v.escrowed[token], token, amount)
	}

	v.escrowed[token] -= amount
	v.accounts[accountKey(to, token)] += amount

	v.logger.Debug("Tokens released from escrow",
		zap.String("to", to),
		zap.String("token", token),
		zap.Int64("amount", amount))

	return nil
}

// Balance returns the account's balance for the token
func (v *MemoryVault) Balance(ctx context.Context, account, token string) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.accounts[accountKey(account, token)], nil
}

// Escrowed returns the custody balance held for the token
func (v *MemoryVault) Escrowed(token string) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.escrowed[token]
}

func accountKey(account, token string) string {
	return account + "/" + token
}
