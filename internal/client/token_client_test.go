package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestVaultTransferInAndOut(t *testing.T) {
	vault := NewMemoryVault(zap.NewNop())
	ctx := context.Background()

	vault.Mint("alice", "USDC", 1000)

	require.NoError(t, vault.TransferIn(ctx, "alice", "USDC", 400))

	balance, err := vault.Balance(ctx, "alice", "USDC")
	require.NoError(t, err)
	assert.Equal(t, int64(600), balance)
	assert.Equal(t, int64(400), vault.Escrowed("USDC"))

	require.NoError(t, vault.TransferOut(ctx, "bob", "USDC", 250))

	balance, err = vault.Balance(ctx, "bob", "USDC")
	require.NoError(t, err)
	assert.Equal(t, int64(250), balance)
	assert.Equal(t, int64(150), vault.Escrowed("USDC"))
}

func TestVaultRejectsOverdraft(t *testing.T) {
	vault := NewMemoryVault(zap.NewNop())
	ctx := context.Background()

	vault.Mint("alice", "USDC", 100)

	assert.Error(t, vault.TransferIn(ctx, "alice", "USDC", 101))
	assert.Error(t, vault.TransferOut(ctx, "alice", "USDC", 1))
}

func TestVaultRejectsNonPositiveAmounts(t *testing.T) {
	vault := NewMemoryVault(zap.NewNop())
	ctx := context.Background()

	assert.Error(t, vault.TransferIn(ctx, "alice", "USDC", 0))
	assert.Error(t, vault.TransferOut(ctx, "alice", "USDC", -5))
}

func TestVaultTokensAreIndependent(t *testing.T) {
	vault := NewMemoryVault(zap.NewNop())
	ctx := context.Background()

	vault.Mint("alice", "USDC", 100)
	vault.Mint("alice", "DAI", 50)

	require.NoError(t, vault.TransferIn(ctx, "alice", "USDC", 100))

	daiBalance, err := vault.Balance(ctx, "alice", "DAI")
	require.NoError(t, err)
	assert.Equal(t, int64(50), daiBalance)
	assert.Equal(t, int64(0), vault.Escrowed("DAI"))
}
