package memory

import (
	"context"
	"testing"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/modules/tokensync/internal/entity"
	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	holderA  = "0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc"
	contract = "0x5fbdb2315678afecb367f032d93f642f64180aa3"
)

func TestCheckpoint(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	_, err := repo.GetCheckpoint(ctx, common.NetworkBSCTestnet, contract)
	assert.ErrorIs(t, err, errs.NotFound)

	require.NoError(t, repo.SaveCheckpoint(ctx, entity.Checkpoint{
		Network:     common.NetworkBSCTestnet,
		Contract:    "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		BlockNumber: 42,
	}))

	checkpoint, err := repo.GetCheckpoint(ctx, common.NetworkBSCTestnet, contract)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), checkpoint.BlockNumber)
	assert.False(t, checkpoint.UpdatedAt.IsZero())

	_, err = repo.GetCheckpoint(ctx, common.NetworkAvalancheTestnet, contract)
	assert.ErrorIs(t, err, errs.Conflict)
}

func TestBalances(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	require.NoError(t, repo.CreateBalance(ctx, entity.Balance{Holder: "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC", TokenId: 1, Available: uint128.From64(100)}))
	assert.ErrorIs(t, repo.CreateBalance(ctx, entity.Balance{Holder: holderA, TokenId: 1}), errs.Conflict)

	require.NoError(t, repo.RetireBalance(ctx, holderA, 1, uint128.From64(30)))
	require.NoError(t, repo.TransferOutBalance(ctx, holderA, 1, uint128.From64(20)))
	require.NoError(t, repo.AddAvailable(ctx, holderA, 1, uint128.From64(5)))

	balance, err := repo.GetBalance(ctx, holderA, 1)
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(55), balance.Available)
	assert.Equal(t, uint128.From64(30), balance.Retired)
	assert.Equal(t, uint128.From64(20), balance.Transferred)

	err = repo.RetireBalance(ctx, holderA, 1, uint128.From64(56))
	assert.ErrorIs(t, err, errs.InsufficientBalance)
	err = repo.TransferOutBalance(ctx, holderA, 2, uint128.From64(1))
	assert.ErrorIs(t, err, errs.InsufficientBalance)
	err = repo.AddAvailable(ctx, holderA, 2, uint128.From64(1))
	assert.ErrorIs(t, err, errs.NotFound)

	balances, err := repo.GetBalancesByHolder(ctx, holderA)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, uint128.From64(55), balances[0].Available)
}

func TestTokenTotals(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	require.NoError(t, repo.CreateToken(ctx, entity.Token{TokenId: 1}))
	assert.ErrorIs(t, repo.CreateToken(ctx, entity.Token{TokenId: 1}), errs.Conflict)

	require.NoError(t, repo.IncrementTotalIssued(ctx, 1, uint128.From64(10)))
	require.NoError(t, repo.IncrementTotalRetired(ctx, 1, uint128.From64(3)))
	assert.ErrorIs(t, repo.IncrementTotalIssued(ctx, 1, uint128.Max), errs.OverflowUint128)
	assert.ErrorIs(t, repo.IncrementTotalIssued(ctx, 2, uint128.From64(1)), errs.NotFound)

	token, err := repo.GetToken(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(10), token.TotalIssued)
	assert.Equal(t, uint128.From64(3), token.TotalRetired)

	count, err := repo.CountTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	require.NoError(t, repo.ClearTokens(ctx))
	exists, err := repo.TokenExists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTransaction(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	require.NoError(t, repo.CreateToken(ctx, entity.Token{TokenId: 1}))

	t.Run("rollback", func(t *testing.T) {
		tx, err := repo.BeginTokenSyncTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.CreateBalance(ctx, entity.Balance{Holder: holderA, TokenId: 1, Available: uint128.From64(1)}))

		// visible inside the transaction only
		_, err = tx.GetBalance(ctx, holderA, 1)
		require.NoError(t, err)
		_, err = repo.GetBalance(ctx, holderA, 1)
		assert.ErrorIs(t, err, errs.NotFound)

		require.NoError(t, tx.Rollback(ctx))
		require.NoError(t, tx.Rollback(ctx))
		_, err = repo.GetBalance(ctx, holderA, 1)
		assert.ErrorIs(t, err, errs.NotFound)
	})

	t.Run("commit", func(t *testing.T) {
		tx, err := repo.BeginTokenSyncTx(ctx)
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, tx.Rollback(ctx))
		}()
		_, err = tx.BeginTokenSyncTx(ctx)
		assert.ErrorIs(t, err, ErrTxAlreadyExists)

		require.NoError(t, tx.CreateBalance(ctx, entity.Balance{Holder: holderA, TokenId: 1, Available: uint128.From64(7)}))
		require.NoError(t, tx.IncrementTotalIssued(ctx, 1, uint128.From64(7)))
		require.NoError(t, tx.Commit(ctx))

		balance, err := repo.GetBalance(ctx, holderA, 1)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(7), balance.Available)
		token, err := repo.GetToken(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(7), token.TotalIssued)
	})
}

func TestWallets(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	_, err := repo.GetWallet(ctx, holderA)
	assert.ErrorIs(t, err, errs.NotFound)

	require.NoError(t, repo.UpsertWallet(ctx, entity.Wallet{Address: holderA, Roles: []string{"Consumer"}}))
	require.NoError(t, repo.UpsertWallet(ctx, entity.Wallet{Address: holderA, Roles: []string{"Consumer", "Industry"}}))

	wallet, err := repo.GetWallet(ctx, "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	require.NoError(t, err)
	assert.Equal(t, []string{"Consumer", "Industry"}, wallet.Roles)

	require.NoError(t, repo.ClearWalletRoles(ctx))
	wallet, err = repo.GetWallet(ctx, holderA)
	require.NoError(t, err)
	assert.Empty(t, wallet.Roles)
}
