package postgres

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/modules/tokensync/internal/entity"
	"github.com/gaze-network/uint128"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	holderA  = "0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc"
	holderB  = "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"
	contract = "0x5fbdb2315678afecb367f032d93f642f64180aa3"
)

const migrationsDir = "../../database/postgresql/migrations"

// setupRepository starts a PostgreSQL container with the tokensync schema applied.
func setupRepository(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("tokensync"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	entries, err := os.ReadDir(migrationsDir)
	require.NoError(t, err)
	var files []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, entry.Name())
		}
	}
	slices.Sort(files)
	for _, file := range files {
		sql, err := os.ReadFile(filepath.Join(migrationsDir, file))
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(sql))
		require.NoError(t, err, "failed to apply migration %s", file)
	}

	return NewRepository(pool)
}

func TestRepository(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	t.Run("checkpoint", func(t *testing.T) {
		_, err := repo.GetCheckpoint(ctx, common.NetworkBSCTestnet, contract)
		assert.ErrorIs(t, err, errs.NotFound)

		require.NoError(t, repo.SaveCheckpoint(ctx, entity.Checkpoint{Network: common.NetworkBSCTestnet, Contract: contract, BlockNumber: 10}))
		require.NoError(t, repo.SaveCheckpoint(ctx, entity.Checkpoint{Network: common.NetworkBSCTestnet, Contract: contract, BlockNumber: 25}))

		checkpoint, err := repo.GetCheckpoint(ctx, common.NetworkBSCTestnet, contract)
		require.NoError(t, err)
		assert.Equal(t, uint64(25), checkpoint.BlockNumber)

		_, err = repo.GetCheckpoint(ctx, common.NetworkGoerli, contract)
		assert.ErrorIs(t, err, errs.Conflict)
	})

	t.Run("token", func(t *testing.T) {
		token := entity.Token{
			TokenId:     1,
			TokenTypeId: entity.TokenTypeAuditedEmissions,
			IssuedBy:    holderB,
			IssuedFrom:  "0x2a",
			IssuedTo:    holderA,
			FromDate:    1640995200,
			ThruDate:    1672531199,
			DateCreated: 1672531200,
			Metadata:    map[string]any{"scope": "1", "type": "Natural Gas"},
			Description: "natural gas emissions",
			Scope:       "1",
			Type:        "Natural Gas",
		}
		require.NoError(t, repo.CreateToken(ctx, token))
		assert.ErrorIs(t, repo.CreateToken(ctx, token), errs.Conflict)

		require.NoError(t, repo.IncrementTotalIssued(ctx, 1, uint128.From64(100)))
		require.NoError(t, repo.IncrementTotalRetired(ctx, 1, uint128.From64(40)))
		assert.ErrorIs(t, repo.IncrementTotalIssued(ctx, 9, uint128.From64(1)), errs.NotFound)

		stored, err := repo.GetToken(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, entity.TokenTypeAuditedEmissions, stored.TokenTypeId)
		assert.Equal(t, "0x2a", stored.IssuedFrom)
		assert.Equal(t, "Natural Gas", stored.Metadata["type"])
		assert.Empty(t, stored.Manifest)
		assert.Equal(t, uint128.From64(100), stored.TotalIssued)
		assert.Equal(t, uint128.From64(40), stored.TotalRetired)

		exists, err := repo.TokenExists(ctx, 1)
		require.NoError(t, err)
		assert.True(t, exists)
		count, err := repo.CountTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), count)
	})

	t.Run("balances", func(t *testing.T) {
		require.NoError(t, repo.CreateBalance(ctx, entity.Balance{Holder: holderA, TokenId: 1, Available: uint128.From64(100)}))
		assert.ErrorIs(t, repo.CreateBalance(ctx, entity.Balance{Holder: holderA, TokenId: 1}), errs.Conflict)

		require.NoError(t, repo.RetireBalance(ctx, holderA, 1, uint128.From64(40)))
		require.NoError(t, repo.TransferOutBalance(ctx, holderA, 1, uint128.From64(10)))
		assert.ErrorIs(t, repo.TransferOutBalance(ctx, holderA, 1, uint128.From64(51)), errs.InsufficientBalance)
		assert.ErrorIs(t, repo.AddAvailable(ctx, holderB, 1, uint128.From64(10)), errs.NotFound)
		require.NoError(t, repo.CreateBalance(ctx, entity.Balance{Holder: holderB, TokenId: 1, Available: uint128.From64(10)}))

		balance, err := repo.GetBalance(ctx, "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC", 1)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(50), balance.Available)
		assert.Equal(t, uint128.From64(40), balance.Retired)
		assert.Equal(t, uint128.From64(10), balance.Transferred)

		balances, err := repo.GetBalancesByHolder(ctx, holderB)
		require.NoError(t, err)
		require.Len(t, balances, 1)
		assert.Equal(t, uint128.From64(10), balances[0].Available)
	})

	t.Run("transaction", func(t *testing.T) {
		tx, err := repo.BeginTokenSyncTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.AddAvailable(ctx, holderB, 1, uint128.From64(5)))
		require.NoError(t, tx.Rollback(ctx))

		balance, err := repo.GetBalance(ctx, holderB, 1)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(10), balance.Available)

		tx, err = repo.BeginTokenSyncTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.AddAvailable(ctx, holderB, 1, uint128.From64(5)))
		require.NoError(t, tx.Commit(ctx))

		balance, err = repo.GetBalance(ctx, holderB, 1)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(15), balance.Available)
	})

	t.Run("wallets", func(t *testing.T) {
		require.NoError(t, repo.UpsertWallet(ctx, entity.Wallet{Address: holderA, Roles: []string{"Consumer"}}))
		require.NoError(t, repo.UpsertWallet(ctx, entity.Wallet{Address: holderA, Roles: []string{"Consumer", "Industry"}}))
		wallet, err := repo.GetWallet(ctx, holderA)
		require.NoError(t, err)
		assert.Equal(t, []string{"Consumer", "Industry"}, wallet.Roles)

		require.NoError(t, repo.ClearWalletRoles(ctx))
		wallet, err = repo.GetWallet(ctx, holderA)
		require.NoError(t, err)
		assert.Empty(t, wallet.Roles)
	})

	t.Run("clear tokens", func(t *testing.T) {
		require.NoError(t, repo.ClearTokens(ctx))
		count, err := repo.CountTokens(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
		_, err = repo.GetBalance(ctx, holderA, 1)
		assert.ErrorIs(t, err, errs.NotFound)
	})
}
