package tokensync

import (
	"context"
	"testing"

	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/carbon-ledger/token-sync/modules/tokensync/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletRoleSyncer(t *testing.T) {
	ctx := context.Background()
	reader := newFakeReader()
	repo := memory.NewRepository()
	syncer := NewWalletRoleSyncer(reader, repo)

	reader.roles[holderA] = ledger.Roles{IsConsumer: true, IsIndustry: true}
	require.NoError(t, syncer.OnRoleChangeCandidate(ctx, "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"))
	wallet, err := repo.GetWallet(ctx, holderA)
	require.NoError(t, err)
	assert.Equal(t, holderA, wallet.Address)
	assert.Equal(t, []string{"Consumer", "Industry"}, wallet.Roles)

	reader.roles[holderA] = ledger.Roles{IsIndustry: true, IsIndustryDealer: true}
	require.NoError(t, syncer.OnRoleChangeCandidate(ctx, holderA))
	wallet, err = repo.GetWallet(ctx, holderA)
	require.NoError(t, err)
	assert.Equal(t, []string{"Industry", "Industry Dealer"}, wallet.Roles)

	// an account without roles is still stored
	require.NoError(t, syncer.OnRoleChangeCandidate(ctx, holderB))
	wallet, err = repo.GetWallet(ctx, holderB)
	require.NoError(t, err)
	assert.Empty(t, wallet.Roles)

	assert.Equal(t, []string{holderA, holderA, holderB}, reader.rolesCalls)
}
