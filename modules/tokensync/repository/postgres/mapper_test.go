package postgres

import (
	"testing"
	"time"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/modules/tokensync/internal/entity"
	"github.com/carbon-ledger/token-sync/modules/tokensync/repository/postgres/gen"
	"github.com/gaze-network/uint128"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapToken(t *testing.T) {
	token := entity.Token{
		TokenId:      7,
		TokenTypeId:  entity.TokenTypeCarbonEmissionsOffset,
		IssuedBy:     "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
		IssuedFrom:   "0xff",
		IssuedTo:     holderB,
		FromDate:     1,
		ThruDate:     2,
		DateCreated:  3,
		Metadata:     map[string]any{"Scope": "2"},
		Description:  "offset",
		Scope:        "2",
		TotalIssued:  uint128.From64(1500),
		TotalRetired: uint128.Max,
	}

	params, err := mapTokenTypeToParams(token)
	require.NoError(t, err)
	assert.Equal(t, holderA, params.IssuedBy, "addresses are stored normalized")
	assert.JSONEq(t, `{}`, string(params.Manifest), "a nil object is stored as {}")

	got, err := mapTokenModelToType(gen.TokensyncToken(params))
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(1500), got.TotalIssued)
	assert.Equal(t, uint128.Max, got.TotalRetired)
	assert.Equal(t, map[string]any{"Scope": "2"}, got.Metadata)
	assert.Equal(t, map[string]any{}, got.Manifest)
	assert.Equal(t, entity.TokenTypeCarbonEmissionsOffset, got.TokenTypeId)
}

func TestMapTokenOverflow(t *testing.T) {
	var total pgtype.Numeric
	require.NoError(t, total.UnmarshalJSON([]byte("340282366920938463463374607431768211456")))

	_, err := mapTokenModelToType(gen.TokensyncToken{TotalIssued: total})
	assert.ErrorIs(t, err, errs.OverflowUint128)
}

func TestMapBalance(t *testing.T) {
	params, err := mapBalanceTypeToParams(entity.Balance{
		Holder:      "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
		TokenId:     1,
		Available:   uint128.From64(60),
		Transferred: uint128.From64(40),
	})
	require.NoError(t, err)

	got, err := mapBalanceModelToType(gen.TokensyncBalance(params))
	require.NoError(t, err)
	assert.Equal(t, entity.Balance{
		Holder:      holderA,
		TokenId:     1,
		Available:   uint128.From64(60),
		Retired:     uint128.Zero,
		Transferred: uint128.From64(40),
	}, got)
}

func TestMapCheckpointAndWallet(t *testing.T) {
	updatedAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	params := mapCheckpointTypeToParams(entity.Checkpoint{
		Network:     common.NetworkBSCTestnet,
		Contract:    "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		BlockNumber: 42,
		UpdatedAt:   updatedAt,
	})
	checkpoint := mapCheckpointModelToType(gen.TokensyncCheckpoint{
		ID:          1,
		Network:     params.Network,
		Contract:    params.Contract,
		BlockNumber: params.BlockNumber,
		UpdatedAt:   params.UpdatedAt,
	})
	assert.True(t, checkpoint.Matches(common.NetworkBSCTestnet, contract))
	assert.Equal(t, uint64(42), checkpoint.BlockNumber)
	assert.Equal(t, updatedAt, checkpoint.UpdatedAt)

	wallet := mapWalletTypeToParams(entity.Wallet{Address: holderA}, updatedAt)
	assert.NotNil(t, wallet.Roles, "roles are never stored as NULL")
	assert.Empty(t, wallet.Roles)
}
