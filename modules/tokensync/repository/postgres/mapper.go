package postgres

import (
	"time"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/modules/tokensync/internal/entity"
	"github.com/carbon-ledger/token-sync/modules/tokensync/repository/postgres/gen"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sugawarayuuta/sonnet"
)

func uint128FromNumeric(src pgtype.Numeric) (uint128.Uint128, error) {
	if !src.Valid {
		return uint128.Zero, nil
	}
	bytes, err := src.MarshalJSON()
	if err != nil {
		return uint128.Zero, errors.WithStack(err)
	}
	result, err := uint128.FromString(string(bytes))
	if err != nil {
		return uint128.Zero, errors.Wrapf(errs.OverflowUint128, "numeric %s", bytes)
	}
	return result, nil
}

func numericFromUint128(src uint128.Uint128) (pgtype.Numeric, error) {
	bytes := []byte(src.String())
	var result pgtype.Numeric
	err := result.UnmarshalJSON(bytes)
	if err != nil {
		return pgtype.Numeric{}, errors.WithStack(err)
	}
	return result, nil
}

func timestamp(t time.Time) pgtype.Timestamp {
	return pgtype.Timestamp{Time: t, Valid: true}
}

// jsonObject encodes a JSON object column. A nil object is stored as {}.
func jsonObject(src map[string]any) ([]byte, error) {
	if src == nil {
		return []byte("{}"), nil
	}
	data, err := sonnet.Marshal(src)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode json object")
	}
	return data, nil
}

func mapFromJSONObject(src []byte) map[string]any {
	result := make(map[string]any)
	if len(src) == 0 {
		return result
	}
	if err := sonnet.Unmarshal(src, &result); err != nil {
		return make(map[string]any)
	}
	return result
}

func mapCheckpointModelToType(src gen.TokensyncCheckpoint) entity.Checkpoint {
	return entity.Checkpoint{
		Network:     common.Network(src.Network),
		Contract:    src.Contract,
		BlockNumber: uint64(src.BlockNumber),
		UpdatedAt:   src.UpdatedAt.Time,
	}
}

func mapCheckpointTypeToParams(src entity.Checkpoint) gen.SaveCheckpointParams {
	return gen.SaveCheckpointParams{
		Network:     src.Network.String(),
		Contract:    common.NormalizeAddress(src.Contract),
		BlockNumber: int64(src.BlockNumber),
		UpdatedAt:   timestamp(src.UpdatedAt),
	}
}

func mapTokenModelToType(src gen.TokensyncToken) (entity.Token, error) {
	totalIssued, err := uint128FromNumeric(src.TotalIssued)
	if err != nil {
		return entity.Token{}, errors.Wrap(err, "failed to parse total issued")
	}
	totalRetired, err := uint128FromNumeric(src.TotalRetired)
	if err != nil {
		return entity.Token{}, errors.Wrap(err, "failed to parse total retired")
	}
	return entity.Token{
		TokenId:      uint64(src.TokenID),
		TokenTypeId:  entity.TokenType(src.TokenTypeID),
		IssuedBy:     src.IssuedBy,
		IssuedFrom:   src.IssuedFrom,
		IssuedTo:     src.IssuedTo,
		FromDate:     uint64(src.FromDate),
		ThruDate:     uint64(src.ThruDate),
		DateCreated:  uint64(src.DateCreated),
		Metadata:     mapFromJSONObject(src.Metadata),
		Manifest:     mapFromJSONObject(src.Manifest),
		Description:  src.Description,
		Scope:        src.Scope,
		Type:         src.Type,
		TotalIssued:  totalIssued,
		TotalRetired: totalRetired,
	}, nil
}

func mapTokenTypeToParams(src entity.Token) (gen.CreateTokenParams, error) {
	metadata, err := jsonObject(src.Metadata)
	if err != nil {
		return gen.CreateTokenParams{}, errors.WithStack(err)
	}
	manifest, err := jsonObject(src.Manifest)
	if err != nil {
		return gen.CreateTokenParams{}, errors.WithStack(err)
	}
	totalIssued, err := numericFromUint128(src.TotalIssued)
	if err != nil {
		return gen.CreateTokenParams{}, errors.Wrap(err, "failed to convert total issued")
	}
	totalRetired, err := numericFromUint128(src.TotalRetired)
	if err != nil {
		return gen.CreateTokenParams{}, errors.Wrap(err, "failed to convert total retired")
	}
	return gen.CreateTokenParams{
		TokenID:      int64(src.TokenId),
		TokenTypeID:  int16(src.TokenTypeId),
		IssuedBy:     common.NormalizeAddress(src.IssuedBy),
		IssuedFrom:   src.IssuedFrom,
		IssuedTo:     common.NormalizeAddress(src.IssuedTo),
		FromDate:     int64(src.FromDate),
		ThruDate:     int64(src.ThruDate),
		DateCreated:  int64(src.DateCreated),
		Metadata:     metadata,
		Manifest:     manifest,
		Description:  src.Description,
		Scope:        src.Scope,
		Type:         src.Type,
		TotalIssued:  totalIssued,
		TotalRetired: totalRetired,
	}, nil
}

func mapBalanceModelToType(src gen.TokensyncBalance) (entity.Balance, error) {
	available, err := uint128FromNumeric(src.Available)
	if err != nil {
		return entity.Balance{}, errors.Wrap(err, "failed to parse available balance")
	}
	retired, err := uint128FromNumeric(src.Retired)
	if err != nil {
		return entity.Balance{}, errors.Wrap(err, "failed to parse retired balance")
	}
	transferred, err := uint128FromNumeric(src.Transferred)
	if err != nil {
		return entity.Balance{}, errors.Wrap(err, "failed to parse transferred balance")
	}
	return entity.Balance{
		Holder:      src.Holder,
		TokenId:     uint64(src.TokenID),
		Available:   available,
		Retired:     retired,
		Transferred: transferred,
	}, nil
}

func mapBalanceTypeToParams(src entity.Balance) (gen.CreateBalanceParams, error) {
	available, err := numericFromUint128(src.Available)
	if err != nil {
		return gen.CreateBalanceParams{}, errors.Wrap(err, "failed to convert available balance")
	}
	retired, err := numericFromUint128(src.Retired)
	if err != nil {
		return gen.CreateBalanceParams{}, errors.Wrap(err, "failed to convert retired balance")
	}
	transferred, err := numericFromUint128(src.Transferred)
	if err != nil {
		return gen.CreateBalanceParams{}, errors.Wrap(err, "failed to convert transferred balance")
	}
	return gen.CreateBalanceParams{
		Holder:      common.NormalizeAddress(src.Holder),
		TokenID:     int64(src.TokenId),
		Available:   available,
		Retired:     retired,
		Transferred: transferred,
	}, nil
}

func mapWalletModelToType(src gen.TokensyncWallet) entity.Wallet {
	return entity.Wallet{
		Address: src.Address,
		Roles:   src.Roles,
	}
}

func mapWalletTypeToParams(src entity.Wallet, updatedAt time.Time) gen.UpsertWalletParams {
	roles := src.Roles
	if roles == nil {
		roles = []string{}
	}
	return gen.UpsertWalletParams{
		Address:   common.NormalizeAddress(src.Address),
		Roles:     roles,
		UpdatedAt: timestamp(updatedAt),
	}
}
