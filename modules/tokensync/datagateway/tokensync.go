package datagateway

import (
	"context"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/modules/tokensync/internal/entity"
	"github.com/gaze-network/uint128"
)

type TokenSyncDataGateway interface {
	CheckpointDataGateway
	TokenSyncReaderDataGateway
	TokenSyncWriterDataGateway

	// BeginTokenSyncTx returns a new TokenSyncDataGateway with transaction enabled. All write operations performed in this datagateway must be committed to persist changes.
	BeginTokenSyncTx(ctx context.Context) (TokenSyncDataGatewayWithTx, error)
}

type TokenSyncDataGatewayWithTx interface {
	TokenSyncDataGateway
	Tx
}

type CheckpointDataGateway interface {
	// GetCheckpoint returns the stored checkpoint. Returns errs.NotFound if there is no checkpoint,
	// or errs.Conflict if the checkpoint was written for another network or contract.
	GetCheckpoint(ctx context.Context, network common.Network, contract string) (entity.Checkpoint, error)
	// SaveCheckpoint replaces the stored checkpoint.
	SaveCheckpoint(ctx context.Context, checkpoint entity.Checkpoint) error
}

type TokenSyncReaderDataGateway interface {
	// GetToken returns the token. Returns errs.NotFound if the token does not exist.
	GetToken(ctx context.Context, tokenId uint64) (*entity.Token, error)
	TokenExists(ctx context.Context, tokenId uint64) (bool, error)
	CountTokens(ctx context.Context) (uint64, error)

	// GetBalance returns the balance of the holder. Returns errs.NotFound if the balance does not exist.
	GetBalance(ctx context.Context, holder string, tokenId uint64) (*entity.Balance, error)
	GetBalancesByHolder(ctx context.Context, holder string) ([]*entity.Balance, error)

	// GetWallet returns the wallet. Returns errs.NotFound if the wallet does not exist.
	GetWallet(ctx context.Context, address string) (*entity.Wallet, error)
}

type TokenSyncWriterDataGateway interface {
	// CreateToken inserts a new token. Returns errs.Conflict if the token already exists.
	CreateToken(ctx context.Context, token entity.Token) error
	IncrementTotalIssued(ctx context.Context, tokenId uint64, amount uint128.Uint128) error
	IncrementTotalRetired(ctx context.Context, tokenId uint64, amount uint128.Uint128) error

	// CreateBalance inserts a new balance. Returns errs.Conflict if the balance already exists.
	CreateBalance(ctx context.Context, balance entity.Balance) error
	// AddAvailable credits the available amount of an existing balance. Returns errs.NotFound if the balance does not exist.
	AddAvailable(ctx context.Context, holder string, tokenId uint64, amount uint128.Uint128) error
	// RetireBalance moves amount from available to retired.
	// Returns errs.InsufficientBalance if the balance does not exist or its available amount is lower than amount.
	RetireBalance(ctx context.Context, holder string, tokenId uint64, amount uint128.Uint128) error
	// TransferOutBalance moves amount from available to transferred.
	// Returns errs.InsufficientBalance if the balance does not exist or its available amount is lower than amount.
	TransferOutBalance(ctx context.Context, holder string, tokenId uint64, amount uint128.Uint128) error

	UpsertWallet(ctx context.Context, wallet entity.Wallet) error

	// ClearTokens deletes all tokens and balances.
	ClearTokens(ctx context.Context) error
	// ClearWalletRoles removes the roles of all wallets.
	ClearWalletRoles(ctx context.Context) error
}
