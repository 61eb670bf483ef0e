package usecase

import (
	"context"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/modules/tokensync/datagateway"
	"github.com/carbon-ledger/token-sync/modules/tokensync/internal/entity"
	"github.com/cockroachdb/errors"
)

// StatusProvider reports the scheduler state of the running sync engine.
type StatusProvider interface {
	Status() entity.SyncStatus
}

type Usecase struct {
	tokenSyncDg datagateway.TokenSyncDataGateway
	status      StatusProvider
	network     common.Network
	contract    string
}

func New(tokenSyncDg datagateway.TokenSyncDataGateway, status StatusProvider, network common.Network, contract string) *Usecase {
	return &Usecase{
		tokenSyncDg: tokenSyncDg,
		status:      status,
		network:     network,
		contract:    common.NormalizeAddress(contract),
	}
}

type SyncStatus struct {
	entity.SyncStatus
	Network  common.Network
	Contract string
	// Checkpoint is nil until the first window is synced.
	Checkpoint *entity.Checkpoint
}

func (u *Usecase) GetSyncStatus(ctx context.Context) (*SyncStatus, error) {
	status := &SyncStatus{
		Network:  u.network,
		Contract: u.contract,
	}
	if u.status != nil {
		status.SyncStatus = u.status.Status()
	}

	checkpoint, err := u.tokenSyncDg.GetCheckpoint(ctx, u.network, u.contract)
	switch {
	case err == nil:
		status.Checkpoint = &checkpoint
	case errors.Is(err, errs.NotFound), errors.Is(err, errs.Conflict):
	default:
		return nil, errors.Wrap(err, "failed to get checkpoint")
	}
	return status, nil
}

func (u *Usecase) GetToken(ctx context.Context, tokenId uint64) (*entity.Token, error) {
	token, err := u.tokenSyncDg.GetToken(ctx, tokenId)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get token")
	}
	return token, nil
}

func (u *Usecase) GetBalancesByHolder(ctx context.Context, holder string) ([]*entity.Balance, error) {
	balances, err := u.tokenSyncDg.GetBalancesByHolder(ctx, common.NormalizeAddress(holder))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balances")
	}
	return balances, nil
}

func (u *Usecase) GetWallet(ctx context.Context, address string) (*entity.Wallet, error) {
	wallet, err := u.tokenSyncDg.GetWallet(ctx, common.NormalizeAddress(address))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get wallet")
	}
	return wallet, nil
}
