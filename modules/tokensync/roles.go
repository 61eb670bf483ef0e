package tokensync

import (
	"context"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/carbon-ledger/token-sync/modules/tokensync/datagateway"
	"github.com/carbon-ledger/token-sync/modules/tokensync/internal/entity"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/cockroachdb/errors"
)

// RoleChangeHandler is notified of accounts whose roles may have changed.
type RoleChangeHandler interface {
	OnRoleChangeCandidate(ctx context.Context, address string) error
}

// WalletRoleSyncer reconciles stored wallet roles with the roles granted by the ledger.
type WalletRoleSyncer struct {
	reader      ledger.Reader
	tokenSyncDg datagateway.TokenSyncDataGateway
}

var _ RoleChangeHandler = (*WalletRoleSyncer)(nil)

func NewWalletRoleSyncer(reader ledger.Reader, tokenSyncDg datagateway.TokenSyncDataGateway) *WalletRoleSyncer {
	return &WalletRoleSyncer{
		reader:      reader,
		tokenSyncDg: tokenSyncDg,
	}
}

// OnRoleChangeCandidate fetches the current roles of the address from the ledger
// and stores them. Role changes of a known wallet are logged as a roles_changed event.
func (s *WalletRoleSyncer) OnRoleChangeCandidate(ctx context.Context, address string) error {
	address = common.NormalizeAddress(address)
	ctx = logger.WithContext(ctx, slogx.String("address", address))

	roles, err := s.reader.GetRoles(ctx, address)
	if err != nil {
		return errors.Wrapf(err, "failed to get roles of %s", address)
	}
	names := roles.Names()

	current, err := s.tokenSyncDg.GetWallet(ctx, address)
	switch {
	case err == nil:
		added, removed := entity.RolesDiff(current.Roles, names)
		if len(added) > 0 || len(removed) > 0 {
			logger.InfoContext(ctx, "Wallet roles changed",
				slogx.String("event", "roles_changed"),
				slogx.Any("added", added),
				slogx.Any("removed", removed),
			)
		}
	case errors.Is(err, errs.NotFound):
	default:
		return errors.Wrapf(err, "failed to get wallet %s", address)
	}

	if err := s.tokenSyncDg.UpsertWallet(ctx, entity.Wallet{
		Address: address,
		Roles:   names,
	}); err != nil {
		return errors.Wrapf(err, "failed to save wallet %s", address)
	}
	metricRolesSynced.Inc()
	logger.DebugContext(ctx, "Synced wallet roles", slogx.Any("roles", names))
	return nil
}
