package tokensync

import (
	"context"
	"log/slog"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/modules/tokensync/datagateway"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/cockroachdb/errors"
)

type SyncerConfig struct {
	Network  common.Network
	Contract string
	// DeploymentBlock is the block the contract was deployed at.
	DeploymentBlock uint64
}

// Syncer resolves where synchronization resumes from and runs the startup sync.
type Syncer struct {
	config      SyncerConfig
	tokenSyncDg datagateway.TokenSyncDataGateway
	scanner     *Scanner
}

func NewSyncer(config SyncerConfig, tokenSyncDg datagateway.TokenSyncDataGateway, scanner *Scanner) *Syncer {
	return &Syncer{
		config:      config,
		tokenSyncDg: tokenSyncDg,
		scanner:     scanner,
	}
}

// FirstBlock returns the first block of interest.
func (s *Syncer) FirstBlock() uint64 {
	return s.config.Network.FirstBlock(s.config.DeploymentBlock)
}

// LastSyncedBlock returns the checkpoint block, or the first block if there is
// no checkpoint for the configured network and contract.
func (s *Syncer) LastSyncedBlock(ctx context.Context) (uint64, error) {
	checkpoint, err := s.tokenSyncDg.GetCheckpoint(ctx, s.config.Network, s.config.Contract)
	if err != nil {
		if errors.Is(err, errs.NotFound) || errors.Is(err, errs.Conflict) {
			return s.FirstBlock(), nil
		}
		return 0, errors.Wrap(err, "failed to get checkpoint")
	}
	return checkpoint.BlockNumber, nil
}

// StartupSync resumes synchronization after the checkpoint. A full resync from
// the first block clears the synced tokens, balances and wallet roles first.
// Local networks always resync from genesis. It returns the head block.
func (s *Syncer) StartupSync(ctx context.Context) (uint64, error) {
	ctx = logger.WithContext(ctx, slog.String("component", "syncer"))
	first := s.FirstBlock()
	from := first

	if s.config.Network.IsLocal() {
		logger.InfoContext(ctx, "Local network, resyncing from genesis")
	} else {
		checkpoint, err := s.tokenSyncDg.GetCheckpoint(ctx, s.config.Network, s.config.Contract)
		switch {
		case err == nil:
			if checkpoint.BlockNumber != first {
				from = checkpoint.BlockNumber + 1
			}
		case errors.Is(err, errs.NotFound):
			logger.InfoContext(ctx, "No checkpoint found, syncing from the first block", slogx.Uint64("first_block", first))
		case errors.Is(err, errs.Conflict):
			logger.WarnContext(ctx, "Checkpoint was written for another network or contract, resyncing from the first block",
				slogx.Error(err),
				slogx.Uint64("first_block", first),
			)
		default:
			return 0, errors.Wrap(err, "failed to get checkpoint")
		}
	}

	if from == first {
		if err := s.clear(ctx); err != nil {
			return 0, errors.WithStack(err)
		}
	}

	logger.InfoContext(ctx, "Startup sync", slogx.Uint64("from", from))
	head, err := s.scanner.RunSync(ctx, from)
	if err != nil {
		return 0, errors.Wrap(err, "startup sync failed")
	}
	return head, nil
}

func (s *Syncer) clear(ctx context.Context) (err error) {
	tx, err := s.tokenSyncDg.BeginTokenSyncTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			logger.WarnContext(ctx, "Failed to rollback transaction", slogx.Error(err))
		}
	}()

	if err := tx.ClearTokens(ctx); err != nil {
		return errors.Wrap(err, "failed to clear tokens")
	}
	if err := tx.ClearWalletRoles(ctx); err != nil {
		return errors.Wrap(err, "failed to clear wallet roles")
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	logger.InfoContext(ctx, "Cleared synced tokens and wallet roles")
	return nil
}
