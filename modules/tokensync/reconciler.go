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

// Result is the outcome of applying a transfer event.
type Result int

const (
	ResultIssued Result = iota + 1
	ResultDuplicateIssuance
	ResultRetired
	ResultTransferred
)

func (r Result) String() string {
	switch r {
	case ResultIssued:
		return "issued"
	case ResultDuplicateIssuance:
		return "duplicate_issuance"
	case ResultRetired:
		return "retired"
	case ResultTransferred:
		return "transferred"
	}
	return "unknown"
}

// Applier applies transfer events to the local balances.
type Applier interface {
	Apply(ctx context.Context, event ledger.Event) (Result, error)
}

// Reconciler is the balance state machine. Every transfer is applied within a
// single storage transaction.
type Reconciler struct {
	tokenSyncDg datagateway.TokenSyncDataGateway
}

var _ Applier = (*Reconciler)(nil)

func NewReconciler(tokenSyncDg datagateway.TokenSyncDataGateway) *Reconciler {
	return &Reconciler{
		tokenSyncDg: tokenSyncDg,
	}
}

// Apply applies a TransferSingle event. A transfer from the burn address is an
// issuance, a transfer to the burn address is a retirement. Issuance is the only
// idempotent branch: a second issuance to an existing balance is dropped.
func (r *Reconciler) Apply(ctx context.Context, event ledger.Event) (result Result, err error) {
	if event.Transfer == nil {
		return 0, errors.Wrapf(errs.InvalidArgument, "%s event is not a transfer", event.Name)
	}
	transfer := *event.Transfer
	transfer.From = common.NormalizeAddress(transfer.From)
	transfer.To = common.NormalizeAddress(transfer.To)

	ctx = logger.WithContext(ctx,
		slogx.Uint64("token_id", transfer.TokenId),
		slogx.String("from", transfer.From),
		slogx.String("to", transfer.To),
		slogx.Stringer("amount", transfer.Amount),
		slogx.Uint64("block", event.BlockNumber),
	)

	tx, err := r.tokenSyncDg.BeginTokenSyncTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			logger.ErrorContext(ctx, "failed to rollback transaction", err)
		}
	}()

	switch {
	case transfer.IsIssuance():
		result, err = r.issue(ctx, tx, transfer)
	case transfer.IsRetirement():
		result, err = r.retire(ctx, tx, transfer)
	default:
		result, err = r.transfer(ctx, tx, transfer)
	}
	if err != nil {
		return 0, errors.WithStack(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "failed to commit transaction")
	}
	metricEventsApplied.WithLabelValues(result.String()).Inc()
	return result, nil
}

func (r *Reconciler) issue(ctx context.Context, tx datagateway.TokenSyncDataGatewayWithTx, transfer ledger.Transfer) (Result, error) {
	_, err := tx.GetBalance(ctx, transfer.To, transfer.TokenId)
	if err == nil {
		logger.WarnContext(ctx, "Balance already exists for issued token, skipping issuance",
			slogx.String("event", "duplicate_issuance"),
		)
		return ResultDuplicateIssuance, nil
	}
	if !errors.Is(err, errs.NotFound) {
		return 0, errors.Wrap(err, "failed to get balance")
	}

	if err := tx.CreateBalance(ctx, entity.Balance{
		Holder:    transfer.To,
		TokenId:   transfer.TokenId,
		Available: transfer.Amount,
	}); err != nil {
		return 0, errors.Wrap(err, "failed to create balance")
	}
	if err := tx.IncrementTotalIssued(ctx, transfer.TokenId, transfer.Amount); err != nil {
		return 0, errors.Wrap(err, "failed to increment total issued")
	}
	logger.DebugContext(ctx, "Issued tokens")
	return ResultIssued, nil
}

func (r *Reconciler) retire(ctx context.Context, tx datagateway.TokenSyncDataGatewayWithTx, transfer ledger.Transfer) (Result, error) {
	if err := tx.RetireBalance(ctx, transfer.From, transfer.TokenId, transfer.Amount); err != nil {
		return 0, errors.Wrap(err, "failed to retire balance")
	}
	if err := tx.IncrementTotalRetired(ctx, transfer.TokenId, transfer.Amount); err != nil {
		return 0, errors.Wrap(err, "failed to increment total retired")
	}
	logger.DebugContext(ctx, "Retired tokens")
	return ResultRetired, nil
}

func (r *Reconciler) transfer(ctx context.Context, tx datagateway.TokenSyncDataGatewayWithTx, transfer ledger.Transfer) (Result, error) {
	if err := tx.TransferOutBalance(ctx, transfer.From, transfer.TokenId, transfer.Amount); err != nil {
		return 0, errors.Wrap(err, "failed to transfer out balance")
	}

	err := tx.AddAvailable(ctx, transfer.To, transfer.TokenId, transfer.Amount)
	switch {
	case err == nil:
	case errors.Is(err, errs.NotFound):
		if err := tx.CreateBalance(ctx, entity.Balance{
			Holder:    transfer.To,
			TokenId:   transfer.TokenId,
			Available: transfer.Amount,
		}); err != nil {
			return 0, errors.Wrap(err, "failed to create balance")
		}
	default:
		return 0, errors.Wrap(err, "failed to credit balance")
	}
	logger.DebugContext(ctx, "Transferred tokens")
	return ResultTransferred, nil
}
