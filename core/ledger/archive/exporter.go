package archive

import (
	"context"
	"log/slog"

	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/parquetutils"
	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/samber/lo"
)

// LogSource returns raw contract logs. *evm.Reader implements it.
type LogSource interface {
	GetPastLogs(ctx context.Context, names []ledger.EventName, fromBlock, toBlock uint64) ([]types.Log, error)
}

// Exporter writes archive segments from a log source.
type Exporter struct {
	source   LogSource
	store    ObjectStore
	prefix   string
	contract ethcommon.Address
}

func NewExporter(source LogSource, store ObjectStore, prefix string, contract ethcommon.Address) *Exporter {
	return &Exporter{
		source:   source,
		store:    store,
		prefix:   prefix,
		contract: contract,
	}
}

// Export archives all contract logs of [fromBlock, toBlock] as a single segment and returns its key.
func (e *Exporter) Export(ctx context.Context, fromBlock, toBlock uint64) (Segment, int, error) {
	if fromBlock > toBlock {
		return Segment{}, 0, errors.Wrapf(errs.InvalidArgument, "from block %d is after to block %d", fromBlock, toBlock)
	}

	logs, err := e.source.GetPastLogs(ctx, ledger.AllEventNames, fromBlock, toBlock)
	if err != nil {
		return Segment{}, 0, errors.Wrap(err, "can't get logs to archive")
	}
	records := lo.Map(logs, func(log types.Log, _ int) LogRecord {
		return NewLogRecord(log)
	})

	data, err := parquetutils.WriteAll(records)
	if err != nil {
		return Segment{}, 0, errors.Wrap(err, "can't encode archive segment")
	}

	segment := Segment{
		Key:  SegmentKey(e.prefix, e.contract.Hex(), fromBlock, toBlock),
		From: fromBlock,
		To:   toBlock,
	}
	if err := e.store.Upload(ctx, segment.Key, data); err != nil {
		return Segment{}, 0, errors.WithStack(err)
	}

	logger.InfoContext(ctx, "Exported archive segment",
		slog.String("key", segment.Key),
		slog.Int("logs", len(records)),
	)
	return segment, len(records), nil
}
