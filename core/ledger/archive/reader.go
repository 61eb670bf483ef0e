// Package archive reads historical contract logs from parquet segments stored in
// an S3 bucket, falling back to the ledger node for ranges the archive does not cover.
package archive

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/carbon-ledger/token-sync/core/ledger/evm"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/carbon-ledger/token-sync/pkg/parquetutils"
	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/samber/lo"
)

var _ ledger.Reader = (*Reader)(nil)

// Reader serves GetPastEvents from the archive and delegates everything else to the node reader.
type Reader struct {
	ledger.Reader

	store    ObjectStore
	prefix   string
	contract ethcommon.Address

	mu       sync.Mutex
	segments []Segment
	listed   bool
}

func NewReader(node ledger.Reader, store ObjectStore, prefix string, contract ethcommon.Address) *Reader {
	return &Reader{
		Reader:   node,
		store:    store,
		prefix:   prefix,
		contract: contract,
	}
}

func (r *Reader) Name() string {
	return "archive"
}

func (r *Reader) GetPastEvents(ctx context.Context, names []ledger.EventName, fromBlock, toBlock uint64) ([]ledger.Event, error) {
	ctx = logger.WithContext(ctx, slogx.String("datasource", r.Name()))

	segments, err := r.listSegments(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Failed to list archive segments, use ledger node instead", slogx.Error(err))
		return r.Reader.GetPastEvents(ctx, names, fromBlock, toBlock)
	}

	spans, ok := Cover(segments, fromBlock, toBlock)
	if !ok {
		logger.DebugContext(ctx, "Range is not archived, use ledger node instead",
			slog.Uint64("from", fromBlock),
			slog.Uint64("to", toBlock),
		)
		return r.Reader.GetPastEvents(ctx, names, fromBlock, toBlock)
	}

	topics, err := evm.EventTopics(names)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var logs []types.Log
	for _, span := range spans {
		key := span.Segment.Key
		data, err := r.store.Download(ctx, key)
		if err != nil {
			return nil, errors.Wrapf(err, "can't download archive segment %s", key)
		}
		records, err := parquetutils.ReadAll[LogRecord](parquetutils.NewBufferFile(data))
		if err != nil {
			return nil, errors.Wrapf(err, "can't read archive segment %s", key)
		}
		for _, record := range records {
			log := record.Log(r.contract)
			// blocks before span.From were read from the previous segment
			if log.BlockNumber < span.From || log.BlockNumber > span.To {
				continue
			}
			if len(log.Topics) == 0 || !slices.Contains(topics, log.Topics[0]) {
				continue
			}
			logs = append(logs, log)
		}
	}

	events, err := evm.DecodeLogs(ctx, logs)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return events, nil
}

// listSegments lists the segments once. Archived ranges are immutable.
func (r *Reader) listSegments(ctx context.Context) ([]Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listed {
		return r.segments, nil
	}

	keys, err := r.store.List(ctx, ContractPrefix(r.prefix, r.contract.Hex()))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	segments := lo.FilterMap(keys, func(key string, _ int) (Segment, bool) {
		segment, err := ParseSegment(key)
		return segment, err == nil
	})
	slices.SortFunc(segments, func(a, b Segment) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(b.To, a.To)
	})

	r.segments = segments
	r.listed = true
	return segments, nil
}
