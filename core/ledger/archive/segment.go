package archive

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/samber/lo"
)

const segmentExt = ".parquet"

// LogRecord is a contract log as stored in an archive segment.
type LogRecord struct {
	BlockNumber int64  `parquet:"name=block_number, type=INT64"`
	LogIndex    int64  `parquet:"name=log_index, type=INT64"`
	TxHash      string `parquet:"name=tx_hash, type=BYTE_ARRAY, convertedtype=UTF8"`
	// Topics are comma separated hex encoded topics.
	Topics string `parquet:"name=topics, type=BYTE_ARRAY, convertedtype=UTF8"`
	Data   string `parquet:"name=data, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func NewLogRecord(log types.Log) LogRecord {
	return LogRecord{
		BlockNumber: int64(log.BlockNumber),
		LogIndex:    int64(log.Index),
		TxHash:      log.TxHash.Hex(),
		Topics: strings.Join(lo.Map(log.Topics, func(topic ethcommon.Hash, _ int) string {
			return topic.Hex()
		}), ","),
		Data: ethcommon.Bytes2Hex(log.Data),
	}
}

func (r LogRecord) Log(contract ethcommon.Address) types.Log {
	var topics []ethcommon.Hash
	if r.Topics != "" {
		topics = lo.Map(strings.Split(r.Topics, ","), func(topic string, _ int) ethcommon.Hash {
			return ethcommon.HexToHash(topic)
		})
	}
	return types.Log{
		Address:     contract,
		Topics:      topics,
		Data:        ethcommon.FromHex(r.Data),
		BlockNumber: uint64(r.BlockNumber),
		TxHash:      ethcommon.HexToHash(r.TxHash),
		Index:       uint(r.LogIndex),
	}
}

// Segment is an archive object holding all contract logs of the block range [From, To].
type Segment struct {
	Key  string
	From uint64
	To   uint64
}

func (s Segment) Overlaps(from, to uint64) bool {
	return s.From <= to && s.To >= from
}

// ContractPrefix returns the key prefix of the segments of a contract.
func ContractPrefix(prefix, contract string) string {
	return path.Join(prefix, common.NormalizeAddress(contract)) + "/"
}

// SegmentKey returns the object key of the segment of [from, to].
func SegmentKey(prefix, contract string, from, to uint64) string {
	return ContractPrefix(prefix, contract) + fmt.Sprintf("%012d-%012d%s", from, to, segmentExt)
}

// ParseSegment parses a segment object key.
func ParseSegment(key string) (Segment, error) {
	name, ok := strings.CutSuffix(path.Base(key), segmentExt)
	if !ok {
		return Segment{}, errors.Wrapf(errs.InvalidArgument, "not a segment key %q", key)
	}
	fromStr, toStr, ok := strings.Cut(name, "-")
	if !ok {
		return Segment{}, errors.Wrapf(errs.InvalidArgument, "not a segment key %q", key)
	}
	from, err := strconv.ParseUint(fromStr, 10, 64)
	if err != nil {
		return Segment{}, errors.Wrapf(errs.InvalidArgument, "invalid segment start in %q", key)
	}
	to, err := strconv.ParseUint(toStr, 10, 64)
	if err != nil {
		return Segment{}, errors.Wrapf(errs.InvalidArgument, "invalid segment end in %q", key)
	}
	if from > to {
		return Segment{}, errors.Wrapf(errs.InvalidArgument, "invalid segment range in %q", key)
	}
	return Segment{Key: key, From: from, To: to}, nil
}

// Span is the block range [From, To] read from a segment. Spans of a cover
// never overlap, even when the segments do.
type Span struct {
	Segment Segment
	From    uint64
	To      uint64
}

// Cover returns the spans covering the whole range [from, to] in block order.
// ok is false when the range is not entirely covered.
func Cover(segments []Segment, from, to uint64) (spans []Span, ok bool) {
	cursor := from
	for _, segment := range segments {
		if segment.To < cursor {
			continue
		}
		if segment.From > cursor {
			return nil, false
		}
		spans = append(spans, Span{
			Segment: segment,
			From:    cursor,
			To:      min(segment.To, to),
		})
		if segment.To >= to {
			return spans, true
		}
		cursor = segment.To + 1
	}
	return nil, false
}
