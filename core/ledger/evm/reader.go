package evm

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client is the subset of the node client used by the reader. *ethclient.Client implements it.
type Client interface {
	ethereum.LogFilterer
	ethereum.ContractCaller
	BlockNumber(ctx context.Context) (uint64, error)
}

var (
	_ Client            = (*ethclient.Client)(nil)
	_ ledger.Reader     = (*Reader)(nil)
	_ ledger.Subscriber = (*Reader)(nil)
)

type Config struct {
	RPCURL          string
	WSURL           string
	ContractAddress string

	// RequestTimeout bounds every node request. Zero means no timeout.
	RequestTimeout time.Duration
}

// Reader reads the emissions token contract from an EVM node.
type Reader struct {
	client     Client
	subscriber Client
	contract   ethcommon.Address
	timeout    time.Duration
	closers    []func()
}

// Dial connects to the node. The websocket endpoint is optional and only used for live subscriptions.
func Dial(ctx context.Context, config Config) (*Reader, error) {
	if !common.IsValidAddress(config.ContractAddress) {
		return nil, errors.Wrapf(errs.InvalidArgument, "invalid contract address %q", config.ContractAddress)
	}
	if config.RPCURL == "" && config.WSURL == "" {
		return nil, errors.Wrap(errs.InvalidArgument, "rpc url or ws url is required")
	}

	var closers []func()
	dial := func(url string) (*ethclient.Client, error) {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			return nil, errors.Wrapf(err, "can't connect to ledger node %s", url)
		}
		closers = append(closers, client.Close)
		return client, nil
	}

	var rpcClient, wsClient Client
	if config.RPCURL != "" {
		client, err := dial(config.RPCURL)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		rpcClient = client
	}
	if config.WSURL != "" {
		client, err := dial(config.WSURL)
		if err != nil {
			for _, closeFn := range closers {
				closeFn()
			}
			return nil, errors.WithStack(err)
		}
		wsClient = client
	}
	if rpcClient == nil {
		rpcClient = wsClient
	}

	reader := NewReader(rpcClient, wsClient, ethcommon.HexToAddress(config.ContractAddress), config.RequestTimeout)
	reader.closers = closers
	return reader, nil
}

// NewReader returns a reader using the given clients. subscriber may be nil when live subscriptions are not used.
func NewReader(client Client, subscriber Client, contract ethcommon.Address, timeout time.Duration) *Reader {
	return &Reader{
		client:     client,
		subscriber: subscriber,
		contract:   contract,
		timeout:    timeout,
	}
}

// Contract returns the address of the contract being read.
func (r *Reader) Contract() ethcommon.Address {
	return r.contract
}

func (r *Reader) Name() string {
	return "evm_node"
}

// Close closes the underlying node connections.
func (r *Reader) Close() {
	for _, closeFn := range r.closers {
		closeFn()
	}
	r.closers = nil
}

// Shutdown closes the reader when the injector providing it shuts down.
func (r *Reader) Shutdown() {
	r.Close()
}

func (r *Reader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// FilterQuery returns the log filter of the contract events in [fromBlock, toBlock].
func (r *Reader) FilterQuery(names []ledger.EventName, fromBlock, toBlock uint64) (ethereum.FilterQuery, error) {
	topics, err := EventTopics(names)
	if err != nil {
		return ethereum.FilterQuery{}, errors.WithStack(err)
	}
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []ethcommon.Address{r.contract},
		Topics:    [][]ethcommon.Hash{topics},
	}, nil
}

func (r *Reader) GetPastEvents(ctx context.Context, names []ledger.EventName, fromBlock, toBlock uint64) ([]ledger.Event, error) {
	logs, err := r.GetPastLogs(ctx, names, fromBlock, toBlock)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return DecodeLogs(ctx, logs)
}

// GetPastLogs returns the raw contract logs of the given events emitted in [fromBlock, toBlock].
func (r *Reader) GetPastLogs(ctx context.Context, names []ledger.EventName, fromBlock, toBlock uint64) ([]types.Log, error) {
	if fromBlock > toBlock {
		return nil, errors.Wrapf(errs.InvalidArgument, "from block %d is after to block %d", fromBlock, toBlock)
	}
	query, err := r.FilterQuery(names, fromBlock, toBlock)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	logs, err := r.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get logs from block %d to %d", fromBlock, toBlock)
	}
	return logs, nil
}

// DecodeLogs decodes logs into ledger events in ledger order. Logs of unknown events are skipped.
func DecodeLogs(ctx context.Context, logs []types.Log) ([]ledger.Event, error) {
	events := make([]ledger.Event, 0, len(logs))
	for _, log := range logs {
		event, err := DecodeLog(log)
		if err != nil {
			if errors.Is(err, errs.Unsupported) {
				logger.DebugContext(ctx, "Skip log of unknown event", slogx.Error(err), slog.Uint64("block", log.BlockNumber))
				continue
			}
			return nil, errors.Wrapf(err, "failed to decode log %s#%d", log.TxHash.Hex(), log.Index)
		}
		events = append(events, event)
	}
	ledger.SortEvents(events)
	return events, nil
}

func (r *Reader) GetCurrentHeight(ctx context.Context) (uint64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	height, err := r.client.BlockNumber(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get block number")
	}
	return height, nil
}

func (r *Reader) call(ctx context.Context, method string, args ...any) ([]any, error) {
	input, err := parsedABI.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %s input", method)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	output, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &r.contract, Data: input}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to call %s", method)
	}
	values, err := parsedABI.Unpack(method, output)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unpack %s output", method)
	}
	return values, nil
}

func (r *Reader) GetNumOfUniqueTokens(ctx context.Context) (uint64, error) {
	values, err := r.call(ctx, methodGetNumOfUniqueTokens)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	count, ok := values[0].(*big.Int)
	if !ok {
		return 0, errors.Wrap(errs.InternalError, "unexpected getNumOfUniqueTokens output")
	}
	return bigToUint64(count)
}

// tokenDetailsOutput mirrors the tuple returned by getTokenDetails.
type tokenDetailsOutput struct {
	TokenId      *big.Int
	TokenTypeId  uint8
	IssuedBy     ethcommon.Address
	IssuedFrom   *big.Int
	IssuedTo     ethcommon.Address
	FromDate     *big.Int
	ThruDate     *big.Int
	DateCreated  *big.Int
	Metadata     string
	Manifest     string
	Description  string
	TotalIssued  *big.Int
	TotalRetired *big.Int
}

func (r *Reader) GetTokenDetails(ctx context.Context, tokenId uint64) (ledger.TokenDetails, error) {
	values, err := r.call(ctx, methodGetTokenDetails, new(big.Int).SetUint64(tokenId))
	if err != nil {
		return ledger.TokenDetails{}, errors.WithStack(err)
	}
	out := *abi.ConvertType(values[0], new(tokenDetailsOutput)).(*tokenDetailsOutput)

	details := ledger.TokenDetails{
		TokenTypeId: out.TokenTypeId,
		IssuedBy:    common.NormalizeAddress(out.IssuedBy.Hex()),
		IssuedFrom:  out.IssuedFrom.String(),
		IssuedTo:    common.NormalizeAddress(out.IssuedTo.Hex()),
		Metadata:    out.Metadata,
		Manifest:    out.Manifest,
		Description: out.Description,
	}
	for _, field := range []struct {
		dst *uint64
		src *big.Int
	}{
		{&details.TokenId, out.TokenId},
		{&details.FromDate, out.FromDate},
		{&details.ThruDate, out.ThruDate},
		{&details.DateCreated, out.DateCreated},
	} {
		if *field.dst, err = bigToUint64(field.src); err != nil {
			return ledger.TokenDetails{}, errors.Wrapf(err, "invalid details of token %d", tokenId)
		}
	}
	if details.TotalIssued, err = bigToUint128(out.TotalIssued); err != nil {
		return ledger.TokenDetails{}, errors.Wrapf(err, "invalid issued total of token %d", tokenId)
	}
	if details.TotalRetired, err = bigToUint128(out.TotalRetired); err != nil {
		return ledger.TokenDetails{}, errors.Wrapf(err, "invalid retired total of token %d", tokenId)
	}
	if details.TokenId == 0 {
		return ledger.TokenDetails{}, errors.Wrapf(errs.NotFound, "token %d", tokenId)
	}
	return details, nil
}

func (r *Reader) GetRoles(ctx context.Context, address string) (ledger.Roles, error) {
	if !common.IsValidAddress(address) {
		return ledger.Roles{}, errors.Wrapf(errs.InvalidArgument, "invalid address %q", address)
	}
	values, err := r.call(ctx, methodGetRoles, ethcommon.HexToAddress(address))
	if err != nil {
		return ledger.Roles{}, errors.WithStack(err)
	}
	flags := make([]bool, len(values))
	for i, value := range values {
		flag, ok := value.(bool)
		if !ok {
			return ledger.Roles{}, errors.Wrap(errs.InternalError, "unexpected getRoles output")
		}
		flags[i] = flag
	}
	if len(flags) != 7 {
		return ledger.Roles{}, errors.Wrap(errs.InternalError, "unexpected getRoles output")
	}
	return ledger.Roles{
		IsAdmin:          flags[0],
		IsConsumer:       flags[1],
		IsRecDealer:      flags[2],
		IsCeoDealer:      flags[3],
		IsAeDealer:       flags[4],
		IsIndustry:       flags[5],
		IsIndustryDealer: flags[6],
	}, nil
}
