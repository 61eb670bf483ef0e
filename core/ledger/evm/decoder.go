package evm

import (
	"math/big"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gaze-network/uint128"
)

// EventTopics returns the topic ids of the given events.
func EventTopics(names []ledger.EventName) ([]ethcommon.Hash, error) {
	topics := make([]ethcommon.Hash, 0, len(names))
	for _, name := range names {
		event, ok := parsedABI.Events[name.String()]
		if !ok {
			return nil, errors.Wrapf(errs.Unsupported, "unknown event %q", name)
		}
		topics = append(topics, event.ID)
	}
	return topics, nil
}

// DecodeLog decodes a contract log into a ledger event.
func DecodeLog(log types.Log) (ledger.Event, error) {
	if len(log.Topics) == 0 {
		return ledger.Event{}, errors.Wrap(errs.InvalidArgument, "log has no topics")
	}
	abiEvent, err := parsedABI.EventByID(log.Topics[0])
	if err != nil {
		return ledger.Event{}, errors.Wrapf(errs.Unsupported, "unknown event topic %s", log.Topics[0].Hex())
	}

	values := make(map[string]any, len(abiEvent.Inputs))
	if err := parsedABI.UnpackIntoMap(values, abiEvent.Name, log.Data); err != nil {
		return ledger.Event{}, errors.Wrapf(err, "failed to unpack %s data", abiEvent.Name)
	}
	var indexed abi.Arguments
	for _, input := range abiEvent.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if err := abi.ParseTopicsIntoMap(values, indexed, log.Topics[1:]); err != nil {
		return ledger.Event{}, errors.Wrapf(err, "failed to parse %s topics", abiEvent.Name)
	}

	event := ledger.Event{
		Name:        ledger.EventName(abiEvent.Name),
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    log.Index,
		Removed:     log.Removed,
	}

	switch event.Name {
	case ledger.EventTransferSingle:
		transfer, err := decodeTransfer(values)
		if err != nil {
			return ledger.Event{}, errors.WithStack(err)
		}
		event.Transfer = &transfer
	case ledger.EventTokenCreated:
		details, err := decodeTokenCreated(values)
		if err != nil {
			return ledger.Event{}, errors.WithStack(err)
		}
		event.TokenCreated = &details
	default:
		account, err := addressValue(values, "account")
		if err != nil {
			return ledger.Event{}, errors.WithStack(err)
		}
		event.Account = account
	}
	return event, nil
}

func decodeTransfer(values map[string]any) (ledger.Transfer, error) {
	var (
		transfer ledger.Transfer
		err      error
	)
	if transfer.Operator, err = addressValue(values, "operator"); err != nil {
		return ledger.Transfer{}, err
	}
	if transfer.From, err = addressValue(values, "from"); err != nil {
		return ledger.Transfer{}, err
	}
	if transfer.To, err = addressValue(values, "to"); err != nil {
		return ledger.Transfer{}, err
	}
	if transfer.TokenId, err = uint64Value(values, "id"); err != nil {
		return ledger.Transfer{}, err
	}
	if transfer.Amount, err = uint128Value(values, "value"); err != nil {
		return ledger.Transfer{}, err
	}
	return transfer, nil
}

func decodeTokenCreated(values map[string]any) (ledger.TokenDetails, error) {
	var (
		details ledger.TokenDetails
		err     error
	)
	if details.TokenId, err = uint64Value(values, "tokenId"); err != nil {
		return ledger.TokenDetails{}, err
	}
	tokenTypeId, ok := values["tokenTypeId"].(uint8)
	if !ok {
		return ledger.TokenDetails{}, errors.Wrap(errs.InvalidArgument, "invalid tokenTypeId")
	}
	details.TokenTypeId = tokenTypeId
	if details.IssuedBy, err = addressValue(values, "issuedBy"); err != nil {
		return ledger.TokenDetails{}, err
	}
	if details.IssuedTo, err = addressValue(values, "issuedTo"); err != nil {
		return ledger.TokenDetails{}, err
	}
	issuedFrom, err := bigValue(values, "issuedFrom")
	if err != nil {
		return ledger.TokenDetails{}, err
	}
	details.IssuedFrom = issuedFrom.String()
	if details.FromDate, err = uint64Value(values, "fromDate"); err != nil {
		return ledger.TokenDetails{}, err
	}
	if details.ThruDate, err = uint64Value(values, "thruDate"); err != nil {
		return ledger.TokenDetails{}, err
	}
	if details.DateCreated, err = uint64Value(values, "dateCreated"); err != nil {
		return ledger.TokenDetails{}, err
	}
	details.Metadata, _ = values["metadata"].(string)
	details.Manifest, _ = values["manifest"].(string)
	details.Description, _ = values["description"].(string)
	return details, nil
}

func addressValue(values map[string]any, key string) (string, error) {
	address, ok := values[key].(ethcommon.Address)
	if !ok {
		return "", errors.Wrapf(errs.InvalidArgument, "invalid %s", key)
	}
	return common.NormalizeAddress(address.Hex()), nil
}

func bigValue(values map[string]any, key string) (*big.Int, error) {
	value, ok := values[key].(*big.Int)
	if !ok || value == nil {
		return nil, errors.Wrapf(errs.InvalidArgument, "invalid %s", key)
	}
	return value, nil
}

func uint64Value(values map[string]any, key string) (uint64, error) {
	value, err := bigValue(values, key)
	if err != nil {
		return 0, err
	}
	return bigToUint64(value)
}

func uint128Value(values map[string]any, key string) (uint128.Uint128, error) {
	value, err := bigValue(values, key)
	if err != nil {
		return uint128.Zero, err
	}
	return bigToUint128(value)
}

func bigToUint64(value *big.Int) (uint64, error) {
	if !value.IsUint64() {
		return 0, errors.Wrapf(errs.OverflowUint64, "value %s", value)
	}
	return value.Uint64(), nil
}

func bigToUint128(value *big.Int) (uint128.Uint128, error) {
	if value.Sign() < 0 || value.BitLen() > 128 {
		return uint128.Zero, errors.Wrapf(errs.OverflowUint128, "value %s", value)
	}
	u, err := uint128.FromBig(value)
	if err != nil {
		return uint128.Zero, errors.Wrapf(errs.OverflowUint128, "value %s", value)
	}
	return u, nil
}
