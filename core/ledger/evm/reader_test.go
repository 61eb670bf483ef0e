package evm

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testContract = ethcommon.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testOperator = ethcommon.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	testHolder   = ethcommon.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

type fakeClient struct {
	logs     []types.Log
	live     []types.Log
	query    ethereum.FilterQuery
	height   uint64
	outputs  map[string][]byte
	filterFn func(q ethereum.FilterQuery) error
}

func (c *fakeClient) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.query = q
	if c.filterFn != nil {
		if err := c.filterFn(q); err != nil {
			return nil, err
		}
	}
	return c.logs, nil
}

func (c *fakeClient) SubscribeFilterLogs(_ context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	c.query = q
	return event.NewSubscription(func(quit <-chan struct{}) error {
		for _, log := range c.live {
			select {
			case ch <- log:
			case <-quit:
				return nil
			}
		}
		<-quit
		return nil
	}), nil
}

func (c *fakeClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	method, err := parsedABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	output, ok := c.outputs[method.Name]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return output, nil
}

func (c *fakeClient) BlockNumber(context.Context) (uint64, error) {
	return c.height, nil
}

func transferLog(t *testing.T, block uint64, index uint, from, to ethcommon.Address, id, value int64) types.Log {
	t.Helper()
	abiEvent := parsedABI.Events["TransferSingle"]
	data, err := abiEvent.Inputs.NonIndexed().Pack(big.NewInt(id), big.NewInt(value))
	require.NoError(t, err)
	return types.Log{
		Address: testContract,
		Topics: []ethcommon.Hash{
			abiEvent.ID,
			ethcommon.BytesToHash(testOperator.Bytes()),
			ethcommon.BytesToHash(from.Bytes()),
			ethcommon.BytesToHash(to.Bytes()),
		},
		Data:        data,
		BlockNumber: block,
		Index:       index,
		TxHash:      ethcommon.BigToHash(big.NewInt(int64(block*100) + int64(index))),
	}
}

func roleLog(t *testing.T, name string, block uint64, account ethcommon.Address) types.Log {
	t.Helper()
	abiEvent := parsedABI.Events[name]
	topics := []ethcommon.Hash{abiEvent.ID}
	if name == "RoleGranted" || name == "RoleRevoked" {
		topics = append(topics, ethcommon.HexToHash("0x01"), ethcommon.BytesToHash(account.Bytes()), ethcommon.BytesToHash(testOperator.Bytes()))
	} else {
		topics = append(topics, ethcommon.BytesToHash(account.Bytes()))
	}
	return types.Log{Address: testContract, Topics: topics, BlockNumber: block}
}

func TestDecodeLog(t *testing.T) {
	t.Run("issuance", func(t *testing.T) {
		event, err := DecodeLog(transferLog(t, 10, 2, ethcommon.Address{}, testHolder, 1, 500))
		require.NoError(t, err)

		assert.Equal(t, ledger.EventTransferSingle, event.Name)
		assert.Equal(t, uint64(10), event.BlockNumber)
		assert.Equal(t, uint(2), event.LogIndex)
		require.NotNil(t, event.Transfer)
		assert.True(t, event.Transfer.IsIssuance())
		assert.False(t, event.Transfer.IsRetirement())
		assert.Equal(t, "0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc", event.Transfer.To)
		assert.Equal(t, uint64(1), event.Transfer.TokenId)
		assert.Equal(t, uint128.From64(500), event.Transfer.Amount)
	})
	t.Run("token created", func(t *testing.T) {
		abiEvent := parsedABI.Events["TokenCreated"]
		data, err := abiEvent.Inputs.NonIndexed().Pack(
			big.NewInt(0), big.NewInt(0), uint8(3), big.NewInt(255),
			big.NewInt(1700000000), big.NewInt(1700086400), big.NewInt(1700000100),
			`{"scope":"1"}`, "manifest", "description",
		)
		require.NoError(t, err)

		event, err := DecodeLog(types.Log{
			Topics: []ethcommon.Hash{
				abiEvent.ID,
				ethcommon.BigToHash(big.NewInt(7)),
				ethcommon.BytesToHash(testOperator.Bytes()),
				ethcommon.BytesToHash(testHolder.Bytes()),
			},
			Data:        data,
			BlockNumber: 20,
		})
		require.NoError(t, err)
		require.NotNil(t, event.TokenCreated)

		details := event.TokenCreated
		assert.Equal(t, uint64(7), details.TokenId)
		assert.Equal(t, uint8(3), details.TokenTypeId)
		assert.Equal(t, "255", details.IssuedFrom)
		assert.Equal(t, "0x70997970c51812dc3a010c7d01b50e0d17dc79c8", details.IssuedBy)
		assert.Equal(t, "0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc", details.IssuedTo)
		assert.Equal(t, uint64(1700086400), details.ThruDate)
		assert.Equal(t, `{"scope":"1"}`, details.Metadata)
		assert.Equal(t, "description", details.Description)
	})
	t.Run("role events", func(t *testing.T) {
		for _, name := range []string{"RoleGranted", "RegisteredConsumer", "UnregisteredIndustry"} {
			event, err := DecodeLog(roleLog(t, name, 5, testHolder))
			require.NoError(t, err, name)
			assert.Equal(t, ledger.EventName(name), event.Name)
			assert.True(t, event.Name.IsRoleEvent())
			assert.Equal(t, "0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc", event.Account)
		}
	})
	t.Run("unknown topic", func(t *testing.T) {
		_, err := DecodeLog(types.Log{Topics: []ethcommon.Hash{ethcommon.HexToHash("0xdead")}})
		assert.ErrorIs(t, err, errs.Unsupported)
	})
}

func TestReaderGetPastEvents(t *testing.T) {
	client := &fakeClient{
		logs: []types.Log{
			transferLog(t, 12, 0, testHolder, ethcommon.Address{}, 1, 10),
			transferLog(t, 11, 3, ethcommon.Address{}, testHolder, 1, 100),
			roleLog(t, "RegisteredDealer", 11, testHolder),
			{Topics: []ethcommon.Hash{ethcommon.HexToHash("0xbeef")}, BlockNumber: 11},
		},
	}
	reader := NewReader(client, nil, testContract, time.Second)

	events, err := reader.GetPastEvents(context.Background(), ledger.AllEventNames, 10, 20)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, ledger.EventRegisteredDealer, events[0].Name)
	assert.Equal(t, uint64(11), events[1].BlockNumber)
	assert.True(t, events[1].Transfer.IsIssuance())
	assert.True(t, events[2].Transfer.IsRetirement())

	assert.Equal(t, []ethcommon.Address{testContract}, client.query.Addresses)
	assert.Equal(t, int64(10), client.query.FromBlock.Int64())
	assert.Equal(t, int64(20), client.query.ToBlock.Int64())
	require.Len(t, client.query.Topics, 1)
	assert.Len(t, client.query.Topics[0], len(ledger.AllEventNames))

	_, err = reader.GetPastEvents(context.Background(), ledger.AllEventNames, 21, 20)
	assert.ErrorIs(t, err, errs.InvalidArgument)
}

func TestReaderContractCalls(t *testing.T) {
	numOutput, err := parsedABI.Methods[methodGetNumOfUniqueTokens].Outputs.Pack(big.NewInt(4))
	require.NoError(t, err)
	rolesOutput, err := parsedABI.Methods[methodGetRoles].Outputs.Pack(false, true, false, true, false, false, true)
	require.NoError(t, err)
	detailsOutput, err := parsedABI.Methods[methodGetTokenDetails].Outputs.Pack(tokenDetailsOutput{
		TokenId:      big.NewInt(2),
		TokenTypeId:  1,
		IssuedBy:     testOperator,
		IssuedFrom:   big.NewInt(0),
		IssuedTo:     testHolder,
		FromDate:     big.NewInt(1),
		ThruDate:     big.NewInt(2),
		DateCreated:  big.NewInt(3),
		Metadata:     "{}",
		Manifest:     "",
		Description:  "rec",
		TotalIssued:  big.NewInt(1000),
		TotalRetired: big.NewInt(10),
	})
	require.NoError(t, err)

	client := &fakeClient{
		height: 99,
		outputs: map[string][]byte{
			methodGetNumOfUniqueTokens: numOutput,
			methodGetRoles:             rolesOutput,
			methodGetTokenDetails:      detailsOutput,
		},
	}
	reader := NewReader(client, nil, testContract, 0)
	ctx := context.Background()

	height, err := reader.GetCurrentHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), height)

	count, err := reader.GetNumOfUniqueTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)

	roles, err := reader.GetRoles(ctx, testHolder.Hex())
	require.NoError(t, err)
	assert.Equal(t, []string{"Consumer", "Offset Dealer", "Industry Dealer"}, roles.Names())

	_, err = reader.GetRoles(ctx, "not-an-address")
	assert.ErrorIs(t, err, errs.InvalidArgument)

	details, err := reader.GetTokenDetails(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), details.TokenId)
	assert.Equal(t, "0", details.IssuedFrom)
	assert.Equal(t, "0x70997970c51812dc3a010c7d01b50e0d17dc79c8", details.IssuedBy)
	assert.Equal(t, uint128.From64(1000), details.TotalIssued)
	assert.Equal(t, uint128.From64(10), details.TotalRetired)
	assert.Equal(t, "rec", details.Description)
}

func TestReaderSubscribe(t *testing.T) {
	removed := transferLog(t, 31, 0, testHolder, ethcommon.Address{}, 1, 5)
	removed.Removed = true
	client := &fakeClient{
		live: []types.Log{
			transferLog(t, 30, 0, ethcommon.Address{}, testHolder, 1, 5),
			removed,
		},
	}

	t.Run("without websocket", func(t *testing.T) {
		reader := NewReader(client, nil, testContract, 0)
		_, err := reader.Subscribe(context.Background(), ledger.EventTransferSingle, ledger.SubscriptionHandlers{})
		assert.ErrorIs(t, err, errs.Unsupported)
	})

	t.Run("delivers events", func(t *testing.T) {
		reader := NewReader(client, client, testContract, 0)
		var (
			data      = make(chan ledger.Event, 2)
			changed   = make(chan ledger.Event, 2)
			connected bool
		)
		sub, err := reader.Subscribe(context.Background(), ledger.EventTransferSingle, ledger.SubscriptionHandlers{
			OnData:      func(_ context.Context, e ledger.Event) { data <- e },
			OnChanged:   func(_ context.Context, e ledger.Event) { changed <- e },
			OnConnected: func(context.Context) { connected = true },
		})
		require.NoError(t, err)
		assert.True(t, connected)

		select {
		case e := <-data:
			assert.Equal(t, uint64(30), e.BlockNumber)
		case <-time.After(5 * time.Second):
			t.Fatal("event not delivered")
		}
		select {
		case e := <-changed:
			assert.True(t, e.Removed)
		case <-time.After(5 * time.Second):
			t.Fatal("removed event not delivered")
		}

		sub.Unsubscribe()
		select {
		case <-sub.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("subscription not closed")
		}
	})
}
