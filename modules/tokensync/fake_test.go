package tokensync

import (
	"context"
	"slices"
	"sync"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
)

const (
	testContract = "0x5fbdb2315678afecb367f032d93f642f64180aa3"
	issuer       = "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"
	holderA      = "0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc"
	holderB      = "0x90f79bf6eb2c4f870365e785982e1f101e93b906"
)

type blockRange struct {
	From uint64
	To   uint64
}

// fakeReader is an in-memory ledger.
type fakeReader struct {
	mu sync.Mutex

	head   uint64
	events []ledger.Event
	tokens map[uint64]ledger.TokenDetails
	roles  map[string]ledger.Roles

	pastEventsCalls []blockRange
	pastEventsErr   error
	headErr         error
	numTokensErr    error
	detailsCalls    int
	rolesCalls      []string
}

var _ ledger.Reader = (*fakeReader)(nil)

func newFakeReader() *fakeReader {
	return &fakeReader{
		tokens: make(map[uint64]ledger.TokenDetails),
		roles:  make(map[string]ledger.Roles),
	}
}

// addEvents appends events and moves the head to the last event block.
func (r *fakeReader) addEvents(events ...ledger.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range events {
		r.events = append(r.events, event)
		if event.BlockNumber > r.head {
			r.head = event.BlockNumber
		}
		if event.TokenCreated != nil {
			r.tokens[event.TokenCreated.TokenId] = *event.TokenCreated
		}
	}
	ledger.SortEvents(r.events)
}

func (r *fakeReader) setHead(head uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = head
}

func (r *fakeReader) calls() []blockRange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.pastEventsCalls)
}

func (r *fakeReader) Name() string {
	return "fake"
}

func (r *fakeReader) GetPastEvents(_ context.Context, names []ledger.EventName, fromBlock, toBlock uint64) ([]ledger.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pastEventsCalls = append(r.pastEventsCalls, blockRange{From: fromBlock, To: toBlock})
	if r.pastEventsErr != nil {
		return nil, r.pastEventsErr
	}
	var result []ledger.Event
	for _, event := range r.events {
		if event.BlockNumber >= fromBlock && event.BlockNumber <= toBlock && slices.Contains(names, event.Name) {
			result = append(result, event)
		}
	}
	return result, nil
}

func (r *fakeReader) GetCurrentHeight(context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.headErr != nil {
		return 0, r.headErr
	}
	return r.head, nil
}

func (r *fakeReader) GetNumOfUniqueTokens(context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.numTokensErr != nil {
		return 0, r.numTokensErr
	}
	return uint64(len(r.tokens)), nil
}

func (r *fakeReader) GetTokenDetails(_ context.Context, tokenId uint64) (ledger.TokenDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detailsCalls++
	details, ok := r.tokens[tokenId]
	if !ok {
		return ledger.TokenDetails{}, errors.Wrapf(errs.NotFound, "token %d", tokenId)
	}
	return details, nil
}

func (r *fakeReader) GetRoles(_ context.Context, address string) (ledger.Roles, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rolesCalls = append(r.rolesCalls, address)
	return r.roles[common.NormalizeAddress(address)], nil
}

// fakeSubscriber records subscriptions and delivers events to them on demand.
type fakeSubscriber struct {
	mu            sync.Mutex
	subscriptions map[ledger.EventName]*fakeSubscription
	subscribeErr  error
	subscribed    int
}

var _ ledger.Subscriber = (*fakeSubscriber)(nil)

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{
		subscriptions: make(map[ledger.EventName]*fakeSubscription),
	}
}

func (s *fakeSubscriber) Subscribe(_ context.Context, name ledger.EventName, handlers ledger.SubscriptionHandlers) (ledger.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	sub := &fakeSubscription{handlers: handlers, done: make(chan struct{}), err: make(chan error)}
	s.subscriptions[name] = sub
	s.subscribed++
	return sub, nil
}

// active returns the live subscription of the event name, nil if there is none.
func (s *fakeSubscriber) active(name ledger.EventName) *fakeSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[name]
	if !ok || sub.closed() {
		return nil
	}
	return sub
}

type fakeSubscription struct {
	handlers ledger.SubscriptionHandlers
	once     sync.Once
	done     chan struct{}
	err      chan error
}

func (s *fakeSubscription) Unsubscribe() {
	s.once.Do(func() { close(s.done) })
}

func (s *fakeSubscription) Err() <-chan error {
	return s.err
}

func (s *fakeSubscription) Done() <-chan struct{} {
	return s.done
}

func (s *fakeSubscription) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func transferEvent(block uint64, from, to string, tokenId uint64, amount uint64) ledger.Event {
	return ledger.Event{
		Name:        ledger.EventTransferSingle,
		BlockNumber: block,
		TxHash:      "0xtransfer",
		Transfer: &ledger.Transfer{
			Operator: issuer,
			From:     from,
			To:       to,
			TokenId:  tokenId,
			Amount:   uint128.From64(amount),
		},
	}
}

func issueEvent(block uint64, to string, tokenId uint64, amount uint64) ledger.Event {
	return transferEvent(block, ledger.BurnAddress, to, tokenId, amount)
}

func retireEvent(block uint64, from string, tokenId uint64, amount uint64) ledger.Event {
	return transferEvent(block, from, ledger.BurnAddress, tokenId, amount)
}

func tokenCreatedEvent(block uint64, tokenId uint64) ledger.Event {
	return ledger.Event{
		Name:        ledger.EventTokenCreated,
		BlockNumber: block,
		TxHash:      "0xcreated",
		TokenCreated: &ledger.TokenDetails{
			TokenId:     tokenId,
			TokenTypeId: 1,
			IssuedBy:    issuer,
			IssuedFrom:  "0",
			IssuedTo:    holderA,
			Metadata:    `{"Scope":"1","Type":"Solar"}`,
			Manifest:    `{}`,
			Description: "test token",
		},
	}
}

func roleEvent(block uint64, name ledger.EventName, account string) ledger.Event {
	return ledger.Event{
		Name:        name,
		BlockNumber: block,
		TxHash:      "0xrole",
		Account:     account,
	}
}
