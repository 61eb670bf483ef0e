package tokensync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/carbon-ledger/token-sync/modules/tokensync/repository/memory"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGate struct {
	mu         sync.Mutex
	scanning   bool
	inFlight   int
	delays     []time.Duration
	failedSubs []ledger.EventName
}

var _ eventGate = (*fakeGate)(nil)

func (g *fakeGate) TryBeginEvent() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.scanning {
		return false
	}
	g.inFlight++
	return true
}

func (g *fakeGate) EndEvent() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight--
}

func (g *fakeGate) Reschedule(delay time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.delays = append(g.delays, delay)
}

func (g *fakeGate) OnSubscriptionError(_ context.Context, name ledger.EventName, _ error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failedSubs = append(g.failedSubs, name)
}

func newTestListener(t *testing.T, reader *fakeReader, repo *memory.Repository) (*Listener, *fakeSubscriber, *fakeGate) {
	t.Helper()
	subscriber := newFakeSubscriber()
	gate := &fakeGate{}
	listener := NewListener(testNetwork, testContract, subscriber, repo, newTestHandler(repo, 0), NewWalletRoleSyncer(reader, repo))
	listener.bind(gate)
	require.NoError(t, listener.Attach(context.Background()))
	return listener, subscriber, gate
}

// deliver sends the event to the live subscription of its name.
func deliver(t *testing.T, subscriber *fakeSubscriber, event ledger.Event) {
	t.Helper()
	sub := subscriber.active(event.Name)
	require.NotNil(t, sub, "no live subscription for %s", event.Name)
	sub.handlers.OnData(context.Background(), event)
}

func TestListenerAttach(t *testing.T) {
	listener, subscriber, _ := newTestListener(t, newFakeReader(), memory.NewRepository())
	assert.True(t, listener.Attached())
	assert.Equal(t, len(ledger.AllEventNames), subscriber.subscribed)

	// attaching twice keeps the existing subscriptions
	require.NoError(t, listener.Attach(context.Background()))
	assert.Equal(t, len(ledger.AllEventNames), subscriber.subscribed)

	sub := subscriber.active(ledger.EventTransferSingle)
	listener.Detach()
	assert.False(t, listener.Attached())
	assert.True(t, sub.closed())
}

func TestListenerAttachFailure(t *testing.T) {
	subscriber := newFakeSubscriber()
	subscriber.subscribeErr = errors.New("not connected")
	listener := NewListener(testNetwork, testContract, subscriber, memory.NewRepository(), nil, nil)
	listener.bind(&fakeGate{})

	assert.Error(t, listener.Attach(context.Background()))
	assert.False(t, listener.Attached())
}

func TestListenerAppliesLiveEvents(t *testing.T) {
	reader := newFakeReader()
	reader.roles[holderB] = ledger.Roles{IsIndustry: true}
	repo := memory.NewRepository()
	_, subscriber, gate := newTestListener(t, reader, repo)

	deliver(t, subscriber, tokenCreatedEvent(10, 1))
	deliver(t, subscriber, issueEvent(10, holderA, 1, 100))
	deliver(t, subscriber, transferEvent(11, holderA, holderB, 1, 10))
	deliver(t, subscriber, roleEvent(12, ledger.EventRegisteredIndustry, holderB))

	requireBalance(t, repo, holderA, 1, 90, 0, 10)
	requireBalance(t, repo, holderB, 1, 10, 0, 0)
	wallet, err := repo.GetWallet(context.Background(), holderB)
	require.NoError(t, err)
	assert.Equal(t, []string{"Industry"}, wallet.Roles)
	requireCheckpoint(t, repo, 12)

	assert.Equal(t, []time.Duration{0, 0, 0, 0}, gate.delays, "every live event postpones the catch-up scan")
	assert.Zero(t, gate.inFlight)
}

func TestListenerQueuesUnknownToken(t *testing.T) {
	repo := memory.NewRepository()
	_, subscriber, _ := newTestListener(t, newFakeReader(), repo)

	deliver(t, subscriber, issueEvent(20, holderA, 3, 5))
	_, err := repo.GetBalance(context.Background(), holderA, 3)
	assert.ErrorIs(t, err, errs.NotFound)

	deliver(t, subscriber, tokenCreatedEvent(19, 3))
	requireBalance(t, repo, holderA, 3, 5, 0, 0)
}

func TestListenerSkipsEventsDuringScan(t *testing.T) {
	repo := memory.NewRepository()
	_, subscriber, gate := newTestListener(t, newFakeReader(), repo)
	gate.scanning = true

	deliver(t, subscriber, tokenCreatedEvent(10, 1))

	exists, err := repo.TokenExists(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = repo.GetCheckpoint(context.Background(), testNetwork, testContract)
	assert.ErrorIs(t, err, errs.NotFound)
	assert.Empty(t, gate.delays)
}

func TestListenerCheckpointIsMonotonic(t *testing.T) {
	repo := memory.NewRepository()
	_, subscriber, _ := newTestListener(t, newFakeReader(), repo)

	deliver(t, subscriber, tokenCreatedEvent(30, 1))
	deliver(t, subscriber, tokenCreatedEvent(25, 2))
	requireCheckpoint(t, repo, 30)

	deliver(t, subscriber, tokenCreatedEvent(31, 3))
	requireCheckpoint(t, repo, 31)
}

func TestListenerFailedEventKeepsCheckpoint(t *testing.T) {
	repo := memory.NewRepository()
	_, subscriber, gate := newTestListener(t, newFakeReader(), repo)

	deliver(t, subscriber, tokenCreatedEvent(10, 1))
	deliver(t, subscriber, retireEvent(11, holderA, 1, 5))

	requireCheckpoint(t, repo, 10)
	assert.Len(t, gate.delays, 2)
}

func TestListenerSubscriptionError(t *testing.T) {
	_, subscriber, gate := newTestListener(t, newFakeReader(), memory.NewRepository())

	sub := subscriber.active(ledger.EventRoleGranted)
	require.NotNil(t, sub)
	sub.handlers.OnError(context.Background(), errors.New("websocket closed"))
	sub.handlers.OnChanged(context.Background(), roleEvent(1, ledger.EventRoleGranted, holderA))

	assert.Equal(t, []ledger.EventName{ledger.EventRoleGranted}, gate.failedSubs)
}
