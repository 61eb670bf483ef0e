package tokensync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/carbon-ledger/token-sync/modules/tokensync/datagateway"
	"github.com/carbon-ledger/token-sync/modules/tokensync/internal/entity"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/cockroachdb/errors"
)

// eventGate is the part of the scheduler the listener coordinates with.
type eventGate interface {
	// TryBeginEvent marks a live event in flight. Returns false while a catch-up scan is running.
	TryBeginEvent() bool
	EndEvent()
	Reschedule(delay time.Duration)
	OnSubscriptionError(ctx context.Context, name ledger.EventName, err error)
}

// Listener keeps one live subscription per event name and applies the events
// it receives, unless a catch-up scan is running.
type Listener struct {
	network     common.Network
	contract    string
	subscriber  ledger.Subscriber
	tokenSyncDg datagateway.TokenSyncDataGateway
	handler     *EventHandler
	roles       RoleChangeHandler
	names       []ledger.EventName
	gate        eventGate

	mu            sync.Mutex
	subscriptions []ledger.Subscription

	// checkpointMu serializes checkpoint advances from concurrent handlers.
	checkpointMu sync.Mutex
}

func NewListener(network common.Network, contract string, subscriber ledger.Subscriber, tokenSyncDg datagateway.TokenSyncDataGateway, handler *EventHandler, roles RoleChangeHandler) *Listener {
	return &Listener{
		network:     network,
		contract:    contract,
		subscriber:  subscriber,
		tokenSyncDg: tokenSyncDg,
		handler:     handler,
		roles:       roles,
		names:       ledger.AllEventNames,
	}
}

func (l *Listener) bind(gate eventGate) {
	l.gate = gate
}

// Attach subscribes to every event of interest. Subscriptions already created
// are kept on failure and released by the next Detach.
func (l *Listener) Attach(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.subscriptions) > 0 {
		return nil
	}

	ctx = logger.WithContext(ctx, slog.String("component", "listener"))
	for _, name := range l.names {
		ctx := logger.WithContext(ctx, slogx.Stringer("name", name))
		sub, err := l.subscriber.Subscribe(ctx, name, ledger.SubscriptionHandlers{
			OnData:    l.onData,
			OnChanged: l.onChanged,
			OnError: func(ctx context.Context, err error) {
				l.gate.OnSubscriptionError(ctx, name, err)
			},
			OnConnected: func(ctx context.Context) {
				logger.DebugContext(ctx, "Subscription connected")
			},
		})
		if err != nil {
			return errors.Wrapf(err, "failed to subscribe to %s events", name)
		}
		l.subscriptions = append(l.subscriptions, sub)
	}
	logger.InfoContext(ctx, "Attached event handlers", slogx.Int("subscriptions", len(l.subscriptions)))
	return nil
}

// Detach releases all subscriptions.
func (l *Listener) Detach() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, sub := range l.subscriptions {
		sub.Unsubscribe()
	}
	l.subscriptions = nil
}

// Attached reports whether subscriptions are active.
func (l *Listener) Attached() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subscriptions) > 0
}

func (l *Listener) onData(ctx context.Context, event ledger.Event) {
	ctx = logger.WithContext(ctx,
		slogx.Stringer("name", event.Name),
		slogx.Uint64("block", event.BlockNumber),
		slogx.String("tx_hash", event.TxHash),
	)

	// the running scan will pick the event up
	if !l.gate.TryBeginEvent() {
		metricLiveEvents.WithLabelValues(event.Name.String(), "dropped").Inc()
		logger.InfoContext(ctx, "Catch-up scan is running, skipping live event")
		return
	}
	defer l.gate.EndEvent()

	if err := l.apply(ctx, event); err != nil {
		metricLiveEvents.WithLabelValues(event.Name.String(), "failed").Inc()
		metricApplyFailures.WithLabelValues("live").Inc()
		logger.ErrorContext(ctx, "Failed to apply live event", err, slogx.String("event", "apply_failed"))
	} else {
		metricLiveEvents.WithLabelValues(event.Name.String(), "applied").Inc()
		// without the checkpoint the event would be applied again by the next startup sync
		if err := l.advanceCheckpoint(ctx, event.BlockNumber); err != nil {
			logger.ErrorContext(ctx, "Failed to save checkpoint", err)
		}
	}
	l.gate.Reschedule(0)
}

func (l *Listener) apply(ctx context.Context, event ledger.Event) error {
	switch {
	case event.Name == ledger.EventTokenCreated:
		return errors.WithStack(l.handler.HandleTokenCreated(ctx, event))
	case event.Name == ledger.EventTransferSingle:
		_, err := l.handler.HandleTransfer(ctx, event)
		return errors.WithStack(err)
	case event.Name.IsRoleEvent():
		if l.roles == nil {
			return nil
		}
		return errors.WithStack(l.roles.OnRoleChangeCandidate(ctx, event.Account))
	}
	return errors.Wrapf(errs.Unsupported, "unsupported event %s", event.Name)
}

// advanceCheckpoint saves the block as checkpoint unless a later block is already saved.
func (l *Listener) advanceCheckpoint(ctx context.Context, blockNumber uint64) error {
	l.checkpointMu.Lock()
	defer l.checkpointMu.Unlock()

	checkpoint, err := l.tokenSyncDg.GetCheckpoint(ctx, l.network, l.contract)
	switch {
	case err == nil:
		if checkpoint.BlockNumber >= blockNumber {
			return nil
		}
	case errors.Is(err, errs.NotFound), errors.Is(err, errs.Conflict):
	default:
		return errors.Wrap(err, "failed to get checkpoint")
	}

	if err := l.tokenSyncDg.SaveCheckpoint(ctx, entity.Checkpoint{
		Network:     l.network,
		Contract:    l.contract,
		BlockNumber: blockNumber,
	}); err != nil {
		return errors.WithStack(err)
	}
	metricCheckpointBlock.Set(float64(blockNumber))
	return nil
}

// onChanged receives live events removed by a chain reorganization. They are
// ignored, the next catch-up scan reads the canonical chain.
func (l *Listener) onChanged(ctx context.Context, event ledger.Event) {
	metricLiveEvents.WithLabelValues(event.Name.String(), "changed").Inc()
	logger.WarnContext(ctx, "Live event removed by a chain reorganization, ignoring",
		slogx.String("event", "event_changed"),
		slogx.Stringer("name", event.Name),
		slogx.Uint64("block", event.BlockNumber),
		slogx.String("tx_hash", event.TxHash),
	)
}
