package evm

import (
	"context"
	"log/slog"
	"sync"

	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const subscriptionBufferSize = 64

// Subscribe delivers live events of the given name until the subscription is unsubscribed,
// the context is done or the node connection fails. Handlers are called sequentially.
func (r *Reader) Subscribe(ctx context.Context, name ledger.EventName, handlers ledger.SubscriptionHandlers) (ledger.Subscription, error) {
	if r.subscriber == nil {
		return nil, errors.Wrap(errs.Unsupported, "live subscription requires a websocket endpoint")
	}
	topics, err := EventTopics([]ledger.EventName{name})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	query := ethereum.FilterQuery{
		Addresses: []ethcommon.Address{r.contract},
		Topics:    [][]ethcommon.Hash{topics},
	}

	logs := make(chan types.Log, subscriptionBufferSize)
	sub, err := r.subscriber.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to subscribe %s", name)
	}

	s := &subscription{
		sub:  sub,
		err:  make(chan error, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	ctx = logger.WithContext(ctx, slog.String("event", name.String()))
	if handlers.OnConnected != nil {
		handlers.OnConnected(ctx)
	}
	go s.run(ctx, logs, handlers)
	return s, nil
}

// subscription stops delivering after Unsubscribe. Done is closed once the delivery loop exits.
type subscription struct {
	sub       ethereum.Subscription
	err       chan error
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscription) run(ctx context.Context, logs <-chan types.Log, handlers ledger.SubscriptionHandlers) {
	defer close(s.done)
	defer s.sub.Unsubscribe()
	for {
		select {
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		case err := <-s.sub.Err():
			if err == nil {
				return
			}
			if handlers.OnError != nil {
				handlers.OnError(ctx, err)
			}
			select {
			case s.err <- err:
			default:
			}
			return
		case log := <-logs:
			event, err := DecodeLog(log)
			if err != nil {
				logger.WarnContext(ctx, "Failed to decode live log", slogx.Error(err), slog.String("tx_hash", log.TxHash.Hex()))
				if handlers.OnError != nil {
					handlers.OnError(ctx, err)
				}
				continue
			}
			if event.Removed {
				if handlers.OnChanged != nil {
					handlers.OnChanged(ctx, event)
				}
				continue
			}
			if handlers.OnData != nil {
				handlers.OnData(ctx, event)
			}
		}
	}
}

func (s *subscription) Unsubscribe() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
}

func (s *subscription) Err() <-chan error {
	return s.err
}

func (s *subscription) Done() <-chan struct{} {
	return s.done
}
