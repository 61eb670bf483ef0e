package tokensync

import (
	"context"
	"slices"
	"sync"

	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/cockroachdb/errors"
)

// PendingBuffer holds live transfer events of tokens that are not known yet,
// until the TokenCreated event (or a catch-up scan) brings the token in.
type PendingBuffer struct {
	applier   Applier
	maxTokens int

	mu     sync.Mutex
	events map[uint64][]ledger.Event
	order  []uint64
}

// NewPendingBuffer creates a buffer applying drained events with applier.
// maxTokens bounds the number of distinct token ids, zero means unbounded.
func NewPendingBuffer(applier Applier, maxTokens int) *PendingBuffer {
	return &PendingBuffer{
		applier:   applier,
		maxTokens: maxTokens,
		events:    make(map[uint64][]ledger.Event),
	}
}

// Enqueue appends the event to the queue of the token. Returns errs.ResourceExhausted
// if the token is not queued yet and the buffer is full.
func (b *PendingBuffer) Enqueue(tokenId uint64, event ledger.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	queue, ok := b.events[tokenId]
	if !ok {
		if b.maxTokens > 0 && len(b.order) >= b.maxTokens {
			return errors.Wrapf(errs.ResourceExhausted, "pending buffer is full (%d tokens), dropping event of token %d", b.maxTokens, tokenId)
		}
		b.order = append(b.order, tokenId)
	}
	b.events[tokenId] = append(queue, event)
	metricPendingEvents.Inc()
	return nil
}

// take removes and returns the queue of the token.
func (b *PendingBuffer) take(tokenId uint64) []ledger.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	queue, ok := b.events[tokenId]
	if !ok {
		return nil
	}
	delete(b.events, tokenId)
	b.order = slices.DeleteFunc(b.order, func(id uint64) bool { return id == tokenId })
	metricPendingEvents.Sub(float64(len(queue)))
	return queue
}

// DrainAndApply applies the queued events of the token in arrival order and
// discards the queue. Failures are logged and do not stop the drain. Returns
// the number of successfully applied events.
func (b *PendingBuffer) DrainAndApply(ctx context.Context, tokenId uint64) int {
	queue := b.take(tokenId)
	if len(queue) == 0 {
		return 0
	}

	ctx = logger.WithContext(ctx, slogx.Uint64("token_id", tokenId))
	logger.InfoContext(ctx, "Applying pending events of token", slogx.Int("events", len(queue)))

	applied := 0
	for _, event := range queue {
		if _, err := b.applier.Apply(ctx, event); err != nil {
			metricApplyFailures.WithLabelValues("pending").Inc()
			logger.ErrorContext(ctx, "Failed to apply pending event", err,
				slogx.String("event", "apply_failed"),
				slogx.Uint64("block", event.BlockNumber),
				slogx.String("tx_hash", event.TxHash),
			)
			continue
		}
		applied++
	}
	return applied
}

// KnownFunc reports whether a token exists in the local ledger.
type KnownFunc func(ctx context.Context, tokenId uint64) (bool, error)

// DrainKnown drains, in first arrival order, every queued token that known
// reports as existing. Queues of tokens that are still unknown are kept until
// their token comes in.
func (b *PendingBuffer) DrainKnown(ctx context.Context, known KnownFunc) int {
	b.mu.Lock()
	tokens := slices.Clone(b.order)
	b.mu.Unlock()

	applied := 0
	for _, tokenId := range tokens {
		exists, err := known(ctx, tokenId)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to check pending token, keeping its events queued", err, slogx.Uint64("token_id", tokenId))
			continue
		}
		if !exists {
			continue
		}
		applied += b.DrainAndApply(ctx, tokenId)
	}
	return applied
}

// Len returns the number of queued events.
func (b *PendingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, queue := range b.events {
		n += len(queue)
	}
	return n
}

// Tokens returns the number of queued token ids.
func (b *PendingBuffer) Tokens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}
