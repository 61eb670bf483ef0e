package tokensync

import (
	"context"
	"sync"

	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/carbon-ledger/token-sync/modules/tokensync/datagateway"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/cockroachdb/errors"
)

// EventHandler applies TokenCreated and TransferSingle events, buffering
// transfers of tokens that are not known yet. It is shared by the catch-up
// scanner and the live listener; calls are serialized so a transfer can not be
// buffered after its token has been drained.
type EventHandler struct {
	tokenSyncDg datagateway.TokenSyncDataGateway
	applier     Applier
	pending     *PendingBuffer

	mu sync.Mutex
}

func NewEventHandler(tokenSyncDg datagateway.TokenSyncDataGateway, applier Applier, pending *PendingBuffer) *EventHandler {
	return &EventHandler{
		tokenSyncDg: tokenSyncDg,
		applier:     applier,
		pending:     pending,
	}
}

// HandleTransfer applies the transfer if its token is known, otherwise queues it.
func (h *EventHandler) HandleTransfer(ctx context.Context, event ledger.Event) (Result, error) {
	if event.Transfer == nil {
		return 0, errors.Wrapf(errs.InvalidArgument, "%s event is not a transfer", event.Name)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	tokenId := event.Transfer.TokenId
	exists, err := h.tokenSyncDg.TokenExists(ctx, tokenId)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to check token %d", tokenId)
	}
	if !exists {
		logger.InfoContext(ctx, "Transfer of an unknown token, possible out-of-order event, queueing",
			slogx.Uint64("token_id", tokenId),
			slogx.Uint64("block", event.BlockNumber),
		)
		if err := h.pending.Enqueue(tokenId, event); err != nil {
			return 0, errors.WithStack(err)
		}
		return 0, nil
	}

	result, err := h.applier.Apply(ctx, event)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return result, nil
}

// HandleTokenCreated inserts the token if it is missing, then applies the
// transfers queued for it.
func (h *EventHandler) HandleTokenCreated(ctx context.Context, event ledger.Event) error {
	if event.TokenCreated == nil {
		return errors.Wrapf(errs.InvalidArgument, "%s event has no token details", event.Name)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	token := tokenFromDetails(ctx, *event.TokenCreated)
	ctx = logger.WithContext(ctx, slogx.Uint64("token_id", token.TokenId))

	exists, err := h.tokenSyncDg.TokenExists(ctx, token.TokenId)
	if err != nil {
		return errors.Wrapf(err, "failed to check token %d", token.TokenId)
	}
	if exists {
		logger.WarnContext(ctx, "Received TokenCreated event of an existing token", slogx.Uint64("block", event.BlockNumber))
	} else {
		if err := h.tokenSyncDg.CreateToken(ctx, token); err != nil && !errors.Is(err, errs.Conflict) {
			return errors.Wrapf(err, "failed to create token %d", token.TokenId)
		}
		logger.InfoContext(ctx, "Newly issued token added", slogx.Uint64("block", event.BlockNumber))
	}

	h.pending.DrainAndApply(ctx, token.TokenId)
	return nil
}

// DrainAll applies the queued transfers of every token that became known,
// for example through a catch-up scan. Transfers of still unknown tokens stay
// queued.
func (h *EventHandler) DrainAll(ctx context.Context) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending.DrainKnown(ctx, h.tokenSyncDg.TokenExists)
}
