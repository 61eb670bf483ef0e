package tokensync

import (
	"context"
	"log/slog"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/carbon-ledger/token-sync/modules/tokensync/datagateway"
	"github.com/carbon-ledger/token-sync/modules/tokensync/internal/entity"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/cockroachdb/errors"
	cstream "github.com/planxnx/concurrent-stream"
	"golang.org/x/sync/errgroup"
)

// ScanProgress reports a completed scan window.
type ScanProgress struct {
	From   uint64
	To     uint64
	Head   uint64
	Events int
}

type ProgressFunc func(progress ScanProgress)

type ScannerConfig struct {
	Network  common.Network
	Contract string

	// EventsBlockInterval is the size of a scan window in blocks.
	EventsBlockInterval uint64

	// FillConcurrency is the number of concurrent token detail lookups.
	FillConcurrency int

	// RoleSyncConcurrency is the number of concurrent role lookups after a window.
	RoleSyncConcurrency int
}

// Scanner replays ledger events from a block to the current head in fixed
// size windows. The checkpoint only advances after a whole window is applied.
type Scanner struct {
	config      ScannerConfig
	reader      ledger.Reader
	tokenSyncDg datagateway.TokenSyncDataGateway
	handler     *EventHandler
	roles       RoleChangeHandler

	onProgress ProgressFunc
}

func NewScanner(config ScannerConfig, reader ledger.Reader, tokenSyncDg datagateway.TokenSyncDataGateway, handler *EventHandler, roles RoleChangeHandler) *Scanner {
	config.EventsBlockInterval = utils.Default(config.EventsBlockInterval, DefaultEventsBlockInterval)
	config.FillConcurrency = utils.Default(config.FillConcurrency, DefaultFillConcurrency)
	config.RoleSyncConcurrency = utils.Default(config.RoleSyncConcurrency, DefaultRoleSyncConcurrency)
	return &Scanner{
		config:      config,
		reader:      reader,
		tokenSyncDg: tokenSyncDg,
		handler:     handler,
		roles:       roles,
	}
}

// OnProgress sets a callback invoked after every completed window.
func (s *Scanner) OnProgress(fn ProgressFunc) {
	s.onProgress = fn
}

// RunSync fills missing tokens then applies the events from fromBlock to the
// current head. It returns the head block.
func (s *Scanner) RunSync(ctx context.Context, fromBlock uint64) (uint64, error) {
	startAt := time.Now()
	ctx = logger.WithContext(ctx, slog.String("component", "scanner"))
	logger.InfoContext(ctx, "Synchronization started", slogx.Uint64("from", fromBlock))

	if err := s.FillTokens(ctx); err != nil {
		return 0, errors.Wrap(err, "failed to fill tokens")
	}

	head, err := s.reader.GetCurrentHeight(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get current height")
	}
	metricHeadBlock.Set(float64(head))

	if head < fromBlock {
		logger.InfoContext(ctx, "Already synced up to the current block", slogx.Uint64("head", head))
		return head, nil
	}

	if err := s.syncEvents(ctx, fromBlock, head); err != nil {
		return 0, errors.WithStack(err)
	}

	metricScanDuration.Observe(time.Since(startAt).Seconds())
	logger.InfoContext(ctx, "Synchronization completed",
		slogx.String("event", "sync_completed"),
		slogx.Uint64("from", fromBlock),
		slogx.Uint64("head", head),
		slogx.Duration("duration", time.Since(startAt)),
	)
	return head, nil
}

type fetchedToken struct {
	tokenId uint64
	details ledger.TokenDetails
	err     error
}

// FillTokens inserts the tokens created on the ledger that are missing locally.
// Token ids are sequential from 1, so only ids above the local count are checked.
func (s *Scanner) FillTokens(ctx context.Context) error {
	count, err := s.tokenSyncDg.CountTokens(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to count tokens")
	}
	total, err := s.reader.GetNumOfUniqueTokens(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Failed to get the number of tokens, skipping token fill", slogx.Error(err))
		total = 0
	}
	if total <= count {
		return nil
	}

	missing := make([]uint64, 0, total-count)
	for tokenId := count + 1; tokenId <= total; tokenId++ {
		exists, err := s.tokenSyncDg.TokenExists(ctx, tokenId)
		if err != nil {
			return errors.Wrapf(err, "failed to check token %d", tokenId)
		}
		if !exists {
			missing = append(missing, tokenId)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	logger.InfoContext(ctx, "Filling missing tokens", slogx.Int("tokens", len(missing)), slogx.Uint64("total", total))

	// fetch concurrently, insert in token id order
	out := make(chan fetchedToken)
	stream := cstream.NewStream(ctx, s.config.FillConcurrency, out)
	go func() {
		defer close(out)
		_ = stream.Wait()
	}()
	go func() {
		defer stream.Close()
		for _, tokenId := range missing {
			select {
			case <-ctx.Done():
				return
			default:
			}
			stream.Go(func() fetchedToken {
				details, err := s.reader.GetTokenDetails(ctx, tokenId)
				return fetchedToken{tokenId: tokenId, details: details, err: err}
			})
		}
	}()

	var fillErr error
	for fetched := range out {
		if fillErr != nil {
			continue
		}
		if fetched.err != nil {
			fillErr = errors.Wrapf(fetched.err, "failed to get details of token %d", fetched.tokenId)
			continue
		}
		token := tokenFromDetails(ctx, fetched.details)
		if err := s.tokenSyncDg.CreateToken(ctx, token); err != nil {
			fillErr = errors.Wrapf(err, "failed to create token %d", fetched.tokenId)
			continue
		}
		logger.DebugContext(ctx, "Added token", slogx.Uint64("token_id", token.TokenId))
	}
	if fillErr != nil {
		return fillErr
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "context done")
	}
	return nil
}

// syncEvents applies the events of [fromBlock, head]. Windows are
// [from, min(from+interval, head)] and never overlap.
func (s *Scanner) syncEvents(ctx context.Context, fromBlock, head uint64) error {
	// role lookups are coalesced over the whole run
	seenAccounts := make(map[string]struct{})

	for from := fromBlock; from <= head; {
		to := min(from+s.config.EventsBlockInterval, head)
		ctx := logger.WithContext(ctx, slogx.Uint64("from", from), slogx.Uint64("to", to))

		events, err := s.reader.GetPastEvents(ctx, ledger.AllEventNames, from, to)
		if err != nil {
			return errors.Wrapf(err, "failed to get events from block %d to %d", from, to)
		}
		logger.DebugContext(ctx, "Syncing events", slogx.Int("events", len(events)))

		var accounts []string
		for _, event := range events {
			switch {
			case event.Name.IsRoleEvent():
				account := common.NormalizeAddress(event.Account)
				if _, ok := seenAccounts[account]; !ok {
					seenAccounts[account] = struct{}{}
					accounts = append(accounts, account)
				}
			case event.Name == ledger.EventTransferSingle:
				if _, err := s.handler.HandleTransfer(ctx, event); err != nil {
					s.logApplyFailure(ctx, event, err)
				}
			case event.Name == ledger.EventTokenCreated:
				if err := s.handler.HandleTokenCreated(ctx, event); err != nil {
					s.logApplyFailure(ctx, event, err)
				}
			}
		}

		// roles are saved before the checkpoint, or the accounts would be lost on a crash
		if err := s.syncRoles(ctx, accounts); err != nil {
			return errors.Wrap(err, "failed to sync wallet roles")
		}
		if err := s.tokenSyncDg.SaveCheckpoint(ctx, entity.Checkpoint{
			Network:     s.config.Network,
			Contract:    s.config.Contract,
			BlockNumber: to,
		}); err != nil {
			return errors.Wrapf(err, "failed to save checkpoint at block %d", to)
		}
		metricCheckpointBlock.Set(float64(to))
		metricScanWindows.Inc()

		if s.onProgress != nil {
			s.onProgress(ScanProgress{From: from, To: to, Head: head, Events: len(events)})
		}
		if to == head {
			break
		}
		from = to + 1
	}
	return nil
}

func (s *Scanner) syncRoles(ctx context.Context, accounts []string) error {
	if len(accounts) == 0 || s.roles == nil {
		return nil
	}
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(s.config.RoleSyncConcurrency)
	for _, account := range accounts {
		group.Go(func() error {
			return s.roles.OnRoleChangeCandidate(ctx, account)
		})
	}
	if err := group.Wait(); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// logApplyFailure records an event that could not be applied. The window
// continues and the checkpoint still advances past it.
func (s *Scanner) logApplyFailure(ctx context.Context, event ledger.Event, err error) {
	metricApplyFailures.WithLabelValues("scan").Inc()
	attrs := []any{
		slogx.String("event", "apply_failed"),
		slogx.Stringer("name", event.Name),
		slogx.Uint64("block", event.BlockNumber),
		slogx.String("tx_hash", event.TxHash),
	}
	if event.Transfer != nil {
		attrs = append(attrs,
			slogx.Uint64("token_id", event.Transfer.TokenId),
			slogx.String("from_address", event.Transfer.From),
			slogx.String("to_address", event.Transfer.To),
			slogx.Stringer("amount", event.Transfer.Amount),
		)
	}
	logger.ErrorContext(ctx, "Failed to apply event", err, attrs...)
}
