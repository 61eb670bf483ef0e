package indexer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/cockroachdb/errors"
)

// shutdownTimeout bounds how long a shutdown waits for Run to return.
const shutdownTimeout = 180 * time.Second

type IndexerWorker interface {
	Run(ctx context.Context) error
	ShutdownWithContext(ctx context.Context) error
}

// Processor is a long running sync engine driven by an Indexer.
type Processor interface {
	Name() string

	// Startup brings the local state up to date before Start is called.
	Startup(ctx context.Context) error

	// Start begins background work (timers, subscriptions) and returns immediately.
	Start(ctx context.Context) error

	// Shutdown stops all background work started by Start.
	Shutdown(ctx context.Context) error
}

// Indexer runs a Processor until it is shut down or its context is canceled.
type Indexer struct {
	Processor Processor

	quitOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

var _ IndexerWorker = (*Indexer)(nil)

// New create new generic indexer
func New(processor Processor) *Indexer {
	return &Indexer{
		Processor: processor,

		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (i *Indexer) Shutdown() error {
	return i.ShutdownWithContext(context.Background())
}

func (i *Indexer) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return i.ShutdownWithContext(ctx)
}

func (i *Indexer) ShutdownWithContext(ctx context.Context) (err error) {
	i.quitOnce.Do(func() {
		close(i.quit)
		select {
		case <-i.done:
		case <-time.After(shutdownTimeout):
			err = errors.Wrap(errs.Timeout, "indexer shutdown timeout")
		case <-ctx.Done():
			err = errors.Wrap(ctx.Err(), "indexer shutdown context canceled")
		}
	})
	return
}

func (i *Indexer) Run(ctx context.Context) (err error) {
	defer close(i.done)

	ctx = logger.WithContext(ctx,
		slog.String("package", "indexer"),
		slog.String("processor", i.Processor.Name()),
	)

	startAt := time.Now()
	if err := i.Processor.Startup(ctx); err != nil {
		return errors.Wrap(err, "processor startup failed")
	}
	logger.InfoContext(ctx, "Processor startup completed",
		slogx.String("event", "startup_completed"),
		slogx.Duration("duration", time.Since(startAt)),
	)

	if err := i.Processor.Start(ctx); err != nil {
		return errors.Wrap(err, "processor start failed")
	}

	select {
	case <-i.quit:
		logger.InfoContext(ctx, "Got quit signal, stopping indexer")
	case <-ctx.Done():
		logger.InfoContext(ctx, "Context done, stopping indexer")
	}

	// ctx may already be canceled here, shutdown must still run
	shutdownCtx := context.WithoutCancel(ctx)
	if err := i.Processor.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(ctx, "Failed to shutdown processor", err)
		return errors.Wrap(err, "processor shutdown failed")
	}
	return nil
}
