package tokensync

import (
	"context"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/core/indexer"
	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/carbon-ledger/token-sync/internal/config"
	"github.com/carbon-ledger/token-sync/modules/tokensync/datagateway"
	"github.com/carbon-ledger/token-sync/modules/tokensync/internal/entity"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/cockroachdb/errors"
)

var _ indexer.Processor = (*Processor)(nil)

// Processor wires the sync engine: startup sync, catch-up scans and live
// subscriptions over a single local ledger.
type Processor struct {
	network     common.Network
	contract    string
	tokenSyncDg datagateway.TokenSyncDataGateway

	handler   *EventHandler
	scanner   *Scanner
	syncer    *Syncer
	scheduler *Scheduler

	cleanupFuncs []func(context.Context) error
}

// NewProcessor creates the sync engine. subscriber may be nil, catch-up scans
// are then the only source of events.
func NewProcessor(conf config.Config, reader ledger.Reader, subscriber ledger.Subscriber, tokenSyncDg datagateway.TokenSyncDataGateway, cleanupFuncs []func(context.Context) error) *Processor {
	network := conf.Ledger.Network
	contract := common.NormalizeAddress(conf.Ledger.ContractAddress)
	moduleConf := conf.Modules.TokenSync

	reconciler := NewReconciler(tokenSyncDg)
	pending := NewPendingBuffer(reconciler, moduleConf.MaxPendingTokens)
	handler := NewEventHandler(tokenSyncDg, reconciler, pending)
	roles := NewWalletRoleSyncer(reader, tokenSyncDg)
	scanner := NewScanner(ScannerConfig{
		Network:             network,
		Contract:            contract,
		EventsBlockInterval: conf.Ledger.EventsBlockInterval,
		FillConcurrency:     moduleConf.FillConcurrency,
	}, reader, tokenSyncDg, handler, roles)
	syncer := NewSyncer(SyncerConfig{
		Network:         network,
		Contract:        contract,
		DeploymentBlock: conf.Ledger.FirstBlock,
	}, tokenSyncDg, scanner)

	var listener *Listener
	if subscriber != nil {
		listener = NewListener(network, contract, subscriber, tokenSyncDg, handler, roles)
	}
	scheduler := NewScheduler(NewSchedulerConfig(network, moduleConf.Scheduler), reader, syncer, scanner, handler, listener)

	return &Processor{
		network:      network,
		contract:     contract,
		tokenSyncDg:  tokenSyncDg,
		handler:      handler,
		scanner:      scanner,
		syncer:       syncer,
		scheduler:    scheduler,
		cleanupFuncs: cleanupFuncs,
	}
}

func (p *Processor) Name() string {
	return common.ModuleTokenSync.String()
}

// Startup runs the startup sync. A failed startup sync is not fatal: the
// scheduler resumes from the checkpoint on its next run.
func (p *Processor) Startup(ctx context.Context) error {
	if _, err := p.syncer.StartupSync(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.WithStack(err)
		}
		logger.ErrorContext(ctx, "Startup sync failed, the scheduler will retry", err)
	}
	return nil
}

func (p *Processor) Start(ctx context.Context) error {
	p.scheduler.Start(ctx)
	return nil
}

func (p *Processor) Shutdown(ctx context.Context) error {
	p.scheduler.Stop()

	var errs []error
	for _, cleanup := range p.cleanupFuncs {
		if err := cleanup(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.WithStack(errors.Join(errs...))
}

// StartupSync runs a single startup sync without starting the scheduler.
func (p *Processor) StartupSync(ctx context.Context) (uint64, error) {
	head, err := p.syncer.StartupSync(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if drained := p.handler.DrainAll(ctx); drained > 0 {
		logger.InfoContext(ctx, "Applied pending events after sync", slogx.Int("events", drained))
	}
	return head, nil
}

// OnProgress sets a callback invoked after every completed scan window.
func (p *Processor) OnProgress(fn ProgressFunc) {
	p.scanner.OnProgress(fn)
}

func (p *Processor) Status() entity.SyncStatus {
	return p.scheduler.Status()
}

func (p *Processor) Network() common.Network {
	return p.network
}

func (p *Processor) Contract() string {
	return p.contract
}
