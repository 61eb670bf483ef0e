package tokensync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/carbon-ledger/token-sync/modules/tokensync/config"
	"github.com/carbon-ledger/token-sync/modules/tokensync/internal/entity"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
)

type SchedulerConfig struct {
	// RunInterval is the delay of the next catch-up scan after a scan or a live event.
	RunInterval time.Duration
	// RetryInterval is the delay of the next attempt when a scan could not start.
	RetryInterval time.Duration
	// MinBlockDiff is the number of new blocks required to start a scan.
	MinBlockDiff int64
}

// NewSchedulerConfig returns the scheduler timings of the network with the configured overrides.
// Local networks scan eagerly: a block is mined per transaction.
func NewSchedulerConfig(network common.Network, overrides config.SchedulerConfig) SchedulerConfig {
	conf := SchedulerConfig{
		RunInterval:   DefaultRunInterval,
		RetryInterval: DefaultRetryInterval,
		MinBlockDiff:  DefaultMinBlockDiff,
	}
	if network.IsLocal() {
		conf.MinBlockDiff = 0
		conf.RunInterval = conf.RetryInterval
	}
	conf.RunInterval = utils.Default(overrides.RunInterval, conf.RunInterval)
	conf.RetryInterval = utils.Default(overrides.RetryInterval, conf.RetryInterval)
	if overrides.MinBlockDiff != nil {
		conf.MinBlockDiff = *overrides.MinBlockDiff
	}
	return conf
}

type schedulerState string

const (
	StateIdle           schedulerState = "idle"
	StateScanRunning    schedulerState = "scan_running"
	StateEventsInFlight schedulerState = "events_in_flight"
)

// Scheduler runs catch-up scans when live events stop arriving. A scan and
// live event handling never run at the same time: live subscriptions are
// detached while scanning and events received meanwhile are skipped, the scan
// reads them from the ledger instead.
type Scheduler struct {
	config   SchedulerConfig
	reader   ledger.Reader
	syncer   *Syncer
	scanner  *Scanner
	handler  *EventHandler
	listener *Listener // nil when live subscriptions are disabled

	mu             sync.Mutex
	ctx            context.Context
	scanning       bool
	eventsInFlight int
	resubscribe    bool
	stopped        bool
	timer          *time.Timer
	nextDelay      time.Duration
	nextRunAt      time.Time
}

var _ eventGate = (*Scheduler)(nil)

func NewScheduler(config SchedulerConfig, reader ledger.Reader, syncer *Syncer, scanner *Scanner, handler *EventHandler, listener *Listener) *Scheduler {
	s := &Scheduler{
		config:   config,
		reader:   reader,
		syncer:   syncer,
		scanner:  scanner,
		handler:  handler,
		listener: listener,
		ctx:      context.Background(),
	}
	if listener != nil {
		listener.bind(s)
	}
	s.setStateMetric(StateIdle)
	return s
}

// Start attaches the live subscriptions and schedules the first scan. Timer
// triggered scans run with ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = logger.WithContext(ctx, slog.String("component", "scheduler"))
	s.stopped = false
	s.mu.Unlock()

	s.attach(ctx)
	s.Reschedule(0)
}

// Stop cancels the scheduled scan and detaches the live subscriptions. A scan
// already running completes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.Detach()
	}
}

// Reschedule replaces the scheduled scan with one after delay, or after RunInterval if delay is zero.
func (s *Scheduler) Reschedule(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.nextDelay = utils.Default(delay, s.config.RunInterval)
	s.nextRunAt = time.Now().Add(s.nextDelay)
	s.timer = time.AfterFunc(s.nextDelay, func() {
		s.RunManualSync(s.baseContext())
	})
}

// RunManualSync starts a catch-up scan from the checkpoint to the current head
// unless the scheduler is busy or not enough blocks were produced since the
// checkpoint. In both cases the scan is retried after RetryInterval.
func (s *Scheduler) RunManualSync(ctx context.Context) {
	if s.isStopped() {
		return
	}
	if s.busy() {
		logger.DebugContext(ctx, "Scheduler is busy, retrying later")
		s.Reschedule(s.config.RetryInterval)
		return
	}

	lastSync, err := s.syncer.LastSyncedBlock(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to get last synced block", err)
		s.Reschedule(s.config.RetryInterval)
		return
	}
	from := lastSync + 1
	head, err := s.reader.GetCurrentHeight(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to get current height", err)
		s.Reschedule(s.config.RetryInterval)
		return
	}

	blockDiff := int64(head) - int64(from)
	if blockDiff < s.config.MinBlockDiff {
		logger.DebugContext(ctx, "Not enough new blocks to scan, retrying later",
			slogx.Uint64("from", from),
			slogx.Uint64("head", head),
			slogx.Int64("block_diff", blockDiff),
		)
		if s.takeResubscribe() {
			s.detach()
			s.attach(ctx)
		}
		s.Reschedule(s.config.RetryInterval)
		return
	}

	// a live event may have started while reading the head
	if !s.tryBeginScan() {
		s.Reschedule(s.config.RetryInterval)
		return
	}

	logger.InfoContext(ctx, "Starting catch-up scan", slogx.Uint64("from", from), slogx.Uint64("head", head))
	s.detach()
	if _, err := s.scanner.RunSync(ctx, from); err != nil {
		logger.ErrorContext(ctx, "Catch-up scan failed", err)
	}
	if drained := s.handler.DrainAll(ctx); drained > 0 {
		logger.InfoContext(ctx, "Applied pending events after scan", slogx.Int("events", drained))
	}
	s.endScan()

	s.takeResubscribe()
	s.attach(ctx)
	s.Reschedule(0)
}

// TryBeginEvent registers a live event in flight. Returns false while a scan is running.
func (s *Scheduler) TryBeginEvent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanning {
		return false
	}
	s.eventsInFlight++
	s.setStateMetric(StateEventsInFlight)
	return true
}

func (s *Scheduler) EndEvent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventsInFlight > 0 {
		s.eventsInFlight--
	}
	if s.eventsInFlight == 0 {
		s.setStateMetric(StateIdle)
	}
}

// OnSubscriptionError logs the error and rebuilds the subscriptions around the
// next scan attempt.
func (s *Scheduler) OnSubscriptionError(ctx context.Context, name ledger.EventName, err error) {
	logger.ErrorContext(ctx, "Live subscription failed", err,
		slogx.String("event", "subscription_error"),
		slogx.Stringer("name", name),
	)
	s.mu.Lock()
	s.resubscribe = true
	s.mu.Unlock()
	s.Reschedule(s.config.RetryInterval)
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() entity.SyncStatus {
	s.mu.Lock()
	status := entity.SyncStatus{
		State:          string(s.stateLocked()),
		EventsInFlight: s.eventsInFlight,
		NextRunAt:      s.nextRunAt,
	}
	s.mu.Unlock()

	status.PendingEvents = s.handler.pending.Len()
	if s.listener != nil {
		status.Subscribed = s.listener.Attached()
	}
	return status
}

func (s *Scheduler) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning || s.eventsInFlight > 0
}

func (s *Scheduler) tryBeginScan() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanning || s.eventsInFlight > 0 || s.stopped {
		return false
	}
	s.scanning = true
	s.setStateMetric(StateScanRunning)
	return true
}

func (s *Scheduler) endScan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanning = false
	s.setStateMetric(StateIdle)
}

func (s *Scheduler) takeResubscribe() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	resubscribe := s.resubscribe
	s.resubscribe = false
	return resubscribe
}

func (s *Scheduler) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) attach(ctx context.Context) {
	if s.listener == nil || s.isStopped() {
		return
	}
	if err := s.listener.Attach(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to attach live subscriptions, retrying on the next scan attempt", err)
		s.mu.Lock()
		s.resubscribe = true
		s.mu.Unlock()
	}
}

func (s *Scheduler) detach() {
	if s.listener != nil {
		s.listener.Detach()
	}
}

func (s *Scheduler) stateLocked() schedulerState {
	switch {
	case s.scanning:
		return StateScanRunning
	case s.eventsInFlight > 0:
		return StateEventsInFlight
	default:
		return StateIdle
	}
}

func (s *Scheduler) setStateMetric(state schedulerState) {
	for _, st := range []schedulerState{StateIdle, StateScanRunning, StateEventsInFlight} {
		value := 0.0
		if st == state {
			value = 1
		}
		metricSchedulerState.WithLabelValues(string(st)).Set(value)
	}
}
