// Package services provides service orchestration for the interactive
// process: it owns the ledger and wires the fire recorder, the
// reconciliation engine and the snapshot reconciler to their triggers.
package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/j-veylop/rewardgate/internal/config"
	"github.com/j-veylop/rewardgate/internal/db"
	"github.com/j-veylop/rewardgate/internal/logger"
	"github.com/j-veylop/rewardgate/internal/metrics"
	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/services/entities"
	"github.com/j-veylop/rewardgate/internal/services/identity"
	"github.com/j-veylop/rewardgate/internal/services/ledger"
	"github.com/j-veylop/rewardgate/internal/services/notify"
	"github.com/j-veylop/rewardgate/internal/services/phantom"
	"github.com/j-veylop/rewardgate/internal/services/reconcile"
	"github.com/j-veylop/rewardgate/internal/services/recorder"
	"github.com/j-veylop/rewardgate/internal/services/schedule"
	"github.com/j-veylop/rewardgate/internal/services/snapshot"
	"github.com/j-veylop/rewardgate/internal/services/validator"
	"github.com/j-veylop/rewardgate/internal/sharedstore"
	"github.com/j-veylop/rewardgate/internal/signal"
)

type (
	// LedgerUpdatedEvent is emitted when ledger entries change.
	LedgerUpdatedEvent struct {
		Entries []*models.LedgerEntry
		Source  string
	}

	// SyncedEvent is emitted after fires were drained and a reconciliation
	// pass ran.
	SyncedEvent struct {
		Fires     recorder.Result
		Reconcile reconcile.Result
	}

	// ScheduleRebuiltEvent is emitted when the watchpoint table is republished.
	ScheduleRebuiltEvent struct {
		Watchpoints      int
		MinutesPerEntity int
		Skipped          int
	}

	// RewardsUnlockedEvent is emitted the first time each day the learning
	// goal is reached.
	RewardsUnlockedEvent struct {
		Day            string
		LearnedMinutes int64
	}

	// DayRolledOverEvent is emitted after the ledger closed a day.
	DayRolledOverEvent struct {
		Closed string
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}

	// DiagnosticsEvent carries the operational counters.
	DiagnosticsEvent struct {
		Diagnostics Diagnostics
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (LedgerUpdatedEvent) isServiceEvent()   {}
func (SyncedEvent) isServiceEvent()          {}
func (ScheduleRebuiltEvent) isServiceEvent() {}
func (RewardsUnlockedEvent) isServiceEvent() {}
func (DayRolledOverEvent) isServiceEvent()   {}
func (ErrorEvent) isServiceEvent()           {}
func (DiagnosticsEvent) isServiceEvent()     {}

// Diagnostics are counters kept for operational visibility only.
type Diagnostics struct {
	SignalsFired      int64
	SignalsReceived   int64
	UnknownFires      int64
	Watchpoints       int
	UnresolvedEntries int
	DirtyEntries      int
	Validator         map[validator.Reason]uint64
	LastReconcile     *reconcile.Result
	LastFires         *recorder.Result
	DroppedEvents     uint64
}

// GoalProgress describes today's progress towards unlocking rewards.
type GoalProgress struct {
	LearnedMinutes int64
	GoalMinutes    int64
	Unlocked       bool
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock injects the time source.
func WithClock(clk clock.Clock) Option {
	return func(m *Manager) { m.clock = clk }
}

// WithRegistry registers metrics with reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) { m.registry = reg }
}

// WithNotifier replaces the desktop notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// Manager orchestrates services and event routing.
type Manager struct {
	mu          sync.RWMutex
	cfg         *config.Config
	clock       clock.Clock
	registry    *prometheus.Registry
	notifier    notify.Notifier
	database    *db.DB
	shared      *sharedstore.SQLite
	entities    *entities.Service
	ledger      *ledger.Ledger
	validator   *validator.Validator
	phantom     *phantom.Suppressor
	recorder    *recorder.Recorder
	engine      *reconcile.Engine
	snapshots   *snapshot.Reconciler
	goal        *notify.GoalNotifier
	signals     *signal.Watcher
	metrics     *metrics.Metrics
	schedule    *schedule.Schedule
	lastFires   *recorder.Result
	ledgerCh    chan models.LedgerChange
	stopChan    chan struct{}
	stopOnce    sync.Once
	closeOnce   sync.Once
	closeErr    error
	running     sync.WaitGroup
	subscribers []chan ServiceEvent
	dropped     uint64
}

// NewManager creates a new service manager. Nothing runs until Run.
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clock == nil {
		m.clock = clock.New()
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	if m.notifier == nil {
		if cfg.Notifications {
			m.notifier = notify.Desktop{}
		} else {
			m.notifier = notify.Discard{}
		}
	}

	if err := m.init(); err != nil {
		_ = m.closeResources()
		return nil, err
	}
	return m, nil
}

func (m *Manager) init() error {
	var err error

	m.database, err = db.New(m.cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	m.shared, err = sharedstore.OpenSQLite(m.cfg.SharedStorePath)
	if err != nil {
		return fmt.Errorf("failed to open shared store: %w", err)
	}

	m.entities, err = entities.New(m.cfg.EntitiesPath, entities.WithResolver(identity.NewResolver(m.database)))
	if err != nil {
		return err
	}

	m.metrics = metrics.New(m.registry)
	m.ledger = ledger.New(m.database, m.clock)
	m.validator = validator.New(validator.Config{CascadeWindow: m.cfg.CascadeWindow})
	m.phantom = phantom.New(m.shared, m.clock, m.cfg.PhantomWindow)
	m.goal = notify.NewGoalNotifier(m.notifier)

	m.engine = reconcile.New(m.ledger, m.shared, m.entities, m.clock)
	m.recorder = recorder.New(recorder.Deps{
		Fires:     m.shared,
		Cursor:    m.database,
		Phantom:   m.phantom,
		Validator: m.validator,
		Blocked:   m.entities,
		Merged:    m.engine,
		Ledger:    m.ledger,
		Clock:     m.clock,
	})
	m.snapshots = snapshot.New(snapshot.NewFileSource(m.cfg.ReportPath), m.ledger, m.recorder, m.clock, snapshot.DefaultConfig())

	m.ledger.OnDayChange(m.onDayChange)
	m.ledgerCh = m.ledger.Subscribe()

	if ran, err := m.ledger.RunForcedResetMigration(); err != nil {
		logger.Warn("forced reset migration failed", "error", err)
	} else if ran {
		logger.Info("daily counters reset by migration")
	}

	if err := m.ledger.Register(m.entities.Tracked()); err != nil {
		logger.Warn("failed to register entities", "error", err)
	}
	if err := m.rebuildSchedule(); err != nil {
		logger.Warn("failed to publish schedule", "error", err)
	}

	m.signals, err = signal.Watch(m.cfg.SignalPath, 0)
	if err != nil {
		// The backstop timer still bounds staleness.
		logger.Warn("signal watcher unavailable", "error", err)
		m.signals = nil
	}

	return nil
}

// Run drives the manager until ctx is cancelled or Close is called.
func (m *Manager) Run(ctx context.Context) error {
	select {
	case <-m.stopChan:
		return nil
	default:
	}
	m.running.Add(1)
	defer m.running.Done()

	backstop := m.clock.Ticker(m.cfg.BackstopInterval)
	defer backstop.Stop()
	poll := m.clock.Ticker(m.cfg.SnapshotPollInterval)
	defer poll.Stop()
	dayCheck := m.clock.Ticker(time.Minute)
	defer dayCheck.Stop()

	var signalC <-chan struct{}
	var signalErrs <-chan error
	if m.signals != nil {
		signalC = m.signals.C()
		signalErrs = m.signals.Errors()
	}
	ledgerCh := m.ledgerCh

	m.Sync("startup")

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-m.stopChan:
			return nil

		case <-signalC:
			m.metrics.SignalsReceived.Inc()
			m.countSignal()
			m.Sync("signal")

		case err := <-signalErrs:
			m.broadcast(ErrorEvent{Service: "signal", Error: err})

		case <-backstop.C:
			m.Sync("backstop")

		case <-poll.C:
			m.PollSnapshots()

		case <-dayCheck.C:
			if _, err := m.ledger.HandleMidnightTransition(); err != nil {
				m.broadcast(ErrorEvent{Service: "ledger", Error: err})
			}

		case event := <-m.entities.Events():
			m.handleEntitiesEvent(event)

		case change, ok := <-ledgerCh:
			if !ok {
				ledgerCh = nil
				continue
			}
			m.handleLedgerChange(change)
		}
	}
}

// Sync drains relayed fires and then runs a reconciliation pass. Draining
// first lets the pass correct any overcount the direct path produced.
func (m *Manager) Sync(trigger string) SyncedEvent {
	fires, err := m.recorder.Drain()
	if err != nil {
		logger.Warn("failed to drain fires", "error", err)
		m.broadcast(ErrorEvent{Service: "recorder", Error: err})
	}
	m.metrics.FiresRecorded.Add(float64(len(fires.Recorded)))
	for tag, n := range fires.Rejected {
		m.metrics.FiresRejected.WithLabelValues(tag).Add(float64(n))
	}

	m.mu.Lock()
	m.lastFires = &fires
	m.mu.Unlock()

	res := m.engine.Reconcile(trigger)
	m.metrics.ReconcilePasses.WithLabelValues(trigger).Inc()
	m.metrics.ReconcileDuration.Observe(res.Duration.Seconds())
	for outcome, n := range res.Counts {
		m.metrics.ReconcileOutcomes.WithLabelValues(string(outcome)).Add(float64(n))
	}
	m.metrics.LedgerDirty.Set(float64(m.ledger.DirtyCount()))

	ev := SyncedEvent{Fires: fires, Reconcile: res}
	m.broadcast(ev)
	m.broadcast(DiagnosticsEvent{Diagnostics: m.Diagnostics()})
	m.checkGoal()
	return ev
}

// PollSnapshots applies the periodic usage report.
func (m *Manager) PollSnapshots() {
	res, err := m.snapshots.Poll()
	if err != nil {
		logger.Warn("snapshot poll failed", "error", err)
		m.broadcast(ErrorEvent{Service: "snapshot", Error: err})
		return
	}
	for d, n := range res.Counts {
		m.metrics.SnapshotDecisions.WithLabelValues(string(d)).Add(float64(n))
	}
}

func (m *Manager) handleEntitiesEvent(event entities.Event) {
	switch event.Type {
	case entities.EventEntitiesLoaded, entities.EventEntitiesChanged:
		if err := m.ledger.Register(m.entities.Tracked()); err != nil {
			m.broadcast(ErrorEvent{Service: "ledger", Error: err})
		}
		if err := m.rebuildSchedule(); err != nil {
			m.broadcast(ErrorEvent{Service: "schedule", Error: err})
		}

	case entities.EventError:
		m.broadcast(ErrorEvent{Service: "entities", Error: event.Error})
	}
}

func (m *Manager) handleLedgerChange(change models.LedgerChange) {
	entries := m.ledger.Entries()
	for _, e := range entries {
		m.metrics.TodaySeconds.WithLabelValues(e.LogicalID, string(e.Category)).Set(float64(e.TodaySeconds))
	}
	m.broadcast(LedgerUpdatedEvent{Entries: entries, Source: change.Source})
	m.checkGoal()
}

func (m *Manager) rebuildSchedule() error {
	s := schedule.Build(m.entities.Tracked(), schedule.Options{
		MinutesPerEntity: m.cfg.WatchpointMinutes,
		MaxWatchpoints:   m.cfg.MaxWatchpoints,
	})
	if err := s.Publish(m.shared); err != nil {
		return err
	}

	m.mu.Lock()
	m.schedule = s
	m.mu.Unlock()

	logger.Info("schedule published", "schedule", s.String(), "skipped", len(s.Skipped))
	m.broadcast(ScheduleRebuiltEvent{
		Watchpoints:      s.Len(),
		MinutesPerEntity: s.MinutesPerEntity,
		Skipped:          len(s.Skipped) + len(m.entities.Unresolved()),
	})
	return nil
}

func (m *Manager) onDayChange(closed string) {
	m.validator.Reset()
	m.metrics.Rollovers.Inc()
	m.broadcast(DayRolledOverEvent{Closed: closed})
}

func (m *Manager) countSignal() {
	raw, _, err := m.database.GetState(db.StateSignalsReceived)
	if err != nil {
		logger.Warn("failed to read signal count", "error", err)
		return
	}
	n, _ := strconv.ParseInt(raw, 10, 64)
	if err := m.database.SetState(db.StateSignalsReceived, strconv.FormatInt(n+1, 10)); err != nil {
		logger.Warn("failed to store signal count", "error", err)
	}
}

// GoalProgress returns today's learning progress.
func (m *Manager) GoalProgress() GoalProgress {
	p := GoalProgress{GoalMinutes: int64(m.cfg.LearningGoalMinutes)}
	for _, e := range m.ledger.Entries() {
		if e.Category == models.CategoryLearning {
			p.LearnedMinutes += e.TodayMinutes()
		}
	}
	p.Unlocked = p.LearnedMinutes >= p.GoalMinutes
	return p
}

func (m *Manager) checkGoal() {
	if m.cfg.LearningGoalMinutes <= 0 {
		return
	}
	p := m.GoalProgress()
	if !p.Unlocked {
		return
	}
	day := m.ledger.Today()
	if m.goal.GoalReached(day, p.LearnedMinutes) {
		m.broadcast(RewardsUnlockedEvent{Day: day, LearnedMinutes: p.LearnedMinutes})
	}
}

// Diagnostics collects the operational counters.
func (m *Manager) Diagnostics() Diagnostics {
	d := Diagnostics{
		Validator:         m.validator.Stats(),
		LastReconcile:     m.engine.Last(),
		DirtyEntries:      m.ledger.DirtyCount(),
		UnresolvedEntries: len(m.entities.Unresolved()),
	}

	if n, _, err := m.shared.GetInt(sharedstore.KeySignalsFired); err == nil {
		d.SignalsFired = n
		m.metrics.SignalsFired.Set(float64(n))
	}
	if n, _, err := m.shared.GetInt(sharedstore.KeyUnknownFires); err == nil {
		d.UnknownFires = n
	}
	if raw, ok, err := m.database.GetState(db.StateSignalsReceived); err == nil && ok {
		d.SignalsReceived, _ = strconv.ParseInt(raw, 10, 64)
	}

	m.mu.RLock()
	if m.schedule != nil {
		d.Watchpoints = m.schedule.Len()
	}
	d.LastFires = m.lastFires
	d.DroppedEvents = m.dropped
	m.mu.RUnlock()

	return d
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
			m.dropped++
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Ledger returns the ledger.
func (m *Manager) Ledger() *ledger.Ledger {
	return m.ledger
}

// Entities returns the entities service.
func (m *Manager) Entities() *entities.Service {
	return m.entities
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Registry returns the metrics registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// History returns the closed days of an entity, oldest first.
func (m *Manager) History(id string) ([]models.DailyUsage, error) {
	if m.database == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return m.database.GetDailyHistory(id)
}

// ResetToday zeroes every entity's counters for today.
func (m *Manager) ResetToday() error {
	return m.ledger.ForceResetAllDailyCounters()
}

// InitialState returns the state needed to render the first frame.
func (m *Manager) InitialState() ([]*models.LedgerEntry, GoalProgress, Diagnostics) {
	return m.ledger.Entries(), m.GoalProgress(), m.Diagnostics()
}

// Close stops Run and releases every resource.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() { close(m.stopChan) })
	m.running.Wait()

	m.closeOnce.Do(func() {
		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		m.closeErr = m.closeResources()
	})
	return m.closeErr
}

func (m *Manager) closeResources() error {
	var errs error
	if m.signals != nil {
		errs = multierr.Append(errs, m.signals.Close())
	}
	if m.entities != nil {
		errs = multierr.Append(errs, m.entities.Close())
	}
	if m.ledger != nil {
		errs = multierr.Append(errs, m.ledger.Close())
	}
	if m.shared != nil {
		errs = multierr.Append(errs, m.shared.Close())
	}
	if m.database != nil {
		errs = multierr.Append(errs, m.database.Close())
	}
	return errs
}
