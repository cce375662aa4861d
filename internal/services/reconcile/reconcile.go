// Package reconcile converges the usage ledger onto the monitoring helper's
// counters. A pass may be triggered by the cross-process signal or by the
// backstop timer; passes are idempotent, so overlapping triggers are safe.
package reconcile

import (
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/j-veylop/rewardgate/internal/logger"
	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/services/ledger"
	"github.com/j-veylop/rewardgate/internal/sharedstore"
)

// EntitySource lists the entities to reconcile.
type EntitySource interface {
	Tracked() []models.TrackedEntity
}

// Result summarizes one reconciliation pass.
type Result struct {
	ID       string
	Trigger  string
	At       time.Time
	Duration time.Duration
	Outcomes map[string]Outcome
	Counts   map[Outcome]int
	// PersistErrors counts entries whose durable write failed and were left
	// dirty for the next pass.
	PersistErrors int
}

// Engine runs reconciliation passes.
type Engine struct {
	ledger   *ledger.Ledger
	counters sharedstore.Viewer
	entities EntitySource
	clock    clock.Clock

	mu     sync.RWMutex
	last   *Result
	merged map[string]int64
}

// New creates an engine.
func New(l *ledger.Ledger, counters sharedstore.Viewer, entities EntitySource, clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	return &Engine{
		ledger:   l,
		counters: counters,
		entities: entities,
		clock:    clk,
		merged:   make(map[string]int64),
	}
}

// Reconcile runs one pass over every tracked entity. It never fails as a
// whole: per-entity problems are logged and reflected in the result.
func (e *Engine) Reconcile(trigger string) Result {
	start := e.clock.Now()
	res := Result{
		ID:       uuid.NewString(),
		Trigger:  trigger,
		At:       start,
		Outcomes: make(map[string]Outcome),
		Counts:   make(map[Outcome]int),
	}
	log := logger.With("reconcile").With("pass", res.ID, "trigger", trigger)

	if err := e.ledger.EnsureLoaded(); err != nil {
		log.Warn("ledger rehydration failed", "error", err)
	}
	if err := e.ledger.FlushDirty(); err != nil {
		log.Warn("retrying dirty ledger entries failed", "error", err)
	}

	for _, ent := range e.entities.Tracked() {
		id := ent.LogicalID
		outcome := e.reconcileEntity(log, id, &res)
		res.Outcomes[id] = outcome
		res.Counts[outcome]++
	}

	res.Duration = e.clock.Since(start)
	log.Debug("reconcile pass complete", "entities", len(res.Outcomes), "advanced", res.Counts[OutcomeAdvanced], "corrected", res.Counts[OutcomeCorrected])

	e.mu.Lock()
	e.last = &res
	e.mu.Unlock()

	return res
}

func (e *Engine) reconcileEntity(log *slog.Logger, id string, res *Result) Outcome {
	var snap models.UsageCounterSnapshot
	var ok bool
	err := e.counters.View(func(r sharedstore.Reader) error {
		var err error
		snap, ok, err = sharedstore.ReadCounters(r, id)
		return err
	})
	if err != nil {
		log.Warn("failed to read helper counters", "entity", id, "error", err)
		return OutcomeError
	}
	if !ok {
		return OutcomeNoData
	}

	now := e.clock.Now()
	today := models.Day(now)
	if snap.Day != today {
		return OutcomeStale
	}
	if snap.TodaySeconds <= 0 {
		return OutcomeNoData
	}

	var outcome Outcome
	_, err = e.ledger.Apply(id, ledger.SourceReconcile, func(entry *models.LedgerEntry) bool {
		var changed bool
		outcome, changed = Merge(entry, snap, e.ledger.Today(), now)
		return changed
	})
	if outcome == "" {
		log.Warn("ledger unavailable", "entity", id, "error", err)
		return OutcomeError
	}
	if err != nil {
		res.PersistErrors++
	}

	switch outcome {
	case OutcomeUnchanged, OutcomeAdvanced, OutcomeCorrected:
		// The ledger now covers every fire up to snap.FireSeq.
		e.mu.Lock()
		e.merged[id] = snap.FireSeq
		e.mu.Unlock()
	}
	return outcome
}

// MergedSeq returns the newest relayed fire sequence number already folded
// into the ledger for an entity by a pass.
func (e *Engine) MergedSeq(entityID string) int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.merged[entityID]
}

// Last returns the most recent pass result, or nil before the first pass.
func (e *Engine) Last() *Result {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}
