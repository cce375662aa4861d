// Package ledger owns the authoritative per-entity usage ledger of the
// interactive process. Every mutation goes through a single lock so the
// direct recorder, the snapshot reconciler, the reconciliation engine and
// day rollover never interleave their read-modify-write cycles.
package ledger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/j-veylop/rewardgate/internal/db"
	"github.com/j-veylop/rewardgate/internal/events"
	"github.com/j-veylop/rewardgate/internal/logger"
	"github.com/j-veylop/rewardgate/internal/models"
)

// Store is the durable backing store. *db.DB implements it.
type Store interface {
	LoadLedger() (map[string]*models.LedgerEntry, error)
	SaveLedgerEntry(e *models.LedgerEntry) error
	GetState(key string) (string, bool, error)
	SetState(key, value string) error
}

// Change sources reported in models.LedgerChange.
const (
	SourceDirect    = "direct"
	SourceSnapshot  = "snapshot"
	SourceReconcile = "reconcile"
	SourceRollover  = "rollover"
	SourceReset     = "reset"
	SourceCatalog   = "catalog"
)

// Ledger is safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	store    Store
	clock    clock.Clock
	entries  map[string]*models.LedgerEntry
	dirty    map[string]bool
	catalog  map[string]models.TrackedEntity
	bus      *events.Bus[models.LedgerChange]
	dayHooks []func(closed string)
}

// New creates a ledger over store. Nothing is read until first use.
func New(store Store, clk clock.Clock) *Ledger {
	if clk == nil {
		clk = clock.New()
	}
	return &Ledger{
		store:   store,
		clock:   clk,
		entries: make(map[string]*models.LedgerEntry),
		dirty:   make(map[string]bool),
		catalog: make(map[string]models.TrackedEntity),
		bus:     events.NewBus[models.LedgerChange](32),
	}
}

// Subscribe returns a channel receiving ledger change notifications.
func (l *Ledger) Subscribe() chan models.LedgerChange {
	return l.bus.Subscribe()
}

// Unsubscribe stops delivery to ch.
func (l *Ledger) Unsubscribe(ch chan models.LedgerChange) {
	l.bus.Unsubscribe(ch)
}

// OnDayChange registers fn to run after each day rollover with the date that
// was closed.
func (l *Ledger) OnDayChange(fn func(closed string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dayHooks = append(l.dayHooks, fn)
}

// Today returns the current calendar date.
func (l *Ledger) Today() string {
	return models.Day(l.clock.Now())
}

// EnsureLoaded rehydrates the in-memory ledger from durable storage when it
// is empty.
func (l *Ledger) EnsureLoaded() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ensureLoadedLocked()
}

func (l *Ledger) ensureLoadedLocked() error {
	if len(l.entries) > 0 {
		return nil
	}

	entries, err := l.store.LoadLedger()
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	for id, e := range entries {
		if meta, ok := l.catalog[id]; ok {
			applyMetadata(e, meta)
		}
		l.entries[id] = e
	}
	return nil
}

// Register records entity metadata and creates entries for new entities.
// Existing entries keep their counters; only name, category and rate change.
func (l *Ledger) Register(entities []models.TrackedEntity) error {
	l.mu.Lock()

	if err := l.ensureLoadedLocked(); err != nil {
		l.mu.Unlock()
		return err
	}
	closed := l.rolloverLocked()

	var changed []string
	var errs error
	for _, ent := range entities {
		if !ent.IsResolved() {
			continue
		}
		l.catalog[ent.LogicalID] = ent

		e, ok := l.entries[ent.LogicalID]
		if !ok {
			e = models.NewLedgerEntry(ent, l.Today())
			l.entries[ent.LogicalID] = e
		} else if !metadataDiffers(e, ent) {
			continue
		}
		applyMetadata(e, ent)
		e.RecomputePoints()
		changed = append(changed, ent.LogicalID)
		errs = multierr.Append(errs, l.persistLocked(e))
	}
	l.mu.Unlock()

	l.afterRollover(closed)
	if len(changed) > 0 {
		l.publish(SourceCatalog, changed)
	}
	return errs
}

// Get returns a copy of one entry, or nil.
func (l *Ledger) Get(id string) *models.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[id].Clone()
}

// Entries returns copies of all entries ordered by display name.
func (l *Ledger) Entries() []*models.LedgerEntry {
	l.mu.Lock()
	out := make([]*models.LedgerEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.Clone())
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].LogicalID < out[j].LogicalID
	})
	return out
}

// Mutator changes an entry in place and reports whether anything changed.
type Mutator func(e *models.LedgerEntry) bool

// Apply runs fn against the entry for id as one serialized read-modify-write
// followed by a durable write. Missing entries are created. A failed write
// does not undo the in-memory change: the entry is marked dirty and written
// again by FlushDirty, and the error is returned for logging.
func (l *Ledger) Apply(id, source string, fn Mutator) (bool, error) {
	l.mu.Lock()

	if err := l.ensureLoadedLocked(); err != nil {
		l.mu.Unlock()
		return false, err
	}
	closed := l.rolloverLocked()

	e, ok := l.entries[id]
	if !ok {
		meta, known := l.catalog[id]
		if !known {
			meta = models.TrackedEntity{LogicalID: id}
		}
		e = models.NewLedgerEntry(meta, l.Today())
		l.entries[id] = e
	}

	changed := fn(e)
	var err error
	if changed {
		err = l.persistLocked(e)
	}
	l.mu.Unlock()

	l.afterRollover(closed)
	if changed {
		l.publish(source, []string{id})
	}
	return changed, err
}

// RecordUsage adds seconds to an entity, attributed to the current hour.
// A positive ratePerMinute replaces the entity's rate first.
func (l *Ledger) RecordUsage(id string, additionalSeconds, ratePerMinute int64) error {
	_, err := l.record(id, SourceDirect, additionalSeconds, ratePerMinute)
	return err
}

// AddIncrement is the additive primitive shared by the direct recorder and
// the snapshot reconciler.
func (l *Ledger) AddIncrement(id, source string, seconds int64) error {
	_, err := l.record(id, source, seconds, 0)
	return err
}

// Credit is AddIncrement that also reports whether the in-memory entry took
// the seconds. It is false when the ledger could not be loaded; a true result
// with an error means only the durable write failed.
func (l *Ledger) Credit(id, source string, seconds int64) (bool, error) {
	return l.record(id, source, seconds, 0)
}

func (l *Ledger) record(id, source string, seconds, rate int64) (bool, error) {
	if seconds <= 0 {
		return false, nil
	}
	now := l.clock.Now()
	return l.Apply(id, source, func(e *models.LedgerEntry) bool {
		if rate > 0 {
			e.PointsPerMinute = rate
		}
		e.AddSeconds(seconds, now)
		return true
	})
}

// FlushDirty retries durable writes that failed earlier.
func (l *Ledger) FlushDirty() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs error
	for id := range l.dirty {
		if e, ok := l.entries[id]; ok {
			errs = multierr.Append(errs, l.persistLocked(e))
		} else {
			delete(l.dirty, id)
		}
	}
	return errs
}

// DirtyCount returns the number of entries awaiting a durable write.
func (l *Ledger) DirtyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.dirty)
}

func (l *Ledger) persistLocked(e *models.LedgerEntry) error {
	if err := l.store.SaveLedgerEntry(e); err != nil {
		l.dirty[e.LogicalID] = true
		logger.Warn("ledger write failed, will retry", "entity", e.LogicalID, "error", err)
		return fmt.Errorf("persist %s: %w", e.LogicalID, err)
	}
	delete(l.dirty, e.LogicalID)
	return nil
}

func (l *Ledger) publish(source string, ids []string) {
	l.bus.Publish(models.LedgerChange{At: l.clock.Now(), Source: source, EntityIDs: ids})
}

// Close stops change notifications and flushes dirty entries.
func (l *Ledger) Close() error {
	err := l.FlushDirty()
	l.bus.Close()
	return err
}

func applyMetadata(e *models.LedgerEntry, ent models.TrackedEntity) {
	e.DisplayName = ent.Name()
	if ent.Category != "" {
		e.Category = ent.Category
	}
	if ent.PointsPerMinute > 0 {
		e.PointsPerMinute = ent.PointsPerMinute
	}
}

func metadataDiffers(e *models.LedgerEntry, ent models.TrackedEntity) bool {
	return e.DisplayName != ent.Name() ||
		(ent.Category != "" && e.Category != ent.Category) ||
		(ent.PointsPerMinute > 0 && e.PointsPerMinute != ent.PointsPerMinute)
}

var _ Store = (*db.DB)(nil)
