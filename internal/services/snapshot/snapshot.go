// Package snapshot applies the slower periodic usage report as a safety net
// behind the direct fire path and the reconciliation engine. Every reading
// passes four guards before its delta is credited.
package snapshot

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/j-veylop/rewardgate/internal/logger"
	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/services/ledger"
)

// Decision is the fate of one reading.
type Decision string

const (
	DecisionAccepted  Decision = "accepted"
	DecisionStale     Decision = "stale"
	DecisionDuplicate Decision = "duplicate"
	DecisionRecent    Decision = "recent-fire"
	DecisionMagnitude Decision = "magnitude"
	DecisionNoDelta   Decision = "no-delta"
	DecisionUnknown   Decision = "unknown-entity"
)

// FireHistory reports the last direct fire credited for an entity.
type FireHistory interface {
	LastFireAt(entityID string) (time.Time, bool)
}

// Config holds the guard thresholds.
type Config struct {
	MaxAge        time.Duration
	RecencyWindow time.Duration
	// MagnitudeSlack is added to the elapsed time to bound a plausible delta.
	MagnitudeSlack time.Duration
}

// DefaultConfig returns the default guard thresholds.
func DefaultConfig() Config {
	return Config{
		MaxAge:         60 * time.Second,
		RecencyWindow:  90 * time.Second,
		MagnitudeSlack: 90 * time.Second,
	}
}

// Result summarizes one poll.
type Result struct {
	Decisions map[string]Decision
	Counts    map[Decision]int
}

// Reconciler applies report readings to the ledger.
type Reconciler struct {
	source Source
	ledger *ledger.Ledger
	fires  FireHistory
	clock  clock.Clock
	cfg    Config

	mu           sync.Mutex
	processed    *lru.Cache[string, struct{}]
	lastAccepted map[string]time.Time
}

// New creates a reconciler.
func New(source Source, l *ledger.Ledger, fires FireHistory, clk clock.Clock, cfg Config) *Reconciler {
	def := DefaultConfig()
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = def.MaxAge
	}
	if cfg.RecencyWindow <= 0 {
		cfg.RecencyWindow = def.RecencyWindow
	}
	if cfg.MagnitudeSlack <= 0 {
		cfg.MagnitudeSlack = def.MagnitudeSlack
	}
	if clk == nil {
		clk = clock.New()
	}

	processed, _ := lru.New[string, struct{}](1024)
	return &Reconciler{
		source:       source,
		ledger:       l,
		fires:        fires,
		clock:        clk,
		cfg:          cfg,
		processed:    processed,
		lastAccepted: make(map[string]time.Time),
	}
}

// Poll reads the source once and applies every reading that passes.
func (r *Reconciler) Poll() (Result, error) {
	res := Result{Decisions: make(map[string]Decision), Counts: make(map[Decision]int)}

	readings, err := r.source.Latest()
	if err != nil {
		return res, fmt.Errorf("snapshot source: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range readings {
		d := r.apply(s)
		res.Decisions[s.EntityID] = d
		res.Counts[d]++
		if d != DecisionAccepted && d != DecisionNoDelta {
			logger.Debug("snapshot reading skipped", "entity", s.EntityID, "decision", d)
		}
	}
	return res, nil
}

func (r *Reconciler) apply(s models.ReportSnapshot) Decision {
	now := r.clock.Now()

	if now.Sub(s.Timestamp) > r.cfg.MaxAge {
		return DecisionStale
	}

	key := processedKey(s)
	if r.processed.Contains(key) {
		return DecisionDuplicate
	}

	lastFire, fired := r.fires.LastFireAt(s.EntityID)
	if fired && now.Sub(lastFire) < r.cfg.RecencyWindow {
		return DecisionRecent
	}

	if r.ledger.Get(s.EntityID) == nil {
		return DecisionUnknown
	}

	bound := r.bound(s.EntityID, lastFire, fired, now)

	decision := DecisionNoDelta
	_, err := r.ledger.Apply(s.EntityID, ledger.SourceSnapshot, func(e *models.LedgerEntry) bool {
		delta := s.TodaySeconds - e.TodaySeconds
		if delta <= 0 {
			return false
		}
		if delta > bound {
			decision = DecisionMagnitude
			logger.Info("snapshot delta rejected", "entity", s.EntityID, "delta", delta, "bound", bound)
			return false
		}
		e.AddSeconds(delta, now)
		decision = DecisionAccepted
		return true
	})
	if err != nil {
		logger.Warn("snapshot increment not persisted", "entity", s.EntityID, "error", err)
	}

	if decision == DecisionAccepted {
		r.processed.Add(key, struct{}{})
		r.lastAccepted[s.EntityID] = now
	}
	return decision
}

// bound is the largest delta, in seconds, that elapsed time can explain.
// Elapsed time runs from the last direct fire, else the last accepted
// reading, else the start of the day.
func (r *Reconciler) bound(id string, lastFire time.Time, fired bool, now time.Time) int64 {
	var since time.Time
	switch {
	case fired:
		since = lastFire
	case !r.lastAccepted[id].IsZero():
		since = r.lastAccepted[id]
	default:
		y, m, d := now.Date()
		since = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	}

	elapsed := now.Sub(since)
	if elapsed < 0 {
		elapsed = 0
	}
	return int64((elapsed + r.cfg.MagnitudeSlack) / time.Second)
}

func processedKey(s models.ReportSnapshot) string {
	return s.EntityID + "|" + strconv.FormatInt(s.Timestamp.UnixNano(), 10) + "|" + strconv.FormatInt(s.TodaySeconds, 10)
}
