// Package validator rejects threshold fires that cannot represent real usage:
// repeats of an already counted watchpoint, bursts of fires for one entity,
// and sustained rates above one fire per minute.
package validator

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/j-veylop/rewardgate/internal/logger"
	"github.com/j-veylop/rewardgate/internal/models"
)

// Reason explains a validation decision.
type Reason string

const (
	ReasonAdmitted  Reason = "admitted"
	ReasonDuplicate Reason = "duplicate"
	ReasonCascade   Reason = "cascade"
	ReasonRateLimit Reason = "rate-limit"
)

// Config tunes the validator.
type Config struct {
	CascadeWindow time.Duration
	RateWindow    time.Duration
	// MemorySize bounds how many admitted fires and entities are remembered.
	MemorySize int
}

// DefaultConfig returns the default validator configuration.
func DefaultConfig() Config {
	return Config{
		CascadeWindow: 30 * time.Second,
		RateWindow:    5 * time.Minute,
		MemorySize:    4096,
	}
}

type entityRecord struct {
	lastAdmitted time.Time
	admitted     []time.Time
}

// Validator is safe for concurrent use.
type Validator struct {
	mu       sync.Mutex
	cfg      Config
	seen     *lru.Cache[string, struct{}]
	entities *lru.Cache[string, *entityRecord]
	stats    map[Reason]uint64
}

// New creates a validator.
func New(cfg Config) *Validator {
	def := DefaultConfig()
	if cfg.CascadeWindow <= 0 {
		cfg.CascadeWindow = def.CascadeWindow
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = def.RateWindow
	}
	if cfg.MemorySize <= 0 {
		cfg.MemorySize = def.MemorySize
	}

	seen, _ := lru.New[string, struct{}](cfg.MemorySize)
	entities, _ := lru.New[string, *entityRecord](cfg.MemorySize)

	return &Validator{
		cfg:      cfg,
		seen:     seen,
		entities: entities,
		stats:    make(map[Reason]uint64),
	}
}

// MaxPerWindow is the number of admitted fires allowed per rate window: one
// per increment, plus one so fires arriving slightly early are not limited.
func (v *Validator) MaxPerWindow() int {
	n := int(v.cfg.RateWindow / models.WatchpointIncrement)
	if n < 1 {
		n = 1
	}
	return n + 1
}

// RecordThresholdFire decides whether a fire should be counted and, when it
// is, remembers it for later decisions.
func (v *Validator) RecordThresholdFire(eventID, entityID string, at time.Time) (bool, Reason) {
	v.mu.Lock()
	defer v.mu.Unlock()

	reason := v.check(eventID, entityID, at)
	v.stats[reason]++

	if reason != ReasonAdmitted {
		logger.Debug("threshold fire rejected", "event", eventID, "entity", entityID, "reason", reason)
		return false, reason
	}
	return true, reason
}

func (v *Validator) check(eventID, entityID string, at time.Time) Reason {
	key := models.Day(at) + "|" + entityID + "|" + eventID
	if v.seen.Contains(key) {
		return ReasonDuplicate
	}

	rec, ok := v.entities.Get(entityID)
	if !ok {
		rec = &entityRecord{}
		v.entities.Add(entityID, rec)
	}

	if !rec.lastAdmitted.IsZero() {
		gap := at.Sub(rec.lastAdmitted)
		if gap < 0 {
			gap = -gap
		}
		if gap < v.cfg.CascadeWindow {
			return ReasonCascade
		}
	}

	cutoff := at.Add(-v.cfg.RateWindow)
	kept := rec.admitted[:0]
	for _, t := range rec.admitted {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	rec.admitted = kept

	if len(rec.admitted) >= v.MaxPerWindow() {
		return ReasonRateLimit
	}

	v.seen.Add(key, struct{}{})
	rec.admitted = append(rec.admitted, at)
	if at.After(rec.lastAdmitted) {
		rec.lastAdmitted = at
	}
	return ReasonAdmitted
}

// Reset forgets every record. Called on day rollover.
func (v *Validator) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seen.Purge()
	v.entities.Purge()
}

// Stats returns the number of decisions per reason since creation.
func (v *Validator) Stats() map[Reason]uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make(map[Reason]uint64, len(v.stats))
	for k, n := range v.stats {
		out[k] = n
	}
	return out
}
