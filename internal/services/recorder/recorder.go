// Package recorder credits threshold fires relayed by the monitoring helper
// directly to the ledger, one fixed increment per admitted fire.
package recorder

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/j-veylop/rewardgate/internal/db"
	"github.com/j-veylop/rewardgate/internal/logger"
	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/services/ledger"
	"github.com/j-veylop/rewardgate/internal/services/phantom"
	"github.com/j-veylop/rewardgate/internal/services/validator"
	"github.com/j-veylop/rewardgate/internal/sharedstore"
)

// Rejection tags beyond the validator's own reasons.
const (
	RejectPhantom = "phantom"
	RejectBlocked = "blocked"
	RejectRepeat  = "repeat"
	// RejectMerged marks fires a reconciliation pass already folded into the
	// ledger through the helper's counters.
	RejectMerged = "merged"
	RejectLedger = "ledger"
)

// BlockedSet reports whether an entity is currently shielded.
type BlockedSet interface {
	Contains(entityID string) bool
}

// MergedSeqs reports the newest fire sequence number a reconciliation pass
// already applied for an entity. *reconcile.Engine implements it.
type MergedSeqs interface {
	MergedSeq(entityID string) int64
}

// CursorStore persists the position in the relayed fire queue.
type CursorStore interface {
	GetState(key string) (string, bool, error)
	SetState(key, value string) error
}

// Result summarizes one Drain call.
type Result struct {
	Read     int
	Recorded []string
	Rejected map[string]int
}

// Recorder is safe for concurrent use; drains are serialized.
type Recorder struct {
	fires     sharedstore.Reader
	cursor    CursorStore
	phantom   *phantom.Suppressor
	validator *validator.Validator
	blocked   BlockedSet
	merged    MergedSeqs
	ledger    *ledger.Ledger
	clock     clock.Clock

	mu       sync.Mutex
	lastFire map[string]time.Time
}

// Deps groups the collaborators of a Recorder.
type Deps struct {
	Fires     sharedstore.Reader
	Cursor    CursorStore
	Phantom   *phantom.Suppressor
	Validator *validator.Validator
	Blocked   BlockedSet
	Merged    MergedSeqs
	Ledger    *ledger.Ledger
	Clock     clock.Clock
}

// New creates a recorder.
func New(d Deps) *Recorder {
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	return &Recorder{
		fires:     d.Fires,
		cursor:    d.Cursor,
		phantom:   d.Phantom,
		validator: d.Validator,
		blocked:   d.Blocked,
		merged:    d.Merged,
		ledger:    d.Ledger,
		clock:     d.Clock,
		lastFire:  make(map[string]time.Time),
	}
}

// Drain consumes every relayed fire after the stored cursor.
func (r *Recorder) Drain() (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := Result{Rejected: make(map[string]int)}

	// Fires are only consumed once the ledger can take them.
	if err := r.ledger.EnsureLoaded(); err != nil {
		return res, fmt.Errorf("ledger unavailable: %w", err)
	}

	cursor, err := r.loadCursor()
	if err != nil {
		return res, err
	}

	head, _, err := r.fires.GetInt(sharedstore.KeyFireSeq)
	if err != nil {
		return res, fmt.Errorf("failed to read fire sequence: %w", err)
	}
	if head < cursor {
		// The shared store was recreated; start over from its beginning.
		logger.Warn("fire sequence went backwards, resetting cursor", "cursor", cursor, "head", head)
		cursor = 0
	}

	fires, head, err := sharedstore.FiresAfter(r.fires, cursor)
	if err != nil {
		return res, fmt.Errorf("failed to read fires: %w", err)
	}
	res.Read = len(fires)

	seen := make(map[string]bool, len(fires))
	for _, f := range fires {
		if tag := r.admit(f, seen); tag != "" {
			if tag == RejectMerged {
				// Credited by a pass; still counts as recent usage.
				r.lastFire[f.EntityID] = r.clock.Now()
			}
			res.Rejected[tag]++
			continue
		}

		applied, err := r.ledger.Credit(f.EntityID, ledger.SourceDirect, models.IncrementSeconds)
		if !applied {
			logger.Warn("direct increment dropped", "entity", f.EntityID, "event", f.EventID, "error", err)
			res.Rejected[RejectLedger]++
			continue
		}
		if err != nil {
			logger.Warn("direct increment not persisted", "entity", f.EntityID, "error", err)
		}
		seen[f.EntityID] = true
		r.lastFire[f.EntityID] = r.clock.Now()
		res.Recorded = append(res.Recorded, f.EntityID)
	}

	if head != cursor || res.Read > 0 {
		if err := r.cursor.SetState(db.StateFireCursor, strconv.FormatInt(head, 10)); err != nil {
			return res, fmt.Errorf("failed to store fire cursor: %w", err)
		}
	}
	return res, nil
}

// admit returns "" when the fire should be credited, otherwise the tag of
// the first check that rejected it.
func (r *Recorder) admit(f models.ThresholdFire, seen map[string]bool) string {
	if r.merged != nil && f.Seq <= r.merged.MergedSeq(f.EntityID) {
		return RejectMerged
	}
	if r.phantom != nil && r.phantom.Suppress(f.At) {
		logger.Debug("phantom fire dropped", "event", f.EventID, "entity", f.EntityID)
		return RejectPhantom
	}
	if r.blocked != nil && r.blocked.Contains(f.EntityID) {
		return RejectBlocked
	}
	if ok, reason := r.validator.RecordThresholdFire(f.EventID, f.EntityID, f.At); !ok {
		return string(reason)
	}
	if seen[f.EntityID] {
		return RejectRepeat
	}
	return ""
}

func (r *Recorder) loadCursor() (int64, error) {
	raw, ok, err := r.cursor.GetState(db.StateFireCursor)
	if err != nil {
		return 0, fmt.Errorf("failed to read fire cursor: %w", err)
	}
	if !ok || raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logger.Warn("invalid fire cursor, starting over", "value", raw)
		return 0, nil
	}
	return n, nil
}

// LastFireAt returns when a direct fire was last credited for an entity.
func (r *Recorder) LastFireAt(entityID string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.lastFire[entityID]
	return t, ok
}
