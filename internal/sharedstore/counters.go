package sharedstore

import (
	"fmt"
	"math"
	"time"

	"github.com/j-veylop/rewardgate/internal/models"
)

// ReadCounters reads the helper-owned counters of one entity. The boolean
// result is false when the helper has never written counters for it.
func ReadCounters(r Reader, entityID string) (models.UsageCounterSnapshot, bool, error) {
	snap := models.UsageCounterSnapshot{EntityID: entityID}

	day, ok, err := r.GetString(UsageKey(entityID, FieldDay))
	if err != nil {
		return snap, false, fmt.Errorf("read day for %s: %w", entityID, err)
	}
	if !ok {
		return snap, false, nil
	}
	snap.Day = day

	if snap.TodaySeconds, _, err = r.GetInt(UsageKey(entityID, FieldToday)); err != nil {
		return snap, false, fmt.Errorf("read today for %s: %w", entityID, err)
	}
	if snap.TotalSeconds, _, err = r.GetInt(UsageKey(entityID, FieldTotal)); err != nil {
		return snap, false, fmt.Errorf("read total for %s: %w", entityID, err)
	}

	if snap.FireSeq, _, err = r.GetInt(UsageKey(entityID, FieldSeq)); err != nil {
		return snap, false, fmt.Errorf("read fire seq for %s: %w", entityID, err)
	}

	updated, ok, err := r.GetFloat(UsageKey(entityID, FieldUpdated))
	if err != nil {
		return snap, false, fmt.Errorf("read updated for %s: %w", entityID, err)
	}
	if ok {
		snap.UpdatedAt = FromUnix(updated)
	}

	return snap, true, nil
}

// WriteCounters stores a full counter snapshot. Only the helper calls this.
func WriteCounters(w Writer, snap models.UsageCounterSnapshot) error {
	id := snap.EntityID
	if err := w.SetInt(UsageKey(id, FieldToday), snap.TodaySeconds); err != nil {
		return err
	}
	if err := w.SetInt(UsageKey(id, FieldTotal), snap.TotalSeconds); err != nil {
		return err
	}
	if err := w.SetString(UsageKey(id, FieldDay), snap.Day); err != nil {
		return err
	}
	if err := w.SetInt(UsageKey(id, FieldSeq), snap.FireSeq); err != nil {
		return err
	}
	return w.SetFloat(UsageKey(id, FieldUpdated), ToUnix(snap.UpdatedAt))
}

// ToUnix converts a time to float unix seconds.
func ToUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// FromUnix converts float unix seconds to a time.
func FromUnix(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9))
}
