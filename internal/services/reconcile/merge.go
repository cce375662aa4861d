package reconcile

import (
	"time"

	"github.com/j-veylop/rewardgate/internal/models"
)

// Outcome is the result of merging one snapshot into one ledger entry.
type Outcome string

const (
	// OutcomeStale means the snapshot belongs to another day.
	OutcomeStale Outcome = "stale"
	// OutcomeNoData means the helper has nothing recorded for today.
	OutcomeNoData Outcome = "no-data"
	// OutcomeUnchanged means the ledger already matches the snapshot.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeAdvanced means the snapshot was ahead and the ledger caught up.
	OutcomeAdvanced Outcome = "advanced"
	// OutcomeCorrected means the ledger was ahead and was pulled back.
	OutcomeCorrected Outcome = "corrected"
	// OutcomeError means the snapshot could not be read.
	OutcomeError Outcome = "error"
)

// Merge folds a helper snapshot into a ledger entry and reports what
// happened and whether the entry changed. The snapshot is authoritative for
// today's value; lifetime totals only ever grow. Merging the same snapshot
// twice leaves the entry unchanged the second time.
func Merge(e *models.LedgerEntry, snap models.UsageCounterSnapshot, today string, now time.Time) (Outcome, bool) {
	if snap.Day != today {
		return OutcomeStale, false
	}
	if snap.TodaySeconds <= 0 {
		return OutcomeNoData, false
	}

	outcome := OutcomeUnchanged
	changed := false

	switch {
	case snap.TodaySeconds > e.TodaySeconds:
		delta := snap.TodaySeconds - e.TodaySeconds
		e.TodaySeconds = snap.TodaySeconds
		e.HourlySeconds[now.Hour()] += delta
		outcome = OutcomeAdvanced
		changed = true

	case snap.TodaySeconds < e.TodaySeconds:
		// The finer hourly distribution is lost on correction.
		e.HourlySeconds = [models.HoursPerDay]int64{}
		e.HourlySeconds[now.Hour()] = snap.TodaySeconds
		e.TodaySeconds = snap.TodaySeconds
		outcome = OutcomeCorrected
		changed = true
	}

	if snap.TotalSeconds > e.TotalSeconds {
		e.TotalSeconds = snap.TotalSeconds
		changed = true
	}

	if changed {
		e.RecomputePoints()
	}
	return outcome, changed
}
