package ledger

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/j-veylop/rewardgate/internal/db"
	"github.com/j-veylop/rewardgate/internal/logger"
	"github.com/j-veylop/rewardgate/internal/models"
)

// HandleMidnightTransition closes the previous day when the stored last
// reset date differs from today. It returns whether a rollover happened.
// It is safe to call as often as wanted; only the date comparison decides.
func (l *Ledger) HandleMidnightTransition() (bool, error) {
	l.mu.Lock()
	if err := l.ensureLoadedLocked(); err != nil {
		l.mu.Unlock()
		return false, err
	}
	closed := l.rolloverLocked()
	l.mu.Unlock()

	l.afterRollover(closed)
	return closed != "", nil
}

// rolloverLocked performs the day rollover if due and returns the closed
// date, or "" when nothing happened. Entries are closed against their own
// LastResetDate so an entry last touched several days ago lands on the
// right history row.
func (l *Ledger) rolloverLocked() string {
	now := l.clock.Now()
	today := models.Day(now)

	stored, ok, err := l.store.GetState(db.StateLastResetDate)
	if err != nil {
		logger.Warn("failed to read last reset date", "error", err)
		return ""
	}
	if ok && stored == today {
		return ""
	}

	closed := stored
	if !ok || closed == "" {
		closed = models.Day(now.AddDate(0, 0, -1))
	}

	closedAny := false
	for _, e := range l.entries {
		if e.LastResetDate == today {
			continue
		}
		closedAny = true
		date := e.LastResetDate
		if date == "" {
			date = closed
		}
		e.CloseDay(date, today)
		e.RecomputePoints()
		_ = l.persistLocked(e)
	}

	if err := l.store.SetState(db.StateLastResetDate, today); err != nil {
		logger.Warn("failed to store last reset date", "error", err)
	}

	if !ok && !closedAny {
		// First run: nothing to close.
		return ""
	}

	logger.Info("day rollover", "closed", closed, "today", today, "entries", len(l.entries))
	return closed
}

func (l *Ledger) afterRollover(closed string) {
	if closed == "" {
		return
	}

	l.mu.Lock()
	hooks := append([]func(string){}, l.dayHooks...)
	ids := make([]string, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	l.mu.Unlock()

	for _, fn := range hooks {
		fn(closed)
	}
	l.publish(SourceRollover, ids)
}

// ForceResetAllDailyCounters zeroes today's counters of every entry and
// stamps today as the last reset date. History is not written.
func (l *Ledger) ForceResetAllDailyCounters() error {
	l.mu.Lock()
	if err := l.ensureLoadedLocked(); err != nil {
		l.mu.Unlock()
		return err
	}

	today := l.Today()
	ids := make([]string, 0, len(l.entries))
	var errs error
	for id, e := range l.entries {
		e.ResetToday(today)
		e.RecomputePoints()
		ids = append(ids, id)
		errs = multierr.Append(errs, l.persistLocked(e))
	}
	errs = multierr.Append(errs, l.store.SetState(db.StateLastResetDate, today))
	l.mu.Unlock()

	l.publish(SourceReset, ids)
	return errs
}

// RunForcedResetMigration performs a one-time forced reset that repairs
// ledgers written with the legacy placeholder reset date. A persisted flag
// guarantees it runs once. It returns whether the reset ran.
func (l *Ledger) RunForcedResetMigration() (bool, error) {
	done, _, err := l.store.GetState(db.StateForcedResetDone)
	if err != nil {
		return false, fmt.Errorf("failed to read migration flag: %w", err)
	}
	if done == "1" {
		return false, nil
	}

	if err := l.ForceResetAllDailyCounters(); err != nil {
		return false, fmt.Errorf("forced reset: %w", err)
	}
	if err := l.store.SetState(db.StateForcedResetDone, "1"); err != nil {
		return true, fmt.Errorf("failed to store migration flag: %w", err)
	}

	logger.Info("forced reset migration complete")
	return true, nil
}
