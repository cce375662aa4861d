package models

import "time"

// HoursPerDay is the number of hourly buckets kept for today.
const HoursPerDay = 24

// DailyUsage is one closed day in an entity's usage history.
type DailyUsage struct {
	Date    string `json:"date"`
	Seconds int64  `json:"seconds"`
}

// LedgerEntry is the authoritative usage record for one entity. It is owned
// by the interactive process and only mutated through the ledger service.
type LedgerEntry struct {
	LogicalID       string
	DisplayName     string
	Category        Category
	LastResetDate   string
	DailyHistory    []DailyUsage
	PointsPerMinute int64
	TotalSeconds    int64
	TotalPoints     int64
	TodaySeconds    int64
	TodayPoints     int64
	HourlySeconds   [HoursPerDay]int64
}

// NewLedgerEntry creates an empty entry for an entity.
func NewLedgerEntry(entity TrackedEntity, today string) *LedgerEntry {
	return &LedgerEntry{
		LogicalID:       entity.LogicalID,
		DisplayName:     entity.Name(),
		Category:        entity.Category,
		PointsPerMinute: entity.PointsPerMinute,
		LastResetDate:   today,
	}
}

// PointsFor converts seconds to points: whole minutes times the rate.
func PointsFor(seconds, ratePerMinute int64) int64 {
	if seconds <= 0 || ratePerMinute <= 0 {
		return 0
	}
	return (seconds / 60) * ratePerMinute
}

// RecomputePoints refreshes the derived point totals.
func (e *LedgerEntry) RecomputePoints() {
	e.TodayPoints = PointsFor(e.TodaySeconds, e.PointsPerMinute)
	e.TotalPoints = PointsFor(e.TotalSeconds, e.PointsPerMinute)
}

// HourlySum returns the sum of today's hourly buckets.
func (e *LedgerEntry) HourlySum() int64 {
	var sum int64
	for _, s := range e.HourlySeconds {
		sum += s
	}
	return sum
}

// TodayMinutes returns today's usage in whole minutes.
func (e *LedgerEntry) TodayMinutes() int64 {
	return e.TodaySeconds / 60
}

// AddSeconds applies an additive increment attributed to the hour of now.
func (e *LedgerEntry) AddSeconds(seconds int64, now time.Time) {
	if seconds <= 0 {
		return
	}
	e.TodaySeconds += seconds
	e.TotalSeconds += seconds
	e.HourlySeconds[now.Hour()] += seconds
	e.RecomputePoints()
}

// CloseDay moves today's usage into history and zeroes the daily counters.
// Days with no usage are not recorded.
func (e *LedgerEntry) CloseDay(date, today string) {
	if e.TodaySeconds > 0 {
		e.DailyHistory = append(e.DailyHistory, DailyUsage{Date: date, Seconds: e.TodaySeconds})
	}
	e.ResetToday(today)
}

// ResetToday zeroes today's counters without touching history.
func (e *LedgerEntry) ResetToday(today string) {
	e.TodaySeconds = 0
	e.TodayPoints = 0
	e.HourlySeconds = [HoursPerDay]int64{}
	e.LastResetDate = today
}

// Clone returns a deep copy safe to hand outside the ledger.
func (e *LedgerEntry) Clone() *LedgerEntry {
	if e == nil {
		return nil
	}
	c := *e
	if e.DailyHistory != nil {
		c.DailyHistory = make([]DailyUsage, len(e.DailyHistory))
		copy(c.DailyHistory, e.DailyHistory)
	}
	return &c
}

// LedgerChange is published whenever ledger entries change.
type LedgerChange struct {
	At        time.Time
	Source    string
	EntityIDs []string
}
