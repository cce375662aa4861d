package models

import "time"

// DayLayout is the format of every stored calendar date.
const DayLayout = "2006-01-02"

// Day returns the calendar date of t in its own location.
func Day(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDay parses a calendar date in the given location.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DayLayout, s, loc)
}

// UsageCounterSnapshot holds the monitoring helper's monotonic counters for
// one entity. The helper process is the only writer.
type UsageCounterSnapshot struct {
	UpdatedAt    time.Time
	EntityID     string
	Day          string
	TodaySeconds int64
	TotalSeconds int64
	// FireSeq is the sequence number of the last relayed fire already
	// included in TodaySeconds.
	FireSeq int64
}

// IsEmpty reports whether the helper has not recorded anything yet.
func (s UsageCounterSnapshot) IsEmpty() bool {
	return s.TodaySeconds == 0 && s.TotalSeconds == 0
}

// ReportSnapshot is one reading from the slower periodic usage report.
type ReportSnapshot struct {
	Timestamp    time.Time `json:"timestamp"`
	EntityID     string    `json:"logicalId"`
	TodaySeconds int64     `json:"seconds"`
}
