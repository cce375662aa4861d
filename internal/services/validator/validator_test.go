package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/j-veylop/rewardgate/internal/models"
)

var base = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

func TestRecordThresholdFire_Admits(t *testing.T) {
	v := New(DefaultConfig())
	ok, reason := v.RecordThresholdFire(models.WatchpointID("e1", 1), "e1", base)
	assert.True(t, ok)
	assert.Equal(t, ReasonAdmitted, reason)
}

func TestRecordThresholdFire_Duplicate(t *testing.T) {
	v := New(DefaultConfig())
	wp := models.WatchpointID("e1", 1)

	ok, _ := v.RecordThresholdFire(wp, "e1", base)
	assert.True(t, ok)

	ok, reason := v.RecordThresholdFire(wp, "e1", base.Add(10*time.Minute))
	assert.False(t, ok)
	assert.Equal(t, ReasonDuplicate, reason)

	ok, _ = v.RecordThresholdFire(wp, "e1", base.Add(24*time.Hour))
	assert.True(t, ok, "the same watchpoint counts again on another day")
}

func TestRecordThresholdFire_Cascade(t *testing.T) {
	v := New(DefaultConfig())

	ok, _ := v.RecordThresholdFire(models.WatchpointID("e1", 1), "e1", base)
	assert.True(t, ok)

	ok, reason := v.RecordThresholdFire(models.WatchpointID("e1", 2), "e1", base.Add(5*time.Second))
	assert.False(t, ok)
	assert.Equal(t, ReasonCascade, reason)

	ok, _ = v.RecordThresholdFire(models.WatchpointID("e2", 1), "e2", base.Add(5*time.Second))
	assert.True(t, ok, "cascade is per entity")

	ok, _ = v.RecordThresholdFire(models.WatchpointID("e1", 2), "e1", base.Add(60*time.Second))
	assert.True(t, ok)
}

func TestRecordThresholdFire_RateLimit(t *testing.T) {
	v := New(Config{CascadeWindow: 10 * time.Second, RateWindow: 5 * time.Minute})
	assert.Equal(t, 6, v.MaxPerWindow())

	for i := range 6 {
		ok, reason := v.RecordThresholdFire(models.WatchpointID("e1", i+1), "e1", base.Add(time.Duration(i)*20*time.Second))
		assert.True(t, ok, "fire %d: %s", i, reason)
	}

	ok, reason := v.RecordThresholdFire(models.WatchpointID("e1", 7), "e1", base.Add(120*time.Second))
	assert.False(t, ok)
	assert.Equal(t, ReasonRateLimit, reason)

	ok, _ = v.RecordThresholdFire(models.WatchpointID("e1", 8), "e1", base.Add(5*time.Minute+time.Second))
	assert.True(t, ok, "oldest fire has left the window")
}

func TestRecordThresholdFire_SteadyUsageNeverLimited(t *testing.T) {
	v := New(DefaultConfig())
	for i := range 60 {
		ok, reason := v.RecordThresholdFire(models.WatchpointID("e1", i+1), "e1", base.Add(time.Duration(i)*time.Minute))
		assert.True(t, ok, "minute %d rejected: %s", i+1, reason)
	}
}

func TestRecordThresholdFire_JitteredUsageNeverLimited(t *testing.T) {
	tests := []struct {
		name      string
		intervals []time.Duration
	}{
		{"slightly fast", []time.Duration{59 * time.Second}},
		{"uneven", []time.Duration{45 * time.Second, 75 * time.Second}},
		{"mostly early", []time.Duration{55 * time.Second, 55 * time.Second, 70 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(DefaultConfig())
			at := base
			for i := range 60 {
				ok, reason := v.RecordThresholdFire(models.WatchpointID("e1", i+1), "e1", at)
				assert.True(t, ok, "minute %d at +%s rejected: %s", i+1, at.Sub(base), reason)
				at = at.Add(tt.intervals[i%len(tt.intervals)])
			}
		})
	}
}

func TestRecordThresholdFire_SustainedFastRateLimited(t *testing.T) {
	v := New(DefaultConfig())
	limited := 0
	for i := range 20 {
		ok, _ := v.RecordThresholdFire(models.WatchpointID("e1", i+1), "e1", base.Add(time.Duration(i)*40*time.Second))
		if !ok {
			limited++
		}
	}
	assert.Positive(t, limited)
	assert.Equal(t, uint64(limited), v.Stats()[ReasonRateLimit])
}

func TestReset(t *testing.T) {
	v := New(DefaultConfig())
	wp := models.WatchpointID("e1", 1)
	v.RecordThresholdFire(wp, "e1", base)
	v.Reset()

	ok, _ := v.RecordThresholdFire(wp, "e1", base.Add(time.Second))
	assert.True(t, ok)
}

func TestStats(t *testing.T) {
	v := New(DefaultConfig())
	wp := models.WatchpointID("e1", 1)
	v.RecordThresholdFire(wp, "e1", base)
	v.RecordThresholdFire(wp, "e1", base)

	stats := v.Stats()
	assert.Equal(t, uint64(1), stats[ReasonAdmitted])
	assert.Equal(t, uint64(1), stats[ReasonDuplicate])
}
