package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/services/phantom"
	"github.com/j-veylop/rewardgate/internal/services/schedule"
	"github.com/j-veylop/rewardgate/internal/services/snapshot"
	"github.com/j-veylop/rewardgate/internal/sharedstore"
)

const entity = "ent_words"

type fixture struct {
	store  *sharedstore.Memory
	clock  *clock.Mock
	helper *Helper
	dir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := sharedstore.NewMemory()
	s := schedule.Build([]models.TrackedEntity{{LogicalID: entity, DisplayName: "Words"}}, schedule.Options{MinutesPerEntity: 5})
	require.NoError(t, s.Publish(store))

	clk := clock.NewMock()
	clk.Set(time.Date(2026, 10, 19, 10, 0, 0, 0, time.Local))

	dir := t.TempDir()
	h := New(store, Options{
		SignalPath: filepath.Join(dir, "usage.signal"),
		ReportPath: filepath.Join(dir, "report.json"),
		Clock:      clk,
	})
	return &fixture{store: store, clock: clk, helper: h, dir: dir}
}

func TestStart_RecordsActivation(t *testing.T) {
	f := newFixture(t)

	id, err := f.helper.Start()
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	p := phantom.New(f.store, f.clock, 0)
	assert.True(t, p.Suppress(f.clock.Now().Add(10*time.Second)))
	assert.False(t, p.Suppress(f.clock.Now().Add(31*time.Second)))
}

func TestFire_AdvancesCounters(t *testing.T) {
	f := newFixture(t)

	res, err := f.helper.Fire(models.WatchpointID(entity, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(180), res.Today)
	assert.Equal(t, int64(180), res.Delta)
	assert.Equal(t, int64(1), res.Seq)
	assert.True(t, res.Signaled)

	_, err = os.Stat(filepath.Join(f.dir, "usage.signal"))
	assert.NoError(t, err)

	snap, ok, err := sharedstore.ReadCounters(f.store, entity)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(180), snap.TodaySeconds)
	assert.Equal(t, int64(180), snap.TotalSeconds)
	assert.Equal(t, "2026-10-19", snap.Day)
	assert.Equal(t, res.Seq, snap.FireSeq, "counters record the fire they include")

	fires, head, err := sharedstore.FiresAfter(f.store, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), head)
	require.Len(t, fires, 1)
	assert.Equal(t, entity, fires[0].EntityID)
}

func TestFire_NeverDecreases(t *testing.T) {
	f := newFixture(t)

	_, err := f.helper.Fire(models.WatchpointID(entity, 4))
	require.NoError(t, err)

	res, err := f.helper.Fire(models.WatchpointID(entity, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(240), res.Today)
	assert.Zero(t, res.Delta)
}

func TestFire_NewDayRestartsToday(t *testing.T) {
	f := newFixture(t)

	_, err := f.helper.Fire(models.WatchpointID(entity, 5))
	require.NoError(t, err)

	f.clock.Add(24 * time.Hour)
	res, err := f.helper.Fire(models.WatchpointID(entity, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(60), res.Today)

	snap, _, err := sharedstore.ReadCounters(f.store, entity)
	require.NoError(t, err)
	assert.Equal(t, int64(360), snap.TotalSeconds)
	assert.Equal(t, "2026-10-20", snap.Day)
}

func TestFire_UnknownWatchpoint(t *testing.T) {
	f := newFixture(t)

	_, err := f.helper.Fire("wp_missing")
	assert.ErrorIs(t, err, ErrUnknownWatchpoint)

	st, err := f.helper.Status()
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.UnknownFires)
	assert.Zero(t, st.SignalsFired)
}

func TestReport_WritesTodaysCounters(t *testing.T) {
	f := newFixture(t)

	_, err := f.helper.Fire(models.WatchpointID(entity, 2))
	require.NoError(t, err)

	report, err := f.helper.Report()
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)

	got, err := snapshot.NewFileSource(filepath.Join(f.dir, "report.json")).Latest()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entity, got[0].EntityID)
	assert.Equal(t, int64(120), got[0].TodaySeconds)
}

func TestReport_SkipsPreviousDays(t *testing.T) {
	f := newFixture(t)

	_, err := f.helper.Fire(models.WatchpointID(entity, 2))
	require.NoError(t, err)
	f.clock.Add(24 * time.Hour)

	report, err := f.helper.Report()
	require.NoError(t, err)
	assert.Empty(t, report.Entries)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)

	_, err := f.helper.Start()
	require.NoError(t, err)
	_, err = f.helper.Fire(models.WatchpointID(entity, 1))
	require.NoError(t, err)

	st, err := f.helper.Status()
	require.NoError(t, err)
	assert.Equal(t, 5, st.Watchpoints)
	assert.Equal(t, int64(1), st.FireSeq)
	assert.Equal(t, int64(1), st.SignalsFired)
	assert.NotEmpty(t, st.ActivationID)
	assert.True(t, st.ActivatedAt.Equal(f.clock.Now()))
	require.Len(t, st.Counters, 1)
	assert.Equal(t, entity, st.Counters[0].EntityID)
}
