package snapshot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/rewardgate/internal/db"
	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/services/ledger"
)

type staticSource struct {
	readings []models.ReportSnapshot
}

func (s *staticSource) Latest() ([]models.ReportSnapshot, error) {
	return s.readings, nil
}

type fireHistory map[string]time.Time

func (f fireHistory) LastFireAt(id string) (time.Time, bool) {
	t, ok := f[id]
	return t, ok
}

var noon = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fixture struct {
	rec    *Reconciler
	ledger *ledger.Ledger
	source *staticSource
	fires  fireHistory
	clock  *clock.Mock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	clk := clock.NewMock()
	clk.Set(noon)

	l := ledger.New(database, clk)
	require.NoError(t, l.Register([]models.TrackedEntity{{LogicalID: "ent_a", DisplayName: "A", PointsPerMinute: 1}}))

	f := &fixture{ledger: l, source: &staticSource{}, fires: fireHistory{}, clock: clk}
	f.rec = New(f.source, l, f.fires, clk, DefaultConfig())
	return f
}

func (f *fixture) report(seconds int64, age time.Duration) {
	f.source.readings = []models.ReportSnapshot{{
		EntityID:     "ent_a",
		TodaySeconds: seconds,
		Timestamp:    f.clock.Now().Add(-age),
	}}
}

func (f *fixture) poll(t *testing.T) Decision {
	t.Helper()
	res, err := f.rec.Poll()
	require.NoError(t, err)
	return res.Decisions["ent_a"]
}

func TestPoll_Accepts(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.AddIncrement("ent_a", ledger.SourceDirect, 600))
	f.fires["ent_a"] = noon.Add(-10 * time.Minute)

	f.report(780, 5*time.Second)
	assert.Equal(t, DecisionAccepted, f.poll(t))

	e := f.ledger.Get("ent_a")
	assert.Equal(t, int64(780), e.TodaySeconds)
	assert.Equal(t, e.TodaySeconds, e.HourlySum())
}

func TestPoll_Stale(t *testing.T) {
	f := newFixture(t)
	f.report(300, 61*time.Second)
	assert.Equal(t, DecisionStale, f.poll(t))
	assert.Zero(t, f.ledger.Get("ent_a").TodaySeconds)
}

func TestPoll_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.report(120, time.Second)
	assert.Equal(t, DecisionAccepted, f.poll(t))
	assert.Equal(t, DecisionDuplicate, f.poll(t))
	assert.Equal(t, int64(120), f.ledger.Get("ent_a").TodaySeconds)
}

func TestPoll_RecentFire(t *testing.T) {
	f := newFixture(t)
	f.fires["ent_a"] = noon.Add(-30 * time.Second)
	f.report(120, time.Second)
	assert.Equal(t, DecisionRecent, f.poll(t))
}

func TestPoll_Magnitude(t *testing.T) {
	f := newFixture(t)
	f.fires["ent_a"] = noon.Add(-2 * time.Minute)

	// 120s elapsed + 90s slack allows 210s; 600s is implausible.
	f.report(600, time.Second)
	assert.Equal(t, DecisionMagnitude, f.poll(t))
	assert.Zero(t, f.ledger.Get("ent_a").TodaySeconds, "rejected outright, not clamped")

	f.report(200, time.Second)
	assert.Equal(t, DecisionAccepted, f.poll(t))
	assert.Equal(t, int64(200), f.ledger.Get("ent_a").TodaySeconds)
}

func TestPoll_NoDelta(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.AddIncrement("ent_a", ledger.SourceDirect, 300))
	f.report(240, time.Second)
	assert.Equal(t, DecisionNoDelta, f.poll(t))
	assert.Equal(t, int64(300), f.ledger.Get("ent_a").TodaySeconds)
}

func TestPoll_UnknownEntity(t *testing.T) {
	f := newFixture(t)
	f.source.readings = []models.ReportSnapshot{{EntityID: "ent_ghost", TodaySeconds: 60, Timestamp: noon}}
	res, err := f.rec.Poll()
	require.NoError(t, err)
	assert.Equal(t, DecisionUnknown, res.Decisions["ent_ghost"])
	assert.Nil(t, f.ledger.Get("ent_ghost"))
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	src := NewFileSource(path)
	readings, err := src.Latest()
	require.NoError(t, err)
	assert.Empty(t, readings)

	require.NoError(t, WriteReport(path, ReportFile{
		GeneratedAt: noon,
		Entries: []models.ReportSnapshot{
			{EntityID: "ent_a", TodaySeconds: 120},
			{EntityID: "ent_b", TodaySeconds: 60, Timestamp: noon.Add(-time.Minute)},
		},
	}))

	readings, err = src.Latest()
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.True(t, noon.Equal(readings[0].Timestamp))
	assert.Equal(t, int64(120), readings[0].TodaySeconds)
	assert.True(t, noon.Add(-time.Minute).Equal(readings[1].Timestamp))
}
