package schedule

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/sharedstore"
)

func entities(n int) []models.TrackedEntity {
	out := make([]models.TrackedEntity, n)
	for i := range out {
		out[i] = models.TrackedEntity{LogicalID: fmt.Sprintf("ent_%d", i)}
	}
	return out
}

func TestBuild_Defaults(t *testing.T) {
	s := Build(entities(2), Options{})
	assert.Equal(t, 120, s.Len())
	assert.Equal(t, 60, s.MinutesPerEntity)

	wp, ok := s.Get(models.WatchpointID("ent_1", 60))
	require.True(t, ok)
	assert.Equal(t, "ent_1", wp.EntityID)
	assert.Equal(t, 60, wp.Minute)
}

func TestBuild_OrderIndependentIDs(t *testing.T) {
	a := Build([]models.TrackedEntity{{LogicalID: "x"}, {LogicalID: "y"}}, Options{MinutesPerEntity: 3})
	b := Build([]models.TrackedEntity{{LogicalID: "y"}, {LogicalID: "x"}}, Options{MinutesPerEntity: 3})

	for _, wp := range a.Watchpoints {
		other, ok := b.Get(wp.ID)
		require.True(t, ok)
		assert.Equal(t, wp, other)
	}
}

func TestBuild_Ceiling(t *testing.T) {
	s := Build(entities(7), Options{MinutesPerEntity: 60, MaxWatchpoints: 300})
	assert.LessOrEqual(t, s.Len(), 300)
	assert.Equal(t, 42, s.MinutesPerEntity)
	assert.Equal(t, 7*42, s.Len())
}

func TestBuild_MoreEntitiesThanCeiling(t *testing.T) {
	tests := []struct {
		name      string
		entities  int
		max       int
		tracked   int
		untracked int
	}{
		{"one over", 301, 300, 300, 1},
		{"exactly at ceiling", 300, 300, 300, 0},
		{"far over", 50, 10, 10, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Build(entities(tt.entities), Options{MaxWatchpoints: tt.max})
			assert.Equal(t, 1, s.MinutesPerEntity)
			assert.Equal(t, tt.tracked, s.Len())
			assert.Len(t, s.Skipped, tt.untracked)

			tracked := make(map[string]bool)
			for _, wp := range s.Watchpoints {
				tracked[wp.EntityID] = true
			}
			for _, e := range s.Skipped {
				assert.False(t, tracked[e.LogicalID], "%s is both tracked and skipped", e.LogicalID)
			}
		})
	}
}

func TestBuild_SkipsUnresolved(t *testing.T) {
	s := Build([]models.TrackedEntity{{LogicalID: "a"}, {DisplayName: "pending"}, {LogicalID: "a"}}, Options{MinutesPerEntity: 2})
	assert.Equal(t, 2, s.Len())
	require.Len(t, s.Skipped, 1)
	assert.Equal(t, "pending", s.Skipped[0].DisplayName)
}

func TestPublishAndLookup(t *testing.T) {
	store := sharedstore.NewMemory()

	first := Build(entities(2), Options{MinutesPerEntity: 3})
	require.NoError(t, first.Publish(store))

	second := Build(entities(1), Options{MinutesPerEntity: 2})
	require.NoError(t, second.Publish(store))

	n, err := Count(store)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	wp, ok, err := Lookup(store, models.WatchpointID("ent_0", 2))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ent_0", wp.EntityID)
	assert.Equal(t, 2, wp.Minute)

	_, ok, err = Lookup(store, models.WatchpointID("ent_1", 1))
	require.NoError(t, err)
	assert.False(t, ok, "stale watchpoints are removed on republish")
}
