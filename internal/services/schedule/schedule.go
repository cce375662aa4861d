// Package schedule builds the static table of usage watchpoints registered
// with the monitoring facility.
package schedule

import (
	"fmt"
	"strconv"

	"github.com/j-veylop/rewardgate/internal/logger"
	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/sharedstore"
)

// Defaults for Options.
const (
	DefaultMinutesPerEntity = 60
	DefaultMaxWatchpoints   = 300
)

// Options controls how many watchpoints are built.
type Options struct {
	MinutesPerEntity int
	// MaxWatchpoints is the platform ceiling on registered watchpoints.
	MaxWatchpoints int
}

// Schedule is an immutable watchpoint table.
type Schedule struct {
	Watchpoints      []models.Watchpoint
	MinutesPerEntity int
	// Skipped lists entities left out, either because they have no logical
	// ID yet or because the ceiling leaves no room for even one minute.
	Skipped []models.TrackedEntity

	byID map[string]models.Watchpoint
}

// Build creates a schedule covering the first MinutesPerEntity minutes of
// every resolved entity. When the total would exceed MaxWatchpoints, minutes
// per entity shrink uniformly.
func Build(entities []models.TrackedEntity, opts Options) *Schedule {
	if opts.MinutesPerEntity <= 0 {
		opts.MinutesPerEntity = DefaultMinutesPerEntity
	}
	if opts.MaxWatchpoints <= 0 {
		opts.MaxWatchpoints = DefaultMaxWatchpoints
	}

	s := &Schedule{byID: make(map[string]models.Watchpoint)}

	resolved := make([]models.TrackedEntity, 0, len(entities))
	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		if !e.IsResolved() {
			s.Skipped = append(s.Skipped, e)
			continue
		}
		if seen[e.LogicalID] {
			continue
		}
		seen[e.LogicalID] = true
		resolved = append(resolved, e)
	}

	if len(resolved) > opts.MaxWatchpoints {
		overflow := resolved[opts.MaxWatchpoints:]
		logger.Warn("watchpoint ceiling reached, entities left untracked",
			"tracked", opts.MaxWatchpoints, "untracked", len(overflow))
		s.Skipped = append(s.Skipped, overflow...)
		resolved = resolved[:opts.MaxWatchpoints]
	}

	minutes := opts.MinutesPerEntity
	if len(resolved) > 0 && len(resolved)*minutes > opts.MaxWatchpoints {
		minutes = max(opts.MaxWatchpoints/len(resolved), 1)
	}
	s.MinutesPerEntity = minutes

	for _, e := range resolved {
		for m := 1; m <= minutes; m++ {
			wp := models.Watchpoint{
				ID:       models.WatchpointID(e.LogicalID, m),
				EntityID: e.LogicalID,
				Minute:   m,
			}
			s.Watchpoints = append(s.Watchpoints, wp)
			s.byID[wp.ID] = wp
		}
	}

	return s
}

// Len returns the number of watchpoints.
func (s *Schedule) Len() int {
	return len(s.Watchpoints)
}

// Get returns a watchpoint by ID.
func (s *Schedule) Get(id string) (models.Watchpoint, bool) {
	wp, ok := s.byID[id]
	return wp, ok
}

// Publish replaces the schedule in the shared store in one transaction.
func (s *Schedule) Publish(store sharedstore.Store) error {
	err := store.Update(func(tx sharedstore.Tx) error {
		keys, err := tx.Keys(sharedstore.SchedulePrefix())
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := tx.Delete(k); err != nil {
				return err
			}
		}

		for _, wp := range s.Watchpoints {
			if err := tx.SetString(sharedstore.ScheduleEntityKey(wp.ID), wp.EntityID); err != nil {
				return err
			}
			if err := tx.SetInt(sharedstore.ScheduleMinuteKey(wp.ID), int64(wp.Minute)); err != nil {
				return err
			}
		}
		return tx.SetInt(sharedstore.KeyScheduleCount, int64(len(s.Watchpoints)))
	})
	if err != nil {
		return fmt.Errorf("failed to publish schedule: %w", err)
	}
	return nil
}

// Lookup reads one published watchpoint from the shared store.
func Lookup(r sharedstore.Reader, id string) (models.Watchpoint, bool, error) {
	entity, ok, err := r.GetString(sharedstore.ScheduleEntityKey(id))
	if err != nil || !ok {
		return models.Watchpoint{}, false, err
	}
	minute, ok, err := r.GetInt(sharedstore.ScheduleMinuteKey(id))
	if err != nil {
		return models.Watchpoint{}, false, err
	}
	if !ok {
		return models.Watchpoint{}, false, fmt.Errorf("watchpoint %s has no minute", id)
	}
	return models.Watchpoint{ID: id, EntityID: entity, Minute: int(minute)}, true, nil
}

// Count returns the number of published watchpoints.
func Count(r sharedstore.Reader) (int, error) {
	n, _, err := r.GetInt(sharedstore.KeyScheduleCount)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// String describes the schedule for logs.
func (s *Schedule) String() string {
	return strconv.Itoa(s.Len()) + " watchpoints, " + strconv.Itoa(s.MinutesPerEntity) + " min/entity"
}
