// Package monitor implements the short-lived monitoring helper. The helper
// owns the usage counters in the shared store: it advances them when a
// watchpoint fires, relays the fire to the interactive process and raises
// the cross-process signal. It never touches the ledger.
package monitor

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/j-veylop/rewardgate/internal/logger"
	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/services/phantom"
	"github.com/j-veylop/rewardgate/internal/services/schedule"
	"github.com/j-veylop/rewardgate/internal/services/snapshot"
	"github.com/j-veylop/rewardgate/internal/sharedstore"
	"github.com/j-veylop/rewardgate/internal/signal"
)

// ErrUnknownWatchpoint is returned by Fire for IDs missing from the
// published schedule.
var ErrUnknownWatchpoint = errors.New("monitor: unknown watchpoint")

// FireResult describes what one fire did to the counters.
type FireResult struct {
	Watchpoint models.Watchpoint
	Seq        int64
	Today      int64
	Delta      int64
	Signaled   bool
}

// Status is a point-in-time view of the helper's shared state.
type Status struct {
	ActivatedAt  time.Time
	ActivationID string
	Watchpoints  int
	FireSeq      int64
	SignalsFired int64
	UnknownFires int64
	Counters     []models.UsageCounterSnapshot
}

// Helper performs the monitoring extension's side of the protocol.
type Helper struct {
	store      sharedstore.Store
	phantom    *phantom.Suppressor
	clock      clock.Clock
	signalPath string
	reportPath string
}

// Options configures a Helper.
type Options struct {
	SignalPath    string
	ReportPath    string
	PhantomWindow time.Duration
	Clock         clock.Clock
}

// New creates a helper over store.
func New(store sharedstore.Store, opts Options) *Helper {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Helper{
		store:      store,
		phantom:    phantom.New(store, clk, opts.PhantomWindow),
		clock:      clk,
		signalPath: opts.SignalPath,
		reportPath: opts.ReportPath,
	}
}

// Start records a monitoring activation. Fires arriving within the phantom
// window after it are ignored by the interactive process.
func (h *Helper) Start() (string, error) {
	id, err := h.phantom.Activate()
	if err != nil {
		return "", err
	}
	logger.Info("monitoring started", "activation", id, "phantom_window", h.phantom.Window())
	return id, nil
}

// Fire handles one watchpoint crossing. Counters are assigned, not added:
// today becomes max(today, threshold), so a repeated fire is harmless.
func (h *Helper) Fire(watchpointID string) (FireResult, error) {
	now := h.clock.Now()
	day := models.Day(now)

	var res FireResult
	unknown := false
	err := h.store.Update(func(tx sharedstore.Tx) error {
		wp, ok, err := schedule.Lookup(tx, watchpointID)
		if err != nil {
			return fmt.Errorf("failed to look up watchpoint: %w", err)
		}
		if !ok {
			unknown = true
			return incr(tx, sharedstore.KeyUnknownFires)
		}
		res.Watchpoint = wp

		snap, _, err := sharedstore.ReadCounters(tx, wp.EntityID)
		if err != nil {
			return err
		}
		if snap.Day != day {
			snap.TodaySeconds = 0
			snap.Day = day
		}

		threshold := int64(wp.Threshold() / time.Second)
		if threshold > snap.TodaySeconds {
			res.Delta = threshold - snap.TodaySeconds
			snap.TodaySeconds = threshold
			snap.TotalSeconds += res.Delta
		}
		snap.UpdatedAt = now
		res.Today = snap.TodaySeconds

		res.Seq, err = sharedstore.AppendFire(tx, models.ThresholdFire{
			EventID:  wp.ID,
			EntityID: wp.EntityID,
			At:       now,
		})
		if err != nil {
			return err
		}

		// Counters carry the seq of the newest fire they include.
		snap.FireSeq = res.Seq
		if err := sharedstore.WriteCounters(tx, snap); err != nil {
			return fmt.Errorf("failed to write counters: %w", err)
		}
		return incr(tx, sharedstore.KeySignalsFired)
	})
	if err != nil {
		return res, err
	}
	if unknown {
		logger.Warn("fire for unknown watchpoint", "watchpoint", watchpointID)
		return res, ErrUnknownWatchpoint
	}

	if err := signal.Raise(h.signalPath); err != nil {
		// The backstop pass still picks the counters up.
		logger.Warn("failed to raise signal", "error", err)
		return res, nil
	}
	res.Signaled = true
	return res, nil
}

// Report writes today's counters as a periodic usage report.
func (h *Helper) Report() (snapshot.ReportFile, error) {
	now := h.clock.Now()
	counters, err := h.counters()
	if err != nil {
		return snapshot.ReportFile{}, err
	}

	report := snapshot.ReportFile{GeneratedAt: now}
	for _, c := range counters {
		if c.Day != models.Day(now) {
			continue
		}
		report.Entries = append(report.Entries, models.ReportSnapshot{
			Timestamp:    now,
			EntityID:     c.EntityID,
			TodaySeconds: c.TodaySeconds,
		})
	}

	if err := snapshot.WriteReport(h.reportPath, report); err != nil {
		return report, err
	}
	return report, nil
}

// Status reads the helper's shared state.
func (h *Helper) Status() (Status, error) {
	var st Status

	at, ok, err := h.phantom.ActivatedAt()
	if err != nil {
		return st, err
	}
	if ok {
		st.ActivatedAt = at
	}
	if st.ActivationID, _, err = h.store.GetString(sharedstore.KeyActivationID); err != nil {
		return st, err
	}
	if st.Watchpoints, err = schedule.Count(h.store); err != nil {
		return st, err
	}
	if st.FireSeq, _, err = h.store.GetInt(sharedstore.KeyFireSeq); err != nil {
		return st, err
	}
	if st.SignalsFired, _, err = h.store.GetInt(sharedstore.KeySignalsFired); err != nil {
		return st, err
	}
	if st.UnknownFires, _, err = h.store.GetInt(sharedstore.KeyUnknownFires); err != nil {
		return st, err
	}

	st.Counters, err = h.counters()
	return st, err
}

func (h *Helper) counters() ([]models.UsageCounterSnapshot, error) {
	keys, err := h.store.Keys(sharedstore.UsagePrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list counters: %w", err)
	}

	seen := make(map[string]bool)
	var out []models.UsageCounterSnapshot
	for _, k := range keys {
		id, ok := sharedstore.EntityFromUsageKey(k)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true

		snap, ok, err := sharedstore.ReadCounters(h.store, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, snap)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

func incr(tx sharedstore.Tx, key string) error {
	n, _, err := tx.GetInt(key)
	if err != nil {
		return err
	}
	return tx.SetInt(key, n+1)
}
