package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// WatchpointIncrement is the usage represented by a single threshold fire.
const WatchpointIncrement = 60 * time.Second

// IncrementSeconds is WatchpointIncrement expressed in whole seconds.
const IncrementSeconds int64 = int64(WatchpointIncrement / time.Second)

// Watchpoint is a (entity, minute-threshold) pair registered with the
// monitoring facility. Watchpoints are built once and never mutated.
type Watchpoint struct {
	ID       string
	EntityID string
	Minute   int
}

// Threshold returns the cumulative usage at which the watchpoint fires.
func (w Watchpoint) Threshold() time.Duration {
	return time.Duration(w.Minute) * time.Minute
}

// WatchpointID derives the watchpoint identity from the entity's logical ID
// and the minute number. It does not depend on the entity's position in any
// list, so reordering entities never relabels a watchpoint.
func WatchpointID(logicalID string, minute int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", logicalID, minute)))
	return "wp_" + hex.EncodeToString(sum[:8])
}

// ThresholdFire is a watchpoint fire relayed from the monitoring helper to
// the interactive process through the shared counter store.
type ThresholdFire struct {
	At       time.Time
	EventID  string
	EntityID string
	Seq      int64
}
