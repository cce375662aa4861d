// Package phantom filters the spurious threshold fires the monitoring
// facility emits right after monitoring is (re)activated, before any real
// usage could have accumulated.
package phantom

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/j-veylop/rewardgate/internal/sharedstore"
)

// DefaultWindow is how long after activation fires are treated as phantom.
const DefaultWindow = 30 * time.Second

// Suppressor decides whether a fire is a phantom. The activation timestamp
// lives in the shared store so both processes agree on it.
type Suppressor struct {
	store  sharedstore.Store
	clock  clock.Clock
	window time.Duration
}

// New creates a suppressor. A zero window uses DefaultWindow.
func New(store sharedstore.Store, clk clock.Clock, window time.Duration) *Suppressor {
	if window <= 0 {
		window = DefaultWindow
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Suppressor{store: store, clock: clk, window: window}
}

// Window returns the suppression window.
func (s *Suppressor) Window() time.Duration {
	return s.window
}

// Activate records a monitoring activation at the current time and returns
// the new session identifier.
func (s *Suppressor) Activate() (string, error) {
	id := uuid.NewString()
	err := s.store.Update(func(tx sharedstore.Tx) error {
		if err := tx.SetFloat(sharedstore.KeyActivatedAt, sharedstore.ToUnix(s.clock.Now())); err != nil {
			return err
		}
		return tx.SetString(sharedstore.KeyActivationID, id)
	})
	if err != nil {
		return "", fmt.Errorf("failed to record activation: %w", err)
	}
	return id, nil
}

// ActivatedAt returns the last recorded activation time.
func (s *Suppressor) ActivatedAt() (time.Time, bool, error) {
	f, ok, err := s.store.GetFloat(sharedstore.KeyActivatedAt)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return sharedstore.FromUnix(f), true, nil
}

// Suppress reports whether a fire at fireAt falls inside the phantom window
// that opens at the last activation. Without a recorded activation nothing
// is suppressed; a store error is treated the same way so real usage is not
// lost.
func (s *Suppressor) Suppress(fireAt time.Time) bool {
	activated, ok, err := s.ActivatedAt()
	if err != nil || !ok {
		return false
	}
	if fireAt.Before(activated) {
		return false
	}
	return fireAt.Sub(activated) < s.window
}
