// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"strconv"
	"sync"
	"time"

	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/services"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// LoadingState tracks loading states for different resources.
type LoadingState struct {
	Initial bool
	Ledger  bool
	Sync    bool
}

// State is the data shared by every tab.
type State struct {
	mu sync.RWMutex

	Entries       []*models.LedgerEntry
	Goal          services.GoalProgress
	Diagnostics   services.Diagnostics
	SelectedIndex int
	LastSync      *services.SyncedEvent

	Loading LoadingState

	LastUpdated time.Time

	notifications   []Notification
	notificationSeq int
}

// NewState creates an empty state that is still loading.
func NewState() *State {
	return &State{
		Entries:       make([]*models.LedgerEntry, 0),
		notifications: make([]Notification, 0),
		Loading: LoadingState{
			Initial: true,
		},
	}
}

// SetLoading sets the loading state for a specific resource.
func (s *State) SetLoading(resource string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch resource {
	case "initial":
		s.Loading.Initial = loading
	case "ledger":
		s.Loading.Ledger = loading
	case "sync":
		s.Loading.Sync = loading
	}
}

// AnyLoading returns true if any resource is currently loading.
func (s *State) AnyLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.Loading.Initial || s.Loading.Ledger || s.Loading.Sync
}

// IsInitialLoading returns true if initial data is still loading.
func (s *State) IsInitialLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Loading.Initial
}

// SetEntries replaces the ledger entries and keeps the selection in range.
func (s *State) SetEntries(entries []*models.LedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Entries = entries
	s.LastUpdated = time.Now()
	if s.SelectedIndex >= len(entries) {
		s.SelectedIndex = max(len(entries)-1, 0)
	}
}

// GetEntries returns a copy of the entries slice.
func (s *State) GetEntries() []*models.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.LedgerEntry, len(s.Entries))
	copy(out, s.Entries)
	return out
}

// GetEntryCount returns the number of tracked entries.
func (s *State) GetEntryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Entries)
}

// SelectedEntry returns the entry under the cursor, or nil.
func (s *State) SelectedEntry() *models.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.SelectedIndex < 0 || s.SelectedIndex >= len(s.Entries) {
		return nil
	}
	return s.Entries[s.SelectedIndex]
}

// GetSelectedIndex returns the currently selected entry index.
func (s *State) GetSelectedIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SelectedIndex
}

// SetSelectedIndex updates the selected entry index.
func (s *State) SetSelectedIndex(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SelectedIndex = idx
}

// SetGoal updates the learning goal progress.
func (s *State) SetGoal(p services.GoalProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Goal = p
}

// GetGoal returns the learning goal progress.
func (s *State) GetGoal() services.GoalProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Goal
}

// SetDiagnostics updates the diagnostics snapshot.
func (s *State) SetDiagnostics(d services.Diagnostics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Diagnostics = d
}

// GetDiagnostics returns the diagnostics snapshot.
func (s *State) GetDiagnostics() services.Diagnostics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Diagnostics
}

// SetLastSync records the latest sync result.
func (s *State) SetLastSync(ev services.SyncedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastSync = &ev
}

// GetLastSync returns the latest sync result, or nil.
func (s *State) GetLastSync() *services.SyncedEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastSync
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := time.Now().Format("20060102150405") + "-" + strconv.Itoa(s.notificationSeq)

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})

	// Keep only the last 10 notifications
	if len(s.notifications) > 10 {
		s.notifications = s.notifications[len(s.notifications)-10:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	s.notifications = active
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

// GetLastUpdated returns the last time the entries changed.
func (s *State) GetLastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastUpdated
}

// TimeSinceUpdate returns the duration since the last update.
func (s *State) TimeSinceUpdate() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LastUpdated.IsZero() {
		return 0
	}
	return time.Since(s.LastUpdated)
}
