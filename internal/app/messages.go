package app

import (
	"time"

	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/services"
)

// TickMsg is sent periodically to trigger state refresh.
type TickMsg struct {
	Time time.Time
}

// StartLoadingMsg signals that a resource is starting to load.
type StartLoadingMsg struct {
	Resource string
}

// StopLoadingMsg signals that a resource has finished loading.
type StopLoadingMsg struct {
	Resource string
}

// LedgerLoadedMsg carries a full refresh of the ledger view.
type LedgerLoadedMsg struct {
	Entries     []*models.LedgerEntry
	Goal        services.GoalProgress
	Diagnostics services.Diagnostics
}

// SyncResultMsg carries the result of a user-requested sync.
type SyncResultMsg struct {
	Event services.SyncedEvent
}

// ResetTodayResultMsg carries the result of a manual daily reset.
type ResetTodayResultMsg struct {
	Error error
}

// HistoryLoadedMsg carries the closed days of one entity.
type HistoryLoadedMsg struct {
	LogicalID string
	Days      []models.DailyUsage
	Error     error
}

// RefreshMsg requests a refresh of data.
type RefreshMsg struct {
	Resource string // "all", "ledger", "sync"
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ClearExpiredNotificationsMsg triggers clearing of expired notifications.
type ClearExpiredNotificationsMsg struct{}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}

// SelectedEntityChangedMsg signals that the selected entity changed.
type SelectedEntityChangedMsg struct {
	Index     int
	LogicalID string
}
