package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/rewardgate/internal/services"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = 2 * time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for brief notifications.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for important notifications.
	LongNotificationDuration = 10 * time.Second
)

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// loadLedgerCmd reads entries, goal progress and diagnostics in one go.
func loadLedgerCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		entries, goal, diag := mgr.InitialState()
		return LedgerLoadedMsg{
			Entries:     entries,
			Goal:        goal,
			Diagnostics: diag,
		}
	}
}

// syncCmd drains fires and reconciles on demand.
func syncCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		return SyncResultMsg{Event: mgr.Sync("manual")}
	}
}

func resetTodayCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		return ResetTodayResultMsg{Error: mgr.ResetToday()}
	}
}

// LoadHistoryCmd loads the closed days of one entity.
func LoadHistoryCmd(mgr *services.Manager, logicalID string) tea.Cmd {
	return func() tea.Msg {
		if mgr == nil {
			return HistoryLoadedMsg{LogicalID: logicalID}
		}
		days, err := mgr.History(logicalID)
		return HistoryLoadedMsg{LogicalID: logicalID, Days: days, Error: err}
	}
}

func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch, _ := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

func notifyCmd(t NotificationType, message string, d time.Duration) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{Type: t, Message: message, Duration: d}
	}
}

func notifySuccessCmd(message string) tea.Cmd {
	return notifyCmd(NotificationSuccess, message, DefaultNotificationDuration)
}

func notifyErrorCmd(message string) tea.Cmd {
	return notifyCmd(NotificationError, message, LongNotificationDuration)
}

func notifyInfoCmd(message string) tea.Cmd {
	return notifyCmd(NotificationInfo, message, QuickNotificationDuration)
}
