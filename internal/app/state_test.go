package app

import (
	"testing"
	"time"

	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/services"
)

func TestNewState(t *testing.T) {
	s := NewState()
	if s == nil {
		t.Fatal("NewState returned nil")
	}
	if len(s.Entries) != 0 {
		t.Error("Entries should be empty")
	}
	if s.Loading.Initial != true {
		t.Error("Initial loading should be true")
	}
}

func TestState_SetLoading(t *testing.T) {
	s := NewState()

	s.SetLoading("ledger", true)
	if !s.Loading.Ledger {
		t.Error("Ledger loading should be true")
	}
	if !s.AnyLoading() {
		t.Error("AnyLoading should be true")
	}

	s.SetLoading("ledger", false)
	// Initial is still true
	if !s.AnyLoading() {
		t.Error("AnyLoading should be true (Initial is true)")
	}

	s.SetLoading("initial", false)
	if s.AnyLoading() {
		t.Error("AnyLoading should be false")
	}
	if s.IsInitialLoading() {
		t.Error("IsInitialLoading should be false")
	}

	s.SetLoading("unknown", true)
	if s.AnyLoading() {
		t.Error("unknown resources should be ignored")
	}
}

func TestState_Entries(t *testing.T) {
	s := NewState()

	entries := []*models.LedgerEntry{
		{LogicalID: "ent_a", Category: models.CategoryLearning},
		{LogicalID: "ent_b", Category: models.CategoryReward},
		{LogicalID: "ent_c", Category: models.CategoryLearning},
	}
	s.SetEntries(entries)

	if s.GetEntryCount() != 3 {
		t.Errorf("GetEntryCount = %d, want 3", s.GetEntryCount())
	}
	if got := s.SelectedEntry(); got == nil || got.LogicalID != "ent_a" {
		t.Errorf("SelectedEntry = %v, want ent_a", got)
	}

	s.SetSelectedIndex(2)
	if s.GetSelectedIndex() != 2 {
		t.Errorf("GetSelectedIndex = %d, want 2", s.GetSelectedIndex())
	}

	// Shrinking the list clamps the selection.
	s.SetEntries(entries[:1])
	if s.GetSelectedIndex() != 0 {
		t.Errorf("selection not clamped, got %d", s.GetSelectedIndex())
	}

	got := s.GetEntries()
	got[0] = nil
	if s.SelectedEntry() == nil {
		t.Error("GetEntries should return a copy")
	}

	s.SetEntries(nil)
	if s.SelectedEntry() != nil {
		t.Error("SelectedEntry should be nil for an empty ledger")
	}
	if s.GetLastUpdated().IsZero() {
		t.Error("LastUpdated should be set")
	}
}

func TestState_Notifications(t *testing.T) {
	s := NewState()

	id := s.AddNotification(NotificationInfo, "test", time.Minute)
	if id == "" {
		t.Error("AddNotification returned empty ID")
	}

	notifs := s.GetNotifications()
	if len(notifs) != 1 {
		t.Errorf("GetNotifications len = %d, want 1", len(notifs))
	}
	if notifs[0].Message != "test" {
		t.Errorf("Notification message = %s, want test", notifs[0].Message)
	}

	s.RemoveNotification(id)
	if len(s.GetNotifications()) != 0 {
		t.Error("Notification should be removed")
	}
}

func TestState_ClearExpiredNotifications(t *testing.T) {
	s := NewState()

	// Expired
	s.notifications = append(s.notifications, Notification{
		ID:        "expired",
		CreatedAt: time.Now().Add(-2 * time.Minute),
		Duration:  time.Minute,
	})

	// Active
	s.notifications = append(s.notifications, Notification{
		ID:        "active",
		CreatedAt: time.Now(),
		Duration:  time.Minute,
	})

	s.ClearExpiredNotifications()

	notifs := s.GetNotifications()
	if len(notifs) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].ID != "active" {
		t.Errorf("Expected active notification, got %s", notifs[0].ID)
	}
}

func TestState_LoadingNotification(t *testing.T) {
	s := NewState()

	s.SetLoadingNotification("loading...")
	notifs := s.GetNotifications()
	if len(notifs) != 1 {
		t.Errorf("Expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].ID != LoadingNotificationID {
		t.Errorf("Expected ID %s, got %s", LoadingNotificationID, notifs[0].ID)
	}
	if notifs[0].Message != "loading..." {
		t.Errorf("Expected message loading..., got %s", notifs[0].Message)
	}

	// Update message
	s.SetLoadingNotification("still loading...")
	notifs = s.GetNotifications()
	if len(notifs) != 1 {
		t.Errorf("Expected 1 notification after update")
	}
	if notifs[0].Message != "still loading..." {
		t.Errorf("Expected message still loading..., got %s", notifs[0].Message)
	}

	s.ClearLoadingNotification()
	if len(s.GetNotifications()) != 0 {
		t.Error("Loading notification should be cleared")
	}
}

func TestState_GoalAndDiagnostics(t *testing.T) {
	s := NewState()

	s.SetGoal(services.GoalProgress{LearnedMinutes: 31, GoalMinutes: 30, Unlocked: true})
	if !s.GetGoal().Unlocked {
		t.Error("Goal should be unlocked")
	}

	s.SetDiagnostics(services.Diagnostics{SignalsFired: 3, SignalsReceived: 2})
	if d := s.GetDiagnostics(); d.SignalsFired != 3 || d.SignalsReceived != 2 {
		t.Errorf("Diagnostics = %+v", d)
	}

	if s.GetLastSync() != nil {
		t.Error("LastSync should start nil")
	}
	s.SetLastSync(services.SyncedEvent{})
	if s.GetLastSync() == nil {
		t.Error("LastSync should be set")
	}
}

func TestState_TimeSinceUpdate(t *testing.T) {
	s := NewState()
	s.SetEntries(nil)
	time.Sleep(time.Millisecond)
	if s.TimeSinceUpdate() == 0 {
		t.Error("TimeSinceUpdate should be > 0")
	}
}

func TestNotificationType_String(t *testing.T) {
	tests := []struct {
		t    NotificationType
		want string
	}{
		{NotificationSuccess, "success"},
		{NotificationError, "error"},
		{NotificationWarning, "warning"},
		{NotificationInfo, "info"},
		{NotificationType(999), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
