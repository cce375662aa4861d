package history

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/rewardgate/internal/app"
	"github.com/j-veylop/rewardgate/internal/models"
)

func stateWithEntry() *app.State {
	state := app.NewState()
	state.SetLoading("initial", false)
	e := &models.LedgerEntry{
		LogicalID:    "ent_words",
		DisplayName:  "Words",
		Category:     models.CategoryLearning,
		TodaySeconds: 600,
		TotalSeconds: 4200,
		TotalPoints:  700,
	}
	e.HourlySeconds[9] = 600
	state.SetEntries([]*models.LedgerEntry{e})
	return state
}

// historyMsg runs cmd and returns the history load it carries, looking
// inside batches.
func historyMsg(cmd tea.Cmd) (app.HistoryLoadedMsg, bool) {
	switch msg := cmd().(type) {
	case app.HistoryLoadedMsg:
		return msg, true
	case tea.BatchMsg:
		for _, c := range msg {
			if c == nil {
				continue
			}
			if loaded, ok := c().(app.HistoryLoadedMsg); ok {
				return loaded, true
			}
		}
	}
	return app.HistoryLoadedMsg{}, false
}

func TestNew(t *testing.T) {
	m := New(app.NewState(), nil)
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Init() != nil {
		t.Error("Init without a selection should not load")
	}
}

func TestModel_InitLoadsSelected(t *testing.T) {
	m := New(stateWithEntry(), nil)
	cmd := m.Init()
	if cmd == nil {
		t.Fatal("Init should load history for the selected entity")
	}
	msg, ok := historyMsg(cmd)
	if !ok || msg.LogicalID != "ent_words" {
		t.Errorf("unexpected message %#v", msg)
	}
	if !m.loading {
		t.Error("loading should be set")
	}
}

func TestModel_ViewEmpty(t *testing.T) {
	m := New(app.NewState(), nil)
	m.SetSize(80, 24)
	if !strings.Contains(m.View(), "No entity selected") {
		t.Error("View should explain how to pick an entity")
	}
}

func TestModel_ViewWithData(t *testing.T) {
	m := New(stateWithEntry(), nil)
	m.SetSize(100, 60)

	m.Update(app.HistoryLoadedMsg{
		LogicalID: "ent_words",
		Days: []models.DailyUsage{
			{Date: "2026-10-17", Seconds: 1800},
			{Date: "2026-10-18", Seconds: 2400},
		},
	})

	view := m.View()
	for _, want := range []string{"History: Words", "Today by hour", "2026-10-18", "7 days", "trend", "Learning vs reward today", "learning", "reward"} {
		if !strings.Contains(view, want) {
			t.Errorf("View should contain %q", want)
		}
	}
	if m.loadedFor != "ent_words" || len(m.days) != 2 {
		t.Errorf("history not stored: %q %d", m.loadedFor, len(m.days))
	}
}

func TestModel_ViewLoadingShowsSpinnerLabel(t *testing.T) {
	m := New(stateWithEntry(), nil)
	m.SetSize(100, 60)
	m.Init()

	if !strings.Contains(m.View(), "Loading Words history...") {
		t.Error("View should show the labelled spinner while history loads")
	}
}

func TestModel_ViewEmptyShowsCategories(t *testing.T) {
	state := stateWithEntry()
	state.SetSelectedIndex(-1)
	m := New(state, nil)
	m.SetSize(100, 60)

	view := m.View()
	if !strings.Contains(view, "No entity selected") {
		t.Error("View should explain how to pick an entity")
	}
	if !strings.Contains(view, "Learning vs reward today") {
		t.Error("empty history should still chart today's categories")
	}
}

func TestModel_LoadError(t *testing.T) {
	m := New(stateWithEntry(), nil)
	m.SetSize(80, 24)

	_, cmd := m.Update(app.HistoryLoadedMsg{LogicalID: "ent_words", Error: errors.New("db locked")})
	if cmd == nil {
		t.Fatal("error should raise a notification")
	}
	if msg, ok := cmd().(app.AddNotificationMsg); !ok || msg.Type != app.NotificationError {
		t.Errorf("unexpected message %#v", msg)
	}
	if !strings.Contains(m.View(), "db locked") {
		t.Error("View should show the error")
	}
}

func TestModel_SelectionChangeReloads(t *testing.T) {
	m := New(stateWithEntry(), nil)
	m.Update(app.HistoryLoadedMsg{LogicalID: "ent_words"})

	_, cmd := m.Update(app.SelectedEntityChangedMsg{Index: 0, LogicalID: "ent_words"})
	if cmd != nil {
		t.Error("same entity should not reload")
	}

	_, cmd = m.Update(app.SelectedEntityChangedMsg{Index: 1, LogicalID: "ent_other"})
	if cmd == nil {
		t.Error("different entity should reload")
	}
}

func TestModel_ToggleRange(t *testing.T) {
	m := New(stateWithEntry(), nil)
	for i := 1; i <= len(dayRanges); i++ {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
		if m.rangeIdx != i%len(dayRanges) {
			t.Errorf("rangeIdx = %d, want %d", m.rangeIdx, i%len(dayRanges))
		}
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState(), nil)
	if len(m.ShortHelp()) == 0 {
		t.Error("ShortHelp empty")
	}
	if len(m.FullHelp()) == 0 {
		t.Error("FullHelp empty")
	}
}
