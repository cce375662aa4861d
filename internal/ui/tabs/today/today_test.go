package today

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/rewardgate/internal/app"
	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/services"
)

func loadedState() *app.State {
	state := app.NewState()
	state.SetLoading("initial", false)
	state.SetEntries([]*models.LedgerEntry{
		{LogicalID: "ent_words", DisplayName: "Words", Category: models.CategoryLearning, TodaySeconds: 900, TodayPoints: 150},
		{LogicalID: "ent_arcade", DisplayName: "Arcade", Category: models.CategoryReward, TodaySeconds: 300},
	})
	state.SetGoal(services.GoalProgress{LearnedMinutes: 15, GoalMinutes: 30})
	return state
}

func TestNew(t *testing.T) {
	m := New(app.NewState())
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Init() == nil {
		t.Error("Init returned nil")
	}
}

func TestModel_ViewLoading(t *testing.T) {
	m := New(app.NewState())
	m.SetSize(80, 24)
	if !strings.Contains(m.View(), "Loading ledger") {
		t.Error("View should show the spinner while loading")
	}
}

func TestModel_ViewEmpty(t *testing.T) {
	state := app.NewState()
	state.SetLoading("initial", false)
	m := New(state)
	m.SetSize(80, 40)

	if !strings.Contains(m.View(), "Nothing tracked yet") {
		t.Error("View should show the empty hint")
	}
}

func TestModel_ViewEntries(t *testing.T) {
	m := New(loadedState())
	m.SetSize(100, 40)

	view := m.View()
	for _, want := range []string{"Words", "Arcade", "15/30 min", "REWARDS LOCKED", "150 pts"} {
		if !strings.Contains(view, want) {
			t.Errorf("View should contain %q", want)
		}
	}
}

func TestModel_ViewUnlocked(t *testing.T) {
	state := loadedState()
	state.SetGoal(services.GoalProgress{LearnedMinutes: 30, GoalMinutes: 30, Unlocked: true})
	m := New(state)
	m.SetSize(100, 40)

	if !strings.Contains(m.View(), "REWARDS UNLOCKED") {
		t.Error("View should show the unlocked badge")
	}
}

func TestModel_ViewLockedListsRewards(t *testing.T) {
	m := New(loadedState())
	m.SetSize(100, 40)

	if !strings.Contains(m.View(), "Locked until goal: Arcade") {
		t.Error("View should list the reward apps held back by the goal")
	}

	state := loadedState()
	state.SetGoal(services.GoalProgress{LearnedMinutes: 30, GoalMinutes: 30, Unlocked: true})
	m = New(state)
	m.SetSize(100, 40)
	if strings.Contains(m.View(), "Locked until goal") {
		t.Error("View should not list locked apps once the goal is met")
	}
}

func TestModel_Selection(t *testing.T) {
	state := loadedState()
	m := New(state)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if state.GetSelectedIndex() != 1 {
		t.Fatalf("selected = %d, want 1", state.GetSelectedIndex())
	}
	if cmd == nil {
		t.Fatal("selection should emit a command")
	}
	msg, ok := cmd().(app.SelectedEntityChangedMsg)
	if !ok || msg.LogicalID != "ent_arcade" {
		t.Errorf("unexpected message %#v", msg)
	}

	// wraps around
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if state.GetSelectedIndex() != 0 {
		t.Errorf("selected = %d, want 0", state.GetSelectedIndex())
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	if state.GetSelectedIndex() != 1 {
		t.Errorf("selected = %d, want 1", state.GetSelectedIndex())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	if state.GetSelectedIndex() != 0 {
		t.Errorf("selected = %d, want 0", state.GetSelectedIndex())
	}
}

func TestModel_SelectionEmpty(t *testing.T) {
	m := New(app.NewState())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if cmd != nil && cmd() != nil {
		t.Error("no entries means no selection message")
	}
}

func TestScaleFor(t *testing.T) {
	if got := scaleFor(nil); got != 3600 {
		t.Errorf("scaleFor(nil) = %d", got)
	}
	entries := []*models.LedgerEntry{{TodaySeconds: 7200}}
	if got := scaleFor(entries); got != 7200 {
		t.Errorf("scaleFor = %d", got)
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState())
	if len(m.ShortHelp()) == 0 || len(m.FullHelp()) == 0 {
		t.Error("help should not be empty")
	}
}
