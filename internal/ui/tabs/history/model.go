// Package history provides the history tab: today's hourly curve and the
// closed days of the selected entity.
package history

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/rewardgate/internal/app"
	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/services"
	"github.com/j-veylop/rewardgate/internal/ui/components"
)

// Number of closed days the bar chart shows per range.
var dayRanges = []int{7, 30, 90}

type keyMap struct {
	ToggleRange key.Binding
	Refresh     key.Binding
	Up          key.Binding
	Down        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		ToggleRange: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle day range"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reload history"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// Model represents the history tab state.
type Model struct {
	state    *app.State
	services *services.Manager
	keys     keyMap
	viewport viewport.Model
	spinner  components.LoadingSpinner
	width    int
	height   int

	rangeIdx  int
	loadedFor string
	days      []models.DailyUsage
	loading   bool
	errorMsg  string
}

// New creates a new history model.
func New(state *app.State, svc *services.Manager) *Model {
	return &Model{
		state:    state,
		services: svc,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
		spinner:  components.NewSpinner("Loading history..."),
	}
}

// Init initializes the history tab.
func (m *Model) Init() tea.Cmd {
	return m.reload()
}

// reload fetches history for the selected entity; nil when nothing is selected.
func (m *Model) reload() tea.Cmd {
	entry := m.state.SelectedEntry()
	if entry == nil {
		return nil
	}
	m.loading = true
	m.spinner.SetLabel(fmt.Sprintf("Loading %s history...", entry.DisplayName))
	return tea.Batch(app.LoadHistoryCmd(m.services, entry.LogicalID), m.spinner.Init())
}

// Update handles messages for the history tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.HistoryLoadedMsg:
		return m, m.handleLoaded(msg)

	case app.SelectedEntityChangedMsg:
		if msg.LogicalID != m.loadedFor {
			return m, m.reload()
		}

	case app.LedgerLoadedMsg, app.TabSwitchMsg:
		if entry := m.state.SelectedEntry(); entry != nil && entry.LogicalID != m.loadedFor && !m.loading {
			return m, m.reload()
		}

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case tea.KeyMsg:
		return m, m.handleKeyMsg(msg)
	}

	return m, nil
}

func (m *Model) handleLoaded(msg app.HistoryLoadedMsg) tea.Cmd {
	m.loading = false
	if msg.Error != nil {
		m.errorMsg = msg.Error.Error()
		return func() tea.Msg {
			return app.AddNotificationMsg{
				Type:     app.NotificationError,
				Message:  fmt.Sprintf("History error: %s", m.errorMsg),
				Duration: app.LongNotificationDuration,
			}
		}
	}
	m.errorMsg = ""
	m.loadedFor = msg.LogicalID
	m.days = msg.Days
	return nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.ToggleRange):
		m.rangeIdx = (m.rangeIdx + 1) % len(dayRanges)
		return nil
	case key.Matches(msg, m.keys.Refresh):
		return m.reload()
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
}

// SetSize sets the available size for the history tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.ToggleRange, m.keys.Refresh}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.ToggleRange, m.keys.Refresh},
		{m.keys.Up, m.keys.Down},
	}
}
