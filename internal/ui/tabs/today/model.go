// Package today provides the main tab: per-entity usage for the current day
// and progress toward the learning goal.
package today

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/rewardgate/internal/app"
	"github.com/j-veylop/rewardgate/internal/ui/components"
)

type keyMap struct {
	NextEntity  key.Binding
	PrevEntity  key.Binding
	FirstEntity key.Binding
	LastEntity  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextEntity: key.NewBinding(
			key.WithKeys("n", "j", "down"),
			key.WithHelp("j/n", "next entity"),
		),
		PrevEntity: key.NewBinding(
			key.WithKeys("p", "k", "up"),
			key.WithHelp("k/p", "prev entity"),
		),
		FirstEntity: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "first entity"),
		),
		LastEntity: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "last entity"),
		),
	}
}

// Model represents the today tab state.
type Model struct {
	state    *app.State
	spinner  components.LoadingSpinner
	keys     keyMap
	viewport viewport.Model
	width    int
	height   int
}

// New creates a new today tab.
func New(state *app.State) *Model {
	return &Model{
		state:    state,
		spinner:  components.NewSpinner("Loading ledger..."),
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))

	case spinner.TickMsg:
		if m.state.IsInitialLoading() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	count := m.state.GetEntryCount()
	idx := m.state.GetSelectedIndex()

	switch {
	case key.Matches(msg, m.keys.NextEntity):
		if count == 0 {
			return nil
		}
		idx = (idx + 1) % count
	case key.Matches(msg, m.keys.PrevEntity):
		if count == 0 {
			return nil
		}
		idx = (idx - 1 + count) % count
	case key.Matches(msg, m.keys.FirstEntity):
		idx = 0
	case key.Matches(msg, m.keys.LastEntity):
		idx = max(count-1, 0)
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}

	return m.selectEntry(idx)
}

func (m *Model) selectEntry(idx int) tea.Cmd {
	m.state.SetSelectedIndex(idx)
	entry := m.state.SelectedEntry()
	if entry == nil {
		return nil
	}
	id := entry.LogicalID
	return func() tea.Msg {
		return app.SelectedEntityChangedMsg{Index: idx, LogicalID: id}
	}
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.NextEntity, m.keys.PrevEntity}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.NextEntity, m.keys.PrevEntity},
		{m.keys.FirstEntity, m.keys.LastEntity},
	}
}
