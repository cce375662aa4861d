package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/rewardgate/internal/ui/styles"
)

// LoadingSpinner is a dot spinner followed by a short status label, shown
// while a tab waits for the ledger or for history rows.
type LoadingSpinner struct {
	model spinner.Model
	label string
}

// NewSpinner returns a spinner showing label.
func NewSpinner(label string) LoadingSpinner {
	m := spinner.New()
	m.Spinner = spinner.Dot
	m.Style = lipgloss.NewStyle().Foreground(styles.Primary)
	return LoadingSpinner{model: m, label: label}
}

// Init starts the animation.
func (l LoadingSpinner) Init() tea.Cmd {
	return l.model.Tick
}

// Update advances the animation on its own tick messages.
func (l LoadingSpinner) Update(msg tea.Msg) (LoadingSpinner, tea.Cmd) {
	var cmd tea.Cmd
	l.model, cmd = l.model.Update(msg)
	return l, cmd
}

// SetLabel changes what is being waited on.
func (l *LoadingSpinner) SetLabel(label string) {
	l.label = label
}

// ViewWithLabel renders the current frame and the label.
func (l LoadingSpinner) ViewWithLabel() string {
	return l.model.View() + " " + styles.HelpDescStyle.Render(l.label)
}

// RenderSpinnerCentered centers the labelled spinner in a width x height box.
func RenderSpinnerCentered(s LoadingSpinner, width, height int) string {
	return styles.CenterBoth(s.ViewWithLabel(), width, height)
}
