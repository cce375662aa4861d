package diagnostics

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/rewardgate/internal/services"
	"github.com/j-veylop/rewardgate/internal/services/reconcile"
	"github.com/j-veylop/rewardgate/internal/services/validator"
	"github.com/j-veylop/rewardgate/internal/ui/styles"
	"github.com/j-veylop/rewardgate/internal/version"
)

// View renders the diagnostics tab.
func (m *Model) View() string {
	d := m.state.GetDiagnostics()

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(),
		m.renderSignalsCard(d),
		m.renderValidatorCard(d),
		m.renderLastSyncCard(d),
		m.renderConfigCard(),
	)

	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Diagnostics")
	subtitle := styles.HelpStyle.Render(version.Info("rewardgate"))
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 80)
}

func (m *Model) renderSignalsCard(d services.Diagnostics) string {
	rows := []string{
		styles.CardTitleStyle.Render("Signals"),
		row("Fired (helper)", fmt.Sprintf("%d", d.SignalsFired)),
		row("Received", fmt.Sprintf("%d", d.SignalsReceived)),
		row("Unknown fires", fmt.Sprintf("%d", d.UnknownFires)),
		row("Watchpoints", fmt.Sprintf("%d", d.Watchpoints)),
		row("Unresolved", fmt.Sprintf("%d", d.UnresolvedEntries)),
		row("Dirty entries", fmt.Sprintf("%d", d.DirtyEntries)),
		row("Dropped events", fmt.Sprintf("%d", d.DroppedEvents)),
	}
	if d.SignalsFired > d.SignalsReceived {
		rows = append(rows, "", styles.WarningTextStyle.Render(
			fmt.Sprintf("%d signals not yet observed; the backstop timer will catch up", d.SignalsFired-d.SignalsReceived)))
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderValidatorCard(d services.Diagnostics) string {
	rows := []string{styles.CardTitleStyle.Render("Validator")}
	if len(d.Validator) == 0 {
		rows = append(rows, styles.HelpStyle.Render("No fires validated yet"))
	} else {
		reasons := make([]validator.Reason, 0, len(d.Validator))
		for r := range d.Validator {
			reasons = append(reasons, r)
		}
		sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
		cells := make([][2]string, 0, len(reasons))
		for _, r := range reasons {
			cells = append(cells, [2]string{string(r), fmt.Sprintf("%d", d.Validator[r])})
		}
		rows = append(rows, table("Reason", "Fires", cells))
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderLastSyncCard(d services.Diagnostics) string {
	rows := []string{styles.CardTitleStyle.Render("Last reconciliation")}
	if d.LastReconcile == nil {
		rows = append(rows, styles.HelpStyle.Render("No pass yet"))
	} else {
		r := d.LastReconcile
		rows = append(rows,
			row("Trigger", r.Trigger),
			row("At", r.At.Format("15:04:05")),
			row("Duration", r.Duration.String()),
			row("Persist errors", fmt.Sprintf("%d", r.PersistErrors)),
		)
		outcomes := make([]reconcile.Outcome, 0, len(r.Counts))
		for o := range r.Counts {
			outcomes = append(outcomes, o)
		}
		sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })
		for _, o := range outcomes {
			rows = append(rows, row("  "+string(o), fmt.Sprintf("%d", r.Counts[o])))
		}
	}
	if d.LastFires != nil {
		rows = append(rows, row("Fires read", fmt.Sprintf("%d", d.LastFires.Read)),
			row("Fires credited", fmt.Sprintf("%d", len(d.LastFires.Recorded))))
		if len(d.LastFires.Rejected) > 0 {
			tags := make([]string, 0, len(d.LastFires.Rejected))
			for tag := range d.LastFires.Rejected {
				tags = append(tags, tag)
			}
			sort.Strings(tags)
			cells := make([][2]string, 0, len(tags))
			for _, tag := range tags {
				cells = append(cells, [2]string{tag, fmt.Sprintf("%d", d.LastFires.Rejected[tag])})
			}
			rows = append(rows, "", table("Rejected", "Fires", cells))
		}
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderConfigCard() string {
	rows := []string{styles.CardTitleStyle.Render("Configuration")}
	if m.config == nil {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
	} else {
		c := m.config
		rows = append(rows,
			row("Database", c.DatabasePath),
			row("Shared store", c.SharedStorePath),
			row("Signal file", c.SignalPath),
			row("Entities file", c.EntitiesPath),
			row("Report file", c.ReportPath),
			row("Backstop", c.BackstopInterval.String()),
			row("Phantom window", c.PhantomWindow.String()),
			row("Cascade window", c.CascadeWindow.String()),
			row("Learning goal", fmt.Sprintf("%d min", c.LearningGoalMinutes)),
		)
	}
	rows = append(rows, row("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)))
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func row(label, value string) string {
	labelStyle := lipgloss.NewStyle().Width(18).Foreground(styles.TextMuted)
	valueStyle := lipgloss.NewStyle().Foreground(styles.TextPrimary)
	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

// table renders a two-column table with a header row.
func table(left, right string, cells [][2]string) string {
	const leftWidth, rightWidth = 20, 8
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.TableHeaderStyle.Width(leftWidth).Render(left),
		styles.TableHeaderStyle.Width(rightWidth).Align(lipgloss.Right).Render(right),
	)
	lines := []string{header}
	for _, c := range cells {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			styles.TableCellStyle.Width(leftWidth).Render(c[0]),
			styles.TableCellStyle.Width(rightWidth).Align(lipgloss.Right).Render(c[1]),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
