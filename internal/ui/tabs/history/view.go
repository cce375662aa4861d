package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/ui/components"
	"github.com/j-veylop/rewardgate/internal/ui/styles"
)

// View renders the history tab.
func (m *Model) View() string {
	entry := m.state.SelectedEntry()
	if entry == nil {
		return m.renderEmpty()
	}
	if m.errorMsg != "" {
		return m.renderError()
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(entry),
		m.renderHourly(entry),
		m.renderDaily(entry),
		m.renderCategories(),
	)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderError() string {
	content := fmt.Sprintf("%s %s", styles.ErrorTextStyle.Render("Error:"), m.errorMsg)
	return styles.DocStyle.Width(m.width).Height(m.height).Render(content)
}

func (m *Model) renderEmpty() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("History"),
		styles.SubTitleStyle.Render("No entity selected."),
		styles.HelpStyle.Render("Pick one on the Today tab with j/k."),
		"",
		m.renderCategories(),
	)
	return styles.DocStyle.Width(m.width).Height(m.height).Render(content)
}

func (m *Model) renderHeader(e *models.LedgerEntry) string {
	title := styles.TitleStyle.Render("History: " + e.DisplayName)

	rangeStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)
	rangeIndicator := rangeStyle.Render(fmt.Sprintf("[t] %d days", dayRanges[m.rangeIdx]))

	header := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", rangeIndicator)

	subtitle := styles.HelpStyle.Render(fmt.Sprintf("%s · total %s · %d pts",
		styles.GetCategoryStyle(string(e.Category)).Render(e.Category.String()),
		components.FormatDuration(e.TotalSeconds),
		e.TotalPoints,
	))

	return lipgloss.JoinVertical(lipgloss.Left, header, subtitle, "")
}

func (m *Model) renderHourly(e *models.LedgerEntry) string {
	cardWidth := max(m.width-6, 40)

	rows := []string{styles.CardTitleStyle.Render("Today by hour"), ""}

	chart := components.RenderHourlyChart(e.HourlySeconds, max(cardWidth-12, 30), 8, "minutes per hour")
	for line := range strings.SplitSeq(chart, "\n") {
		rows = append(rows, "  "+line)
	}

	hourly := make([]float64, len(e.HourlySeconds))
	for i, s := range e.HourlySeconds {
		hourly[i] = float64(s)
	}
	rows = append(rows, "", "  "+components.RenderHourlyHeatmap(hourly), "")

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderDaily(e *models.LedgerEntry) string {
	cardWidth := max(m.width-6, 40)

	days := e.DailyHistory
	if m.loadedFor == e.LogicalID {
		days = m.days
	}

	rows := []string{styles.CardTitleStyle.Render("Closed days (minutes)"), ""}
	if m.loading && len(days) == 0 {
		rows = append(rows, "  "+m.spinner.ViewWithLabel())
	} else {
		chart := components.RenderDailyHistory(days, dayRanges[m.rangeIdx], max(cardWidth-8, 30))
		for line := range strings.SplitSeq(chart, "\n") {
			rows = append(rows, "  "+line)
		}
		if len(days) > 1 {
			values := make([]float64, len(days))
			for i, d := range days {
				values[i] = float64(d.Seconds)
			}
			rows = append(rows, "", "  trend "+components.RenderSparkline(values, min(len(values), cardWidth-16)))
		}
	}
	rows = append(rows, "")

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderCategories plots today's learning and reward minutes across all
// tracked apps.
func (m *Model) renderCategories() string {
	cardWidth := max(m.width-6, 40)

	rows := []string{styles.CardTitleStyle.Render("Learning vs reward today"), ""}

	learning, reward := components.CategorySeries(m.state.GetEntries())
	var total float64
	for h := range learning {
		total += learning[h] + reward[h]
	}
	if total == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No usage recorded today"))
	} else {
		chart := components.RenderCategoryChart(learning, reward, max(cardWidth-12, 30), 8, "minutes per hour")
		for line := range strings.SplitSeq(chart, "\n") {
			rows = append(rows, "  "+line)
		}
		rows = append(rows, "", "  "+components.RenderLegend([]components.LegendItem{
			{Label: "learning", Color: styles.Learning},
			{Label: "reward", Color: styles.Reward},
		}))
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
