package today

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/ui/components"
	"github.com/j-veylop/rewardgate/internal/ui/styles"
)

// View renders the today tab.
func (m *Model) View() string {
	if m.state.IsInitialLoading() {
		return components.RenderSpinnerCentered(m.spinner, m.width, m.height)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(),
		m.renderGoal(),
		m.renderUsageList(),
	)

	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Today")
	subtitle := styles.HelpStyle.Render("Screen time credited since midnight")
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderGoal() string {
	cardWidth := max(m.width-6, 40)
	goal := m.state.GetGoal()

	badge := styles.LockedStyle.Render("REWARDS LOCKED")
	if goal.Unlocked {
		badge = styles.UnlockedStyle.Render("REWARDS UNLOCKED")
	}

	rows := []string{
		fmt.Sprintf("%s  %s", styles.CardTitleStyle.Render("Learning goal"), badge),
		components.GoalBar(goal.LearnedMinutes, goal.GoalMinutes, cardWidth-6),
	}
	if !goal.Unlocked {
		if names := rewardNames(m.state.GetEntries()); len(names) > 0 {
			rows = append(rows, "", styles.BlockedStyle.Render("Locked until goal: "+strings.Join(names, ", ")))
		}
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderUsageList() string {
	entries := m.state.GetEntries()
	cardWidth := max(m.width-6, 40)

	titleIcon := lipgloss.NewStyle().Foreground(styles.Primary).Render("◈")
	rows := []string{fmt.Sprintf("%s %s", titleIcon, styles.CardTitleStyle.Render("Tracked apps"))}

	if len(entries) == 0 {
		emptyIcon := lipgloss.NewStyle().Foreground(styles.Subtle).Render("○")
		rows = append(rows,
			fmt.Sprintf("  %s %s", emptyIcon, styles.HelpStyle.Render("Nothing tracked yet")),
			"",
			styles.InfoTextStyle.Render("  ╰─▶ Add entities to the entities file"),
		)
		return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	scale := scaleFor(entries)
	selected := m.state.GetSelectedIndex()
	for i, e := range entries {
		rows = append(rows, m.renderEntry(e, i == selected, scale, cardWidth-6))
	}

	rows = append(rows, "", m.renderTotals(entries))

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderEntry(e *models.LedgerEntry, selected bool, scale int64, width int) string {
	bar := components.UsageBar(e.DisplayName, string(e.Category), e.TodaySeconds, scale, width-14)
	points := lipgloss.NewStyle().Foreground(styles.TextSecondary).Width(10).Align(lipgloss.Right).
		Render(fmt.Sprintf("%d pts", e.TodayPoints))
	if selected {
		return styles.SelectedListItemStyle.String() + " " + bar + points
	}
	return styles.ListItemStyle.Render(bar + points)
}

func rewardNames(entries []*models.LedgerEntry) []string {
	var names []string
	for _, e := range entries {
		if e.Category != models.CategoryLearning {
			names = append(names, e.DisplayName)
		}
	}
	return names
}

func (m *Model) renderTotals(entries []*models.LedgerEntry) string {
	var learning, reward, points int64
	for _, e := range entries {
		if e.Category == models.CategoryLearning {
			learning += e.TodaySeconds
		} else {
			reward += e.TodaySeconds
		}
		points += e.TodayPoints
	}

	parts := []string{
		styles.LearningStyle.Render("learning ") + components.FormatDuration(learning),
		styles.RewardStyle.Render("reward ") + components.FormatDuration(reward),
		fmt.Sprintf("points %d", points),
	}
	if last := m.state.GetLastSync(); last != nil && !last.Reconcile.At.IsZero() {
		parts = append(parts, styles.HelpStyle.Render("synced "+last.Reconcile.At.Format("15:04:05")))
	}
	return "  " + strings.Join(parts, "   ")
}

// scaleFor picks the bar scale: one hour, or the largest entry if above it.
func scaleFor(entries []*models.LedgerEntry) int64 {
	scale := int64(3600)
	for _, e := range entries {
		scale = max(scale, e.TodaySeconds)
	}
	return scale
}
