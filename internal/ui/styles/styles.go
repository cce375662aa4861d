// Package styles defines the visual styling for the application.
package styles

import "github.com/charmbracelet/lipgloss"

// Color definitions for the dashboard theme.
var (
	// Primary colors
	Primary   = lipgloss.Color("205") // Pink
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	// Category colors
	Learning = lipgloss.Color("42")  // Green
	Reward   = lipgloss.Color("220") // Yellow

	// Status colors
	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("220") // Yellow
	Info    = lipgloss.Color("39")  // Blue

	// Background colors
	BgDark  = lipgloss.Color("235")
	BgLight = lipgloss.Color("237")

	// Text colors
	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")

	// ToastStyle for floating notifications.
	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1).
			MarginBottom(1)
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// SubTitleStyle is used for section headings.
var SubTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Secondary).
	MarginBottom(1)

// DocStyle provides consistent document margins.
var DocStyle = lipgloss.NewStyle().
	Margin(1, 2).
	Padding(0, 1)

// ActiveTabStyle styles the currently selected tab.
var ActiveTabStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("229")).
	Background(Primary).
	Padding(0, 2).
	MarginRight(1)

// InactiveTabStyle styles non-selected tabs.
var InactiveTabStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	Background(BgLight).
	Padding(0, 2).
	MarginRight(1)

// TabNumberStyle styles the tab number indicator.
var TabNumberStyle = lipgloss.NewStyle().
	Foreground(Subtle).
	MarginRight(0)

// CardStyle creates a bordered card container.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(1, 2).
	MarginBottom(1)

// CardTitleStyle styles card headers.
var CardTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// notificationBase is shared by the toast text styles. The toast itself
// draws the border.
var notificationBase = lipgloss.NewStyle().
	Padding(0, 1)

// NotificationSuccessStyle for success notifications.
var NotificationSuccessStyle = notificationBase.
	Foreground(Success)

// NotificationErrorStyle for error notifications.
var NotificationErrorStyle = notificationBase.
	Foreground(Error).
	Bold(true)

// NotificationWarningStyle for warning notifications.
var NotificationWarningStyle = notificationBase.
	Foreground(Warning)

// NotificationInfoStyle for info and loading notifications.
var NotificationInfoStyle = notificationBase.
	Foreground(Info)

// ValueStyle right-aligns durations next to usage bars.
var ValueStyle = lipgloss.NewStyle().
	Foreground(TextPrimary).
	Width(9).
	Align(lipgloss.Right)

// HelpStyle is the base style for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

// HelpKeyStyle styles keyboard shortcut keys.
var HelpKeyStyle = lipgloss.NewStyle().
	Foreground(Primary).
	Bold(true)

// HelpDescStyle styles help descriptions.
var HelpDescStyle = lipgloss.NewStyle().
	Foreground(TextSecondary)

// HelpSeparatorStyle styles separators in help text.
var HelpSeparatorStyle = lipgloss.NewStyle().
	Foreground(Subtle)

// HelpPanelStyle creates the help overlay panel.
var HelpPanelStyle = lipgloss.NewStyle().
	Border(lipgloss.DoubleBorder()).
	BorderForeground(Primary).
	Padding(1, 3).
	Background(BgDark)

// ListItemStyle indents unselected list rows to line up with the marker.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedListItemStyle marks the selected list row.
var SelectedListItemStyle = lipgloss.NewStyle().
	Foreground(Primary).
	Bold(true).
	SetString("▸")

// TableHeaderStyle styles table headers.
var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	BorderStyle(lipgloss.NormalBorder()).
	BorderBottom(true).
	BorderForeground(Subtle)

// TableCellStyle styles table cells.
var TableCellStyle = lipgloss.NewStyle().
	Padding(0, 1)

// LearningStyle styles learning-category labels.
var LearningStyle = lipgloss.NewStyle().
	Foreground(Learning).
	Bold(true)

// RewardStyle styles reward-category labels.
var RewardStyle = lipgloss.NewStyle().
	Foreground(Reward).
	Bold(true)

// BlockedStyle marks entities that stay shielded until the goal is met.
var BlockedStyle = lipgloss.NewStyle().
	Foreground(Error).
	Italic(true)

// UnlockedStyle renders the goal badge once rewards are unlocked.
var UnlockedStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("229")).
	Background(Success).
	Bold(true).
	Padding(0, 1)

// LockedStyle renders the goal badge while rewards are locked.
var LockedStyle = lipgloss.NewStyle().
	Foreground(TextPrimary).
	Background(BgLight).
	Padding(0, 1)

// ErrorTextStyle for error messages.
var ErrorTextStyle = lipgloss.NewStyle().
	Foreground(Error)

// SuccessTextStyle for success messages.
var SuccessTextStyle = lipgloss.NewStyle().
	Foreground(Success)

// WarningTextStyle for warning messages.
var WarningTextStyle = lipgloss.NewStyle().
	Foreground(Warning)

// InfoTextStyle for info messages.
var InfoTextStyle = lipgloss.NewStyle().
	Foreground(Info)

// GetCategoryStyle returns the label style for an entity category.
func GetCategoryStyle(category string) lipgloss.Style {
	switch category {
	case "learning":
		return LearningStyle
	case "reward":
		return RewardStyle
	default:
		return HelpStyle
	}
}

// GetGoalStyle colors goal progress: green once reached, yellow past
// halfway, muted below.
func GetGoalStyle(percent float64) lipgloss.Style {
	switch {
	case percent >= 100:
		return SuccessTextStyle
	case percent >= 50:
		return WarningTextStyle
	default:
		return HelpStyle
	}
}

// CenterBoth centers content both horizontally and vertically.
func CenterBoth(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(content)
}
