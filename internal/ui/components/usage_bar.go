package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/rewardgate/internal/logger"
	"github.com/j-veylop/rewardgate/internal/ui/styles"
)

// Gradient endpoints for usage bars.
const (
	learningFrom = "#2f9e44"
	learningTo   = "#8ce99a"
	rewardFrom   = "#f08c00"
	rewardTo     = "#ffd43b"
	goalFrom     = "#ff6b6b"
	goalTo       = "#51cf66"
)

// RenderGradientBar renders a bar filled to percent with a two-color gradient.
func RenderGradientBar(percent float64, width int, fromHex, toHex string) string {
	if width < 1 {
		return ""
	}

	filled := min(max(int(float64(width)*percent/100), 0), width)

	var b strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			t := float64(i) / float64(max(1, width-1))
			color := interpolateColor(fromHex, toHex, t)
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("█"))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Subtle).Render("░"))
		}
	}
	return b.String()
}

// UsageBar renders one entity's usage today relative to scale seconds.
// Learning entities use a green gradient, everything else orange.
func UsageBar(label, category string, todaySeconds, scaleSeconds int64, width int) string {
	const (
		labelWidth = 18
		valueWidth = 9
	)

	percent := 0.0
	if scaleSeconds > 0 {
		percent = float64(todaySeconds) / float64(scaleSeconds) * 100
	}

	from, to := rewardFrom, rewardTo
	if category == "learning" {
		from, to = learningFrom, learningTo
	}

	barWidth := max(width-labelWidth-valueWidth-4, 5)
	bar := RenderGradientBar(percent, barWidth, from, to)

	labelStr := styles.GetCategoryStyle(category).Width(labelWidth).Render(truncate(label, labelWidth-1))
	valueStr := styles.ValueStyle.Render(FormatDuration(todaySeconds))

	return fmt.Sprintf("%s [%s] %s", labelStr, bar, valueStr)
}

// GoalBar renders progress toward the daily learning goal.
func GoalBar(learnedMinutes, goalMinutes int64, width int) string {
	percent := 100.0
	if goalMinutes > 0 {
		percent = min(float64(learnedMinutes)/float64(goalMinutes)*100, 100)
	}

	status := fmt.Sprintf("%d/%d min", learnedMinutes, goalMinutes)
	barWidth := max(width-len(status)-4, 5)
	bar := RenderGradientBar(percent, barWidth, goalFrom, goalTo)

	return fmt.Sprintf("[%s] %s", bar, styles.GetGoalStyle(percent).Render(status))
}

// FormatDuration renders seconds as "1h 05m" or "12m".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func interpolateColor(fromHex, toHex string, t float64) string {
	from := hexToRGB(fromHex)
	to := hexToRGB(toHex)

	r := int(float64(from[0]) + t*(float64(to[0])-float64(from[0])))
	g := int(float64(from[1]) + t*(float64(to[1])-float64(from[1])))
	b := int(float64(from[2]) + t*(float64(to[2])-float64(from[2])))

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hexToRGB(hex string) [3]int {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		logger.Error("failed to parse hex color", "hex", hex, "error", err)
		return [3]int{0, 0, 0}
	}
	return [3]int{r, g, b}
}
