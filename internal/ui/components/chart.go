// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/ui/styles"
)

// RenderHourlyChart plots today's per-hour minutes for one entity.
func RenderHourlyChart(hourly [models.HoursPerDay]int64, width, height int, caption string) string {
	data := make([]float64, len(hourly))
	var total int64
	for i, s := range hourly {
		data[i] = float64(s) / 60
		total += s
	}
	if total == 0 {
		return styles.HelpStyle.Render("No usage recorded today")
	}
	return RenderLineChart(data, width, height, caption)
}

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	width = max(width, 20)
	height = max(height, 3)

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.Precision(0),
	)
}

// RenderCategoryChart plots learning against reward minutes per hour.
func RenderCategoryChart(learning, reward []float64, width, height int, caption string) string {
	if len(learning) == 0 && len(reward) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	width = max(width, 20)
	height = max(height, 3)

	n := max(len(learning), len(reward))
	l := make([]float64, n)
	r := make([]float64, n)
	copy(l, learning)
	copy(r, reward)

	return asciigraph.PlotMany([][]float64{l, r},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow),
		asciigraph.Precision(0),
	)
}

// CategorySeries splits entries into per-hour learning and reward minutes.
func CategorySeries(entries []*models.LedgerEntry) (learning, reward []float64) {
	learning = make([]float64, models.HoursPerDay)
	reward = make([]float64, models.HoursPerDay)
	for _, e := range entries {
		dst := reward
		if e.Category == models.CategoryLearning {
			dst = learning
		}
		for h, s := range e.HourlySeconds {
			dst[h] += float64(s) / 60
		}
	}
	return learning, reward
}

// RenderDailyHistory renders the last n closed days as a bar chart in minutes.
func RenderDailyHistory(days []models.DailyUsage, n, width int) string {
	if len(days) == 0 {
		return styles.HelpStyle.Render("No history yet")
	}
	if n > 0 && len(days) > n {
		days = days[len(days)-n:]
	}

	values := make([]float64, len(days))
	labels := make([]string, len(days))
	for i, d := range days {
		values[i] = float64(d.Seconds) / 60
		labels[i] = d.Date
	}
	return RenderBarChart(values, labels, width)
}

// RenderBarChart creates a simple horizontal bar chart.
func RenderBarChart(values []float64, labels []string, width int) string {
	if len(values) == 0 {
		return ""
	}

	maxVal := 0.0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	maxLabelLen := 0
	for _, l := range labels {
		maxLabelLen = max(maxLabelLen, len(l))
	}

	barWidth := max(width-maxLabelLen-10, 10)

	var lines []string
	for i, v := range values {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}

		barLen := max(int((v/maxVal)*float64(barWidth)), 0)
		bar := lipgloss.NewStyle().Foreground(styles.Secondary).Render(strings.Repeat("█", barLen))

		lines = append(lines, fmt.Sprintf("%*s │%s %.0f", maxLabelLen, label, bar, v))
	}

	return strings.Join(lines, "\n")
}

// HeatmapBlocks are Unicode block characters for heatmaps (low to high intensity).
var HeatmapBlocks = []rune{'░', '▒', '▓', '█'}

// RenderHourlyHeatmap creates a 24-hour usage heatmap.
func RenderHourlyHeatmap(hourly []float64) string {
	if len(hourly) != models.HoursPerDay {
		padded := make([]float64, models.HoursPerDay)
		copy(padded, hourly)
		hourly = padded
	}

	maxVal := 0.0
	for _, v := range hourly {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	var result strings.Builder
	result.WriteString("00 ")

	for i, v := range hourly {
		intensity := min(max(int((v/maxVal)*float64(len(HeatmapBlocks)-1)), 0), len(HeatmapBlocks)-1)

		var style lipgloss.Style
		switch intensity {
		case 0:
			style = lipgloss.NewStyle().Foreground(styles.Subtle)
		case 1:
			style = lipgloss.NewStyle().Foreground(styles.Success)
		case 2:
			style = lipgloss.NewStyle().Foreground(styles.Warning)
		default:
			style = lipgloss.NewStyle().Foreground(styles.Error)
		}

		result.WriteString(style.Render(string(HeatmapBlocks[intensity])))

		if i == 11 {
			result.WriteString(" ")
		}
	}

	result.WriteString(" 23")
	return result.String()
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderSparkline creates a compact inline sparkline chart.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	maxVal := 0.0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	step := max(float64(len(values))/float64(width), 1)

	var result strings.Builder
	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		val := values[int(float64(i)*step)]
		normalized := min(max(int((val/maxVal)*float64(len(sparkChars)-1)), 0), len(sparkChars)-1)
		result.WriteRune(sparkChars[normalized])
	}

	return result.String()
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	var parts []string
	for _, item := range items {
		colorBox := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, fmt.Sprintf("%s %s", colorBox, item.Label))
	}
	return strings.Join(parts, "  ")
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}
