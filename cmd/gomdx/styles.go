package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	primaryColor = lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#B4A7FF"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#6C6F85", Dark: "#A6ADC8"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"}

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
)

// renderTable renders rows under headers with rounded borders.
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func formatValue(v any, err error) string {
	switch {
	case err != nil:
		return errorStyle.Render(err.Error())
	case v == nil:
		return mutedStyle.Render("(empty)")
	}
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.2f", f)
	}
	return fmt.Sprint(v)
}
