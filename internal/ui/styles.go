// Package ui provides consistent styling for the wayskk CLI
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Color palette
var (
	ColorPrimary = lipgloss.Color("39")  // Bright blue
	ColorSuccess = lipgloss.Color("82")  // Green
	ColorWarning = lipgloss.Color("214") // Orange
	ColorError   = lipgloss.Color("196") // Red
	ColorInfo    = lipgloss.Color("86")  // Cyan

	ColorText   = lipgloss.Color("252") // Light gray
	ColorSubtle = lipgloss.Color("241") // Medium gray
)

var (
	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	KeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)
)

var (
	IconSetup   = "»"
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "!"
)

// FormatHeader renders a section title followed by a separator.
func FormatHeader(title string) string {
	return HeaderStyle.Render(InfoStyle.Render(IconSetup)+" "+title) + "\n" + CreateSeparator(50, "─")
}

// FormatCheck renders one line of a checklist.
func FormatCheck(ok bool, item, detail string) string {
	icon, style := SuccessStyle.Render(IconSuccess), SuccessStyle
	if !ok {
		icon, style = ErrorStyle.Render(IconError), ErrorStyle
	}
	line := "   " + icon + " " + item
	if detail != "" {
		line += " - " + style.Render(detail)
	}
	return line
}

// FormatWarning renders a one-line warning.
func FormatWarning(msg string) string {
	return WarningStyle.Render(IconWarning + " " + msg)
}

// FormatKeyValue renders "key: value" with the key highlighted.
func FormatKeyValue(key, value string) string {
	return KeyStyle.Render(key+":") + " " + value
}

// CreateSeparator creates a horizontal line separator
func CreateSeparator(width int, char string) string {
	if width <= 0 {
		width = 50
	}
	if char == "" {
		char = "─"
	}
	return SubtleStyle.Render(strings.Repeat(char, width))
}

// Table renders rows under headers with the CLI's border and colors.
// statusCol, when non-negative, colors cells equal to okValue green and
// everything else red.
func Table(headers []string, rows [][]string, statusCol int, okValue string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorSubtle)).
		StyleFunc(func(row, col int) lipgloss.Style {
			cell := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return cell.Foreground(ColorPrimary).Bold(true)
			case col == statusCol && row >= 0 && row < len(rows):
				if rows[row][col] == okValue {
					return cell.Foreground(ColorSuccess)
				}
				return cell.Foreground(ColorError)
			default:
				return cell.Foreground(ColorText)
			}
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}
