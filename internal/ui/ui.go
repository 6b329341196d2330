// Package ui centralizes terminal styling for the CLI.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)

	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	amountStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Align(lipgloss.Right)
)

// colorEnabled reports whether the terminal supports color output.
func colorEnabled() bool {
	return termenv.ColorProfile() != termenv.Ascii
}

func render(style lipgloss.Style, s string) string {
	if !colorEnabled() {
		return s
	}
	return style.Render(s)
}

// Accent highlights identifiers and titles.
func Accent(s string) string { return render(accentStyle, s) }

// Pass formats success messages.
func Pass(s string) string { return render(passStyle, s) }

// Warn formats warnings.
func Warn(s string) string { return render(warnStyle, s) }

// Fail formats errors.
func Fail(s string) string { return render(failStyle, s) }

// Faint de-emphasizes secondary detail like timestamps.
func Faint(s string) string { return render(faintStyle, s) }

// Header formats a section heading.
func Header(s string) string { return render(headerStyle, s) }

// Amount right-aligns and colors a monetary value with its currency.
func Amount(value, currency string) string {
	return render(amountStyle, fmt.Sprintf("%s %s", value, currency))
}
