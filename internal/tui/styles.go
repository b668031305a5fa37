// Package tui hosts the chat widget in a Bubble Tea program.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorSecondary = lipgloss.Color("#0EA5E9")
	colorSurface   = lipgloss.Color("#1F2937")
	colorText      = lipgloss.Color("#F9FAFB")
	colorTextDim   = lipgloss.Color("#9CA3AF")
	colorError     = lipgloss.Color("#F87171")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	// User bubbles sit on the right, bot bubbles on the left.
	userLabelStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)

	userBubbleStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorSecondary).
			Padding(0, 1)

	botLabelStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	botBubbleStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorSurface).
			Padding(0, 1)

	errorBubbleStyle = botBubbleStyle.
				Foreground(colorError)

	separatorStyle = lipgloss.NewStyle().
			Foreground(colorSurface)

	buttonStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	buttonFocusedStyle = lipgloss.NewStyle().
				Foreground(colorText).
				Background(colorPrimary).
				Bold(true)

	statusKeyStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	statusDescStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	pendingStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)
)
