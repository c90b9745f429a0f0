// ABOUTME: Lipgloss rendering of conversation messages and cards
// ABOUTME: Produces the transcript text both chat modes print
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/deskhand/dispatch"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// RenderMessages renders result messages as transcript lines.
func RenderMessages(msgs []dispatch.ResultMessage) string {
	var b strings.Builder
	for _, m := range msgs {
		style := assistantStyle
		if m.Sender == dispatch.SenderSystem {
			style = systemStyle
		}
		if m.Text != "" {
			b.WriteString(style.Render(m.Text))
			b.WriteString("\n")
		}
		if m.Card != nil {
			if text := m.Card.Text(); text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
		for _, a := range m.ContextualActions {
			b.WriteString(helpStyle.Render("  → " + a.Label))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderUser renders the user's own line.
func RenderUser(text string) string {
	return userStyle.Render("› " + text)
}

// RenderError renders a failed turn.
func RenderError(err error) string {
	return errorStyle.Render("Error: " + err.Error())
}

// RenderNotice renders a dim status line such as a cancellation.
func RenderNotice(text string) string {
	return helpStyle.Render(text)
}
