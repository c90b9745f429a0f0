// ABOUTME: Lipgloss styles and small rendering helpers shared by CLI output
// ABOUTME: Status glyphs and a plain column table for status listings
package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	cellStyle = lipgloss.NewStyle().PaddingRight(2)
)

func check(ok bool) string {
	if ok {
		return okStyle.Render("✓")
	}
	return failStyle.Render("✗")
}

// table renders rows as left-aligned columns padded to the widest cell.
func table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = style.Render(cellStyle.Width(widths[i] + 2).Render(cell))
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}

	var b strings.Builder
	b.WriteString(line(header, titleStyle))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(line(row, lipgloss.NewStyle()))
		b.WriteString("\n")
	}
	return b.String()
}
