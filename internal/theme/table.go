package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders rows under headers inside TableStyle. Columns are as wide
// as their widest cell; missing cells render empty.
func Table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, renderRow(TableHeader, headers, widths))

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("─", w)
	}
	lines = append(lines, renderRow(TableCell.Foreground(Muted), rule, widths))

	for _, row := range rows {
		lines = append(lines, renderRow(TableCell, row, widths))
	}

	return TableStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderRow(style lipgloss.Style, cells []string, widths []int) string {
	rendered := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		// Padding(0, 1) adds two columns on top of the content width
		rendered[i] = style.Width(w + 2).Render(cell)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}
