package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SimpleTable renders static rows with aligned columns. The CLI uses it for
// command output and the console for dashboards and usage.
type SimpleTable struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func NewSimpleTable(title string, headers ...string) *SimpleTable {
	return &SimpleTable{
		Title:   title,
		Headers: headers,
		Rows:    make([][]string, 0),
	}
}

// AddRow appends a row. Missing cells render empty; extra cells are dropped.
func (t *SimpleTable) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// View renders the table. An empty table renders as "".
func (t *SimpleTable) View(styles Styles) string {
	if len(t.Rows) == 0 {
		return ""
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	if t.Title != "" {
		sb.WriteString(styles.Title.Render(t.Title))
		sb.WriteString("\n")
	}

	sep := styles.Divider.Render("│")
	writeRow := func(cells []string, style lipgloss.Style) {
		for i, w := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			sb.WriteString(style.Render(cell + strings.Repeat(" ", w-lipgloss.Width(cell))))
			if i < len(widths)-1 {
				sb.WriteString(" " + sep + " ")
			}
		}
		sb.WriteString("\n")
	}

	writeRow(t.Headers, styles.Bold)
	total := 0
	for _, w := range widths {
		total += w
	}
	total += 3 * (len(widths) - 1)
	sb.WriteString(styles.RenderDivider(total))
	sb.WriteString("\n")
	for _, row := range t.Rows {
		writeRow(row, styles.Body)
	}
	return sb.String()
}
