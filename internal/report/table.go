package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gaugekit/gauge/internal/registry"
)

// RenderTable prints result as a two-column terminal table.
func RenderTable(w io.Writer, result *registry.Result, noColor bool) error {
	rows := make([][]string, 0, result.Len())
	for _, s := range result.Scores() {
		rows = append(rows, []string{s.Name, formatScore(s.Value)})
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	border := lipgloss.NewStyle()
	if !noColor {
		header = header.Foreground(lipgloss.Color("252"))
		border = border.Foreground(lipgloss.Color("240"))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(border).
		Headers("metric", "score").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := cell
			if row == table.HeaderRow {
				s = header
			}
			if col == 1 {
				s = s.Align(lipgloss.Right)
			}
			return s
		})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
