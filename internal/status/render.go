package status

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/banquet/internal/calendar"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	cellStyles = map[Cell]lipgloss.Style{
		Done:    cellStyle.Foreground(lipgloss.Color("42")),
		Partial: cellStyle.Foreground(lipgloss.Color("214")),
		NotDone: cellStyle.Foreground(lipgloss.Color("196")),
		NA:      cellStyle.Foreground(lipgloss.Color("240")),
	}

	headlineStyles = map[string]lipgloss.Style{
		HeadlineAllDone:    cellStyle.Foreground(lipgloss.Color("42")),
		HeadlinePartial:    cellStyle.Foreground(lipgloss.Color("214")),
		HeadlineNoContract: cellStyle.Foreground(lipgloss.Color("240")),
	}

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

func (c Cell) Symbol() string {
	switch c {
	case Done:
		return "✓"
	case Partial:
		return "–"
	case NotDone:
		return "✗"
	default:
		return "·"
	}
}

// Render writes the board as a table, one column per day.
func (b *Board) Render(w io.Writer) error {
	headers := []string{"Hotel"}
	for _, d := range b.Days {
		headers = append(headers, fmt.Sprintf("%02d", d.Day()))
	}
	headers = append(headers, "Status")

	rows := make([][]string, 0, len(b.Rows))
	for _, r := range b.Rows {
		row := []string{r.Hotel}
		for _, c := range r.Cells {
			row = append(row, c.Symbol())
		}
		rows = append(rows, append(row, r.Headline))
	}

	last := len(headers) - 1
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			r := b.Rows[row]
			switch {
			case col == 0:
				return cellStyle
			case col == last:
				if s, ok := headlineStyles[r.Headline]; ok {
					return s
				}
				return cellStyles[NotDone]
			default:
				return cellStyles[r.Cells[col-1]]
			}
		})

	title := titleStyle.Render("Entry status on " + calendar.FormatDisplay(b.Today))
	_, err := io.WriteString(w, strings.Join([]string{title, t.Render(), ""}, "\n"))
	return err
}
