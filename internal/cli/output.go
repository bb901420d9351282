package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/banquet/internal/calendar"
	apperrors "github.com/julianstephens/banquet/internal/errors"
	"github.com/julianstephens/banquet/internal/models"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)

	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Out is where commands print. Tests point it at a buffer.
var Out io.Writer = os.Stdout

func Successf(format string, args ...any) {
	fmt.Fprintln(Out, successStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

func Warnf(format string, args ...any) {
	fmt.Fprintln(Out, warnStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

func Failf(format string, args ...any) {
	fmt.Fprintln(Out, failStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

func Mutedf(format string, args ...any) {
	fmt.Fprintln(Out, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Field prints one "label: value" line.
func Field(label string, value any) {
	fmt.Fprintf(Out, "%s %v\n", labelStyle.Render(label+":"), value)
}

// Hint prints the corrective guidance attached to err, if any.
func Hint(err error) {
	if hint := apperrors.Guidance(err); hint != "" {
		Mutedf("  %s", hint)
	}
}

// Table renders rows under headers with the shared styling.
func Table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}

// RecordRows formats records for Table.
func RecordRows(records []*models.UsageRecord, showIDs bool) ([]string, [][]string) {
	headers := []string{"Date", "Timing", "Client", "Event Type", "Meal", "Ballrooms"}
	if showIDs {
		headers = append([]string{"ID"}, headers...)
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{calendar.FormatDisplay(r.Date), string(r.Timing)}
		if r.NoEvent {
			row = append(row, mutedStyle.Render("No event"), "", "", "")
		} else {
			row = append(row, r.Client, r.EventType, models.JoinMeals(r.Meals), strings.Join(r.Ballrooms, ", "))
		}
		if showIDs {
			row = append([]string{r.ID}, row...)
		}
		rows = append(rows, row)
	}
	return headers, rows
}

// Confirm asks a yes/no question. It returns true without asking when skip is set.
func Confirm(title, description string, skip bool) (bool, error) {
	if skip {
		return true, nil
	}
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithTheme(huh.ThemeDracula()).Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}
