// Package render formats homework listings and answer sets as terminal
// tables.
package render

import (
	"Extensible-Homework-Helper/internal/answer"
	"Extensible-Homework-Helper/internal/model"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	Accent  = lipgloss.Color("#8BC34A")
	Muted   = lipgloss.Color("#6b7280")
	Warning = lipgloss.Color("#FFC107")
	Danger  = lipgloss.Color("#e53935")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(Accent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(Muted)
)

var homeworkHeaders = []string{"#", "Title", "Kind", "Status", "Score", "Published", "Publisher"}

func formatScore(r model.HomeworkRecord) string {
	current := "-"
	if r.CurrentScore != nil {
		current = strconv.FormatFloat(*r.CurrentScore, 'f', -1, 64)
	}
	return current + "/" + strconv.FormatFloat(r.TotalScore, 'f', -1, 64)
}

// HomeworkRows returns one row per record, indexed the way Session.Record
// expects.
func HomeworkRows(records []model.HomeworkRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for i, r := range records {
		published := ""
		if !r.PublishTime.IsZero() {
			published = r.PublishTime.Format(model.TimeFormat)
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			r.Title,
			string(r.Kind),
			fmt.Sprintf("%s (%s)", r.Status.Label(), r.Status),
			formatScore(r),
			published,
			r.PublisherName,
		})
	}
	return rows
}

func statusColor(s model.HomeworkStatus) lipgloss.Color {
	switch s {
	case model.StatusCompleted:
		return Accent
	case model.StatusInProgress:
		return Warning
	case model.StatusNotCompleted, model.StatusMakeUp:
		return Danger
	default:
		return Muted
	}
}

func Homework(records []model.HomeworkRecord) string {
	if len(records) == 0 {
		return "no homework listed"
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(homeworkHeaders...).
		Rows(HomeworkRows(records)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 3 && row >= 0 && row < len(records) {
				return cellStyle.Foreground(statusColor(records[row].Status))
			}
			return cellStyle
		})
	return t.String()
}

func AnswerRows(answers []model.Answer) [][]string {
	rows := make([][]string, 0, len(answers))
	for _, a := range answers {
		rows = append(rows, []string{
			strconv.Itoa(a.Index),
			a.ID,
			string(a.Kind),
			strings.Join(a.Content.Values(), " / "),
		})
	}
	return rows
}

func Answers(answers []model.Answer) string {
	if len(answers) == 0 {
		return "no answers"
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("#", "ID", "Kind", "Content").
		Rows(AnswerRows(answers)...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

// FillIn summarizes what a fill-in changed relative to the answers given.
func FillIn(corruptions []answer.Corruption, picks []answer.Pick) string {
	var b strings.Builder
	for _, c := range corruptions {
		fmt.Fprintf(&b, "question %d: %s -> %s (corrupted)\n", c.Index, c.From, c.To)
	}
	for _, p := range picks {
		fmt.Fprintf(&b, "question %d: picked %q from %s\n", p.Index, p.Chosen, strings.Join(p.Alternatives, " / "))
	}
	return strings.TrimSuffix(b.String(), "\n")
}
