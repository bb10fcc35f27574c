package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/noah-isme/gradesheet/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8CA1AE"))
)

// terminalSurface projects a workspace onto a terminal: alerts go to stderr
// right away, everything else is kept for the final report.
type terminalSurface struct {
	errOut  io.Writer
	invalid map[string]bool
	focus   string
	slots   map[models.OutputSlot]string
}

func newTerminalSurface(errOut io.Writer) *terminalSurface {
	return &terminalSurface{errOut: errOut, invalid: map[string]bool{}, slots: map[models.OutputSlot]string{}}
}

func (s *terminalSurface) InsertRow(models.Row, int)                                        {}
func (s *terminalSurface) Renumber([]models.Row)                                            {}
func (s *terminalSurface) ScheduleTransition(string, models.TransitionPhase, time.Duration) {}

func (s *terminalSurface) ClearInvalid() {
	s.invalid = map[string]bool{}
	s.focus = ""
}

func (s *terminalSurface) MarkInvalid(rowID string) {
	s.invalid[rowID] = true
}

func (s *terminalSurface) Focus(rowID string) {
	s.focus = rowID
}

func (s *terminalSurface) Alert(message string) {
	fmt.Fprintln(s.errOut, errorStyle.Render(message))
}

func (s *terminalSurface) WriteSlot(slot models.OutputSlot, value string) {
	s.slots[slot] = value
}

func (s *terminalSurface) report(out io.Writer, rows []models.Row) {
	fmt.Fprintln(out, headerStyle.Render("Disciplines"))
	for _, row := range rows {
		marker := " "
		if s.invalid[row.ID] {
			marker = "!"
		}
		if row.ID == s.focus {
			marker = ">"
		}
		grade := row.GradeText
		if grade == "" {
			grade = mutedStyle.Render("(empty)")
		}
		fmt.Fprintf(out, "%s %2d. %-18s %s\n", marker, row.SequenceNumber, row.Subject, grade)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Results"))
	fmt.Fprintf(out, "  Average:  %s\n", s.slots[models.SlotAverage])
	fmt.Fprintf(out, "  Highest:  %s %s\n", s.slots[models.SlotHighestGrade], subjectSuffix(s.slots[models.SlotHighestSubject]))
	fmt.Fprintf(out, "  Lowest:   %s %s\n", s.slots[models.SlotLowestGrade], subjectSuffix(s.slots[models.SlotLowestSubject]))
	fmt.Fprintf(out, "  Percent:  %s%%\n", s.slots[models.SlotPercent])
	fmt.Fprintf(out, "  Total:    %s\n", s.slots[models.SlotTotal])
}

func subjectSuffix(subject string) string {
	if subject == "" {
		return ""
	}
	return "(" + subject + ")"
}
