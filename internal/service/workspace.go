package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/gradesheet/internal/models"
)

// Workspace ties one row list, the statistics engine and the surface they
// project onto. It replaces page-level globals with a single owned context.
type Workspace struct {
	rows    *RowManager
	engine  *StatisticsEngine
	surface Surface
	states  map[string]models.ValidationState
}

// NewWorkspace wires a workspace. The row manager must project onto the same surface.
func NewWorkspace(rows *RowManager, engine *StatisticsEngine, surface Surface) *Workspace {
	if engine == nil {
		engine = NewStatisticsEngine()
	}
	if surface == nil {
		surface = NopSurface{}
	}
	return &Workspace{rows: rows, engine: engine, surface: surface}
}

// Init zeroes every result slot.
func (w *Workspace) Init() {
	for _, sv := range SlotValues(models.StatisticsResult{}) {
		w.surface.WriteSlot(sv.Slot, sv.Value)
	}
}

// Rows returns the current rows, carrying validation states from the last
// calculation performed by this workspace.
func (w *Workspace) Rows() []models.Row {
	rows := w.rows.Rows()
	for i := range rows {
		if state, ok := w.states[rows[i].ID]; ok {
			rows[i].State = state
		}
	}
	return rows
}

// Snapshot returns the storable rows.
func (w *Workspace) Snapshot() []models.SheetRow {
	return w.rows.Snapshot()
}

// AddDiscipline appends a blank row.
func (w *Workspace) AddDiscipline() models.Row {
	w.states = nil
	return w.rows.Append()
}

// RemoveDiscipline removes a row, refusing to remove the last one.
func (w *Workspace) RemoveDiscipline(rowID string) error {
	if err := w.rows.Remove(rowID); err != nil {
		return err
	}
	w.states = nil
	return nil
}

// UpdateDiscipline edits a row's subject and/or grade text.
func (w *Workspace) UpdateDiscipline(rowID string, subject, gradeText *string) (models.Row, error) {
	row, err := w.rows.Update(rowID, subject, gradeText)
	if err != nil {
		return models.Row{}, err
	}
	delete(w.states, rowID)
	return row, nil
}

// Evaluate computes statistics without touching the surface.
func (w *Workspace) Evaluate() Evaluation {
	return w.engine.Compute(w.rows.Rows())
}

// Calculate computes statistics and projects them: error highlighting, an
// alert plus focus when rows are invalid, and every result slot.
func (w *Workspace) Calculate() models.StatisticsResult {
	eval := w.Evaluate()
	w.states = eval.States

	w.surface.ClearInvalid()
	for _, id := range eval.InvalidRowIDs {
		w.surface.MarkInvalid(id)
	}
	if len(eval.InvalidRowIDs) > 0 {
		w.surface.Alert(InvalidEntriesMessage(eval.Result.InvalidSequenceNumbers))
		w.surface.Focus(eval.InvalidRowIDs[0])
	}

	for _, sv := range SlotValues(eval.Result) {
		w.surface.WriteSlot(sv.Slot, sv.Value)
	}
	return eval.Result
}

// InvalidEntriesMessage is the alert raised after a pass with invalid grades.
func InvalidEntriesMessage(seqs []int) string {
	labels := make([]string, len(seqs))
	for i, n := range seqs {
		labels[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf("Invalid value(s) in discipline(s): %s.\nPlease enter a number between 0 and 10.", strings.Join(labels, ", "))
}

// SlotValues formats a result for the output slots. Missing highest/lowest
// entries render as grade 0 with no subject.
func SlotValues(res models.StatisticsResult) []SlotValue {
	highGrade, highSubject := "0", ""
	if res.Highest != nil {
		highGrade, highSubject = FormatGrade(res.Highest.Value), res.Highest.Subject
	}
	lowGrade, lowSubject := "0", ""
	if res.Lowest != nil {
		lowGrade, lowSubject = FormatGrade(res.Lowest.Value), res.Lowest.Subject
	}
	return []SlotValue{
		{models.SlotAverage, FormatGrade(res.Average)},
		{models.SlotHighestGrade, highGrade},
		{models.SlotHighestSubject, highSubject},
		{models.SlotLowestGrade, lowGrade},
		{models.SlotLowestSubject, lowSubject},
		{models.SlotPercent, strconv.Itoa(res.Percent)},
		{models.SlotTotal, strconv.Itoa(res.Count)},
	}
}

// SlotValue pairs an output slot with its rendered text.
type SlotValue struct {
	Slot  models.OutputSlot
	Value string
}

// FormatGrade renders a grade the way the page shows numbers: no trailing zeros.
func FormatGrade(v float64) string {
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
