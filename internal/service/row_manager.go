package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/gradesheet/internal/models"
	appErrors "github.com/noah-isme/gradesheet/pkg/errors"
)

const (
	// DefaultTransitionDuration matches the fade used by the page stylesheet.
	DefaultTransitionDuration = 400 * time.Millisecond
	// DefaultSettleDelay lets the browser lay out an inserted row before it fades in.
	DefaultSettleDelay = 10 * time.Millisecond

	lastRowAlert = "At least one discipline must remain.\nThe last one cannot be removed."
)

// RowManagerOptions tunes row creation and the cosmetic transition cues.
type RowManagerOptions struct {
	Catalog     *models.SubjectCatalog
	Transition  time.Duration
	SettleDelay time.Duration
	NewID       func() string
}

func (o RowManagerOptions) withDefaults() RowManagerOptions {
	if o.Catalog == nil {
		o.Catalog = models.NewSubjectCatalog(nil, models.DefaultSubject)
	}
	if o.Transition <= 0 {
		o.Transition = DefaultTransitionDuration
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// RowManager owns the ordered list of discipline rows. The list never drops
// below one row and sequence numbers always equal 1-based positions.
type RowManager struct {
	rows    []models.SheetRow
	opts    RowManagerOptions
	surface Surface
}

// NewRowManager starts a list holding a single blank row.
func NewRowManager(surface Surface, opts RowManagerOptions) *RowManager {
	return RestoreRowManager(surface, opts, nil)
}

// RestoreRowManager rebuilds a manager from stored rows. An empty snapshot
// yields a single blank row.
func RestoreRowManager(surface Surface, opts RowManagerOptions, rows []models.SheetRow) *RowManager {
	if surface == nil {
		surface = NopSurface{}
	}
	m := &RowManager{opts: opts.withDefaults(), surface: surface}
	m.rows = make([]models.SheetRow, 0, len(rows)+1)
	m.rows = append(m.rows, rows...)
	if len(m.rows) == 0 {
		m.rows = append(m.rows, m.blankRow())
	}
	return m
}

func (m *RowManager) blankRow() models.SheetRow {
	return models.SheetRow{ID: m.opts.NewID(), Subject: m.opts.Catalog.Default}
}

// Len returns the number of rows.
func (m *RowManager) Len() int {
	return len(m.rows)
}

// Rows returns the rows in order with their sequence numbers assigned.
func (m *RowManager) Rows() []models.Row {
	out := make([]models.Row, len(m.rows))
	for i, r := range m.rows {
		out[i] = models.Row{
			ID:             r.ID,
			SequenceNumber: i + 1,
			Subject:        r.Subject,
			GradeText:      r.GradeText,
			State:          models.ValidationUnchecked,
		}
	}
	return out
}

// Snapshot returns the storable form of the rows.
func (m *RowManager) Snapshot() []models.SheetRow {
	out := make([]models.SheetRow, len(m.rows))
	copy(out, m.rows)
	return out
}

// Append adds a blank row at the end of the list.
func (m *RowManager) Append() models.Row {
	row := m.blankRow()
	m.rows = append(m.rows, row)

	view := models.Row{
		ID:             row.ID,
		SequenceNumber: len(m.rows),
		Subject:        row.Subject,
		State:          models.ValidationUnchecked,
	}
	m.surface.InsertRow(view, len(m.rows)-1)
	m.surface.ScheduleTransition(row.ID, models.PhaseVisible, m.opts.SettleDelay)
	return view
}

// Remove excises the row and renumbers the rest. Removing the only row is
// refused with ErrLastRow and an alert.
func (m *RowManager) Remove(rowID string) error {
	idx := m.indexOf(rowID)
	if idx < 0 {
		return appErrors.Clone(appErrors.ErrRowNotFound, fmt.Sprintf("discipline %s not found", rowID))
	}
	if len(m.rows) <= 1 {
		m.surface.Alert(lastRowAlert)
		return appErrors.ErrLastRow
	}

	m.rows = append(m.rows[:idx], m.rows[idx+1:]...)

	m.surface.ScheduleTransition(rowID, models.PhaseLeaving, 0)
	m.surface.ScheduleTransition(rowID, models.PhaseRemoved, m.opts.Transition)
	m.surface.Renumber(m.Rows())
	return nil
}

// Update edits a row in place. Nil arguments leave the field unchanged.
func (m *RowManager) Update(rowID string, subject, gradeText *string) (models.Row, error) {
	idx := m.indexOf(rowID)
	if idx < 0 {
		return models.Row{}, appErrors.Clone(appErrors.ErrRowNotFound, fmt.Sprintf("discipline %s not found", rowID))
	}
	if subject != nil {
		if !m.opts.Catalog.Contains(*subject) {
			return models.Row{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown subject %q", *subject))
		}
		m.rows[idx].Subject = *subject
	}
	if gradeText != nil {
		m.rows[idx].GradeText = *gradeText
	}
	return m.Rows()[idx], nil
}

func (m *RowManager) indexOf(rowID string) int {
	for i, r := range m.rows {
		if r.ID == rowID {
			return i
		}
	}
	return -1
}
