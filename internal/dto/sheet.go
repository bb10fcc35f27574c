package dto

import "github.com/noah-isme/gradesheet/internal/models"

// SurfaceEventType enumerates projection instructions sent to the page.
type SurfaceEventType string

const (
	EventInsertRow    SurfaceEventType = "insert_row"
	EventRenumber     SurfaceEventType = "renumber"
	EventTransition   SurfaceEventType = "transition"
	EventClearInvalid SurfaceEventType = "clear_invalid"
	EventMarkInvalid  SurfaceEventType = "mark_invalid"
	EventFocus        SurfaceEventType = "focus"
	EventAlert        SurfaceEventType = "alert"
	EventWriteSlot    SurfaceEventType = "write_slot"
)

// SurfaceEvent is one instruction for the presentation surface. Transition
// events with a non-zero DelayMs are cosmetic and may be ignored by clients.
type SurfaceEvent struct {
	Type     SurfaceEventType       `json:"type"`
	RowID    string                 `json:"row_id,omitempty"`
	Position int                    `json:"position,omitempty"`
	Row      *models.Row            `json:"row,omitempty"`
	Rows     []models.Row           `json:"rows,omitempty"`
	Phase    models.TransitionPhase `json:"phase,omitempty"`
	DelayMs  int64                  `json:"delay_ms,omitempty"`
	Message  string                 `json:"message,omitempty"`
	Slot     models.OutputSlot      `json:"slot,omitempty"`
	Value    *string                `json:"value,omitempty"`
}

// SheetView is returned by every sheet action.
type SheetView struct {
	ID         string                   `json:"id"`
	Rows       []models.Row             `json:"rows"`
	Slots      map[string]string        `json:"slots"`
	Statistics *models.StatisticsResult `json:"statistics,omitempty"`
	Events     []SurfaceEvent           `json:"events"`
}

// UpdateRowRequest edits the subject and/or grade text of a row. Nil fields are left untouched.
type UpdateRowRequest struct {
	Subject   *string `json:"subject"`
	GradeText *string `json:"grade_text" validate:"omitempty,max=64"`
}

// SubjectList describes the selectable subjects.
type SubjectList struct {
	Subjects []string `json:"subjects"`
	Default  string   `json:"default"`
}
