package models

import "time"

// ValidationState captures the outcome of the last calculation for a row.
type ValidationState string

const (
	ValidationUnchecked ValidationState = "unchecked"
	ValidationValid     ValidationState = "valid"
	ValidationInvalid   ValidationState = "invalid"
)

// Row is a single discipline entry on a grade sheet. SequenceNumber is derived
// from the row's position and is assigned whenever the list is read.
type Row struct {
	ID             string          `json:"id"`
	SequenceNumber int             `json:"sequence_number"`
	Subject        string          `json:"subject"`
	GradeText      string          `json:"grade_text"`
	State          ValidationState `json:"state"`
}

// SheetRow is the stored form of a row. Sequence numbers and validation
// states are never persisted.
type SheetRow struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	GradeText string `json:"grade_text"`
}

// SheetSnapshot is what the sheet repositories persist between actions.
type SheetSnapshot struct {
	ID        string            `json:"id"`
	Rows      []SheetRow        `json:"rows"`
	Slots     map[string]string `json:"slots"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
