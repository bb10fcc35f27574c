package service

import (
	"time"

	"github.com/noah-isme/gradesheet/internal/dto"
	"github.com/noah-isme/gradesheet/internal/models"
)

// Surface is the passive presentation layer a workspace projects onto. Data
// operations never wait on it; scheduled transitions are fire-and-forget.
type Surface interface {
	InsertRow(row models.Row, position int)
	Renumber(rows []models.Row)
	ScheduleTransition(rowID string, phase models.TransitionPhase, after time.Duration)
	ClearInvalid()
	MarkInvalid(rowID string)
	Focus(rowID string)
	Alert(message string)
	WriteSlot(slot models.OutputSlot, value string)
}

// NopSurface discards every projection.
type NopSurface struct{}

func (NopSurface) InsertRow(models.Row, int)                                        {}
func (NopSurface) Renumber([]models.Row)                                            {}
func (NopSurface) ScheduleTransition(string, models.TransitionPhase, time.Duration) {}
func (NopSurface) ClearInvalid()                                                    {}
func (NopSurface) MarkInvalid(string)                                               {}
func (NopSurface) Focus(string)                                                     {}
func (NopSurface) Alert(string)                                                     {}
func (NopSurface) WriteSlot(models.OutputSlot, string)                              {}

// EventRecorder collects projections as ordered events so HTTP clients can
// replay them against the page.
type EventRecorder struct {
	events []dto.SurfaceEvent
	slots  map[string]string
}

// NewEventRecorder seeds the recorder with the slot values already shown on the page.
func NewEventRecorder(slots map[string]string) *EventRecorder {
	copied := make(map[string]string, len(slots))
	for k, v := range slots {
		copied[k] = v
	}
	return &EventRecorder{slots: copied}
}

// Events returns the recorded events in emission order.
func (r *EventRecorder) Events() []dto.SurfaceEvent {
	if r.events == nil {
		return []dto.SurfaceEvent{}
	}
	return r.events
}

// Slots returns the current value of every output slot.
func (r *EventRecorder) Slots() map[string]string {
	return r.slots
}

func (r *EventRecorder) InsertRow(row models.Row, position int) {
	r.events = append(r.events, dto.SurfaceEvent{Type: dto.EventInsertRow, RowID: row.ID, Position: position, Row: &row})
}

func (r *EventRecorder) Renumber(rows []models.Row) {
	r.events = append(r.events, dto.SurfaceEvent{Type: dto.EventRenumber, Rows: rows})
}

func (r *EventRecorder) ScheduleTransition(rowID string, phase models.TransitionPhase, after time.Duration) {
	r.events = append(r.events, dto.SurfaceEvent{Type: dto.EventTransition, RowID: rowID, Phase: phase, DelayMs: after.Milliseconds()})
}

func (r *EventRecorder) ClearInvalid() {
	r.events = append(r.events, dto.SurfaceEvent{Type: dto.EventClearInvalid})
}

func (r *EventRecorder) MarkInvalid(rowID string) {
	r.events = append(r.events, dto.SurfaceEvent{Type: dto.EventMarkInvalid, RowID: rowID})
}

func (r *EventRecorder) Focus(rowID string) {
	r.events = append(r.events, dto.SurfaceEvent{Type: dto.EventFocus, RowID: rowID})
}

func (r *EventRecorder) Alert(message string) {
	r.events = append(r.events, dto.SurfaceEvent{Type: dto.EventAlert, Message: message})
}

func (r *EventRecorder) WriteSlot(slot models.OutputSlot, value string) {
	r.slots[string(slot)] = value
	r.events = append(r.events, dto.SurfaceEvent{Type: dto.EventWriteSlot, Slot: slot, Value: &value})
}
