package models

// GradeEntry is a valid grade together with the row it came from.
type GradeEntry struct {
	Value          float64 `json:"value"`
	Subject        string  `json:"subject"`
	SequenceNumber int     `json:"sequence_number"`
}

// StatisticsResult is the outcome of one calculation pass over a sheet.
type StatisticsResult struct {
	Average                float64     `json:"average"`
	Count                  int         `json:"count"`
	Sum                    float64     `json:"sum"`
	Highest                *GradeEntry `json:"highest,omitempty"`
	Lowest                 *GradeEntry `json:"lowest,omitempty"`
	Percent                int         `json:"percent"`
	InvalidSequenceNumbers []int       `json:"invalid_sequence_numbers"`
}

// OutputSlot names a labelled result field on the presentation surface.
type OutputSlot string

const (
	SlotAverage        OutputSlot = "average"
	SlotHighestGrade   OutputSlot = "highest_grade"
	SlotHighestSubject OutputSlot = "highest_subject"
	SlotLowestGrade    OutputSlot = "lowest_grade"
	SlotLowestSubject  OutputSlot = "lowest_subject"
	SlotPercent        OutputSlot = "percent"
	SlotTotal          OutputSlot = "total"
)

// OutputSlots lists every slot in display order.
var OutputSlots = []OutputSlot{
	SlotAverage,
	SlotHighestGrade,
	SlotHighestSubject,
	SlotLowestGrade,
	SlotLowestSubject,
	SlotPercent,
	SlotTotal,
}

// TransitionPhase is the cosmetic lifecycle of a row on the presentation surface.
type TransitionPhase string

const (
	PhaseEntering TransitionPhase = "entering"
	PhaseVisible  TransitionPhase = "visible"
	PhaseLeaving  TransitionPhase = "leaving"
	PhaseRemoved  TransitionPhase = "removed"
)
