package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/noah-isme/gradesheet/internal/models"
)

const (
	MinGrade = 0.0
	MaxGrade = 10.0
)

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Evaluation is the pure outcome of a calculation pass.
type Evaluation struct {
	Result        models.StatisticsResult
	States        map[string]models.ValidationState
	InvalidRowIDs []string
}

// StatisticsEngine validates grade texts and aggregates the valid ones.
type StatisticsEngine struct{}

// NewStatisticsEngine constructs a StatisticsEngine.
func NewStatisticsEngine() *StatisticsEngine {
	return &StatisticsEngine{}
}

// Compute walks the rows in order. Blank grades are skipped, invalid ones are
// reported by sequence number and never abort the pass.
func (e *StatisticsEngine) Compute(rows []models.Row) Evaluation {
	eval := Evaluation{
		States: make(map[string]models.ValidationState, len(rows)),
		Result: models.StatisticsResult{InvalidSequenceNumbers: []int{}},
	}
	res := &eval.Result

	for _, row := range rows {
		value, state := ClassifyGrade(row.GradeText)
		eval.States[row.ID] = state
		switch state {
		case models.ValidationValid:
			res.Sum += value
			res.Count++
			entry := models.GradeEntry{Value: value, Subject: row.Subject, SequenceNumber: row.SequenceNumber}
			if res.Highest == nil || entry.Value > res.Highest.Value {
				highest := entry
				res.Highest = &highest
			}
			if res.Lowest == nil || entry.Value < res.Lowest.Value {
				lowest := entry
				res.Lowest = &lowest
			}
		case models.ValidationInvalid:
			res.InvalidSequenceNumbers = append(res.InvalidSequenceNumbers, row.SequenceNumber)
			eval.InvalidRowIDs = append(eval.InvalidRowIDs, row.ID)
		}
	}

	if res.Count > 0 {
		res.Average = RoundAverage(res.Sum / float64(res.Count))
	}
	res.Percent = Percent(res.Average)
	return eval
}

// ClassifyGrade parses raw grade text. Blank text is ValidationUnchecked; a
// comma decimal separator is accepted in place of the dot.
func ClassifyGrade(raw string) (float64, models.ValidationState) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, models.ValidationUnchecked
	}
	text = strings.Replace(text, ",", ".", 1)
	if !decimalPattern.MatchString(text) {
		return 0, models.ValidationInvalid
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, models.ValidationInvalid
	}
	if value < MinGrade || value > MaxGrade {
		return 0, models.ValidationInvalid
	}
	return value, models.ValidationValid
}

// RoundAverage rounds to one fractional digit, halves away from zero.
func RoundAverage(v float64) float64 {
	return math.Round(v*10) / 10
}

// Percent expresses a rounded average on the 0..10 scale as a whole percentage.
func Percent(average float64) int {
	return int(math.Round(average / MaxGrade * 100))
}
