package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/gradesheet/internal/models"
	appErrors "github.com/noah-isme/gradesheet/pkg/errors"
	"github.com/noah-isme/gradesheet/pkg/export"
)

// ExportFormat enumerates supported sheet export formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

const (
	colSequence = "#"
	colSubject  = "Subject"
	colGrade    = "Grade"
	colStatus   = "Status"
)

// ExportFile is a rendered export ready to be served or written.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type sheetStatistics interface {
	Statistics(ctx context.Context, id string) ([]models.Row, *models.StatisticsResult, error)
}

// ExportService renders a sheet and its statistics into downloadable files.
type ExportService struct {
	sheets  sheetStatistics
	csv     csvRenderer
	pdf     pdfRenderer
	xlsx    xlsxRenderer
	title   string
	metrics *MetricsService
	logger  *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export defaults.
func NewExportService(sheets sheetStatistics, title string, metrics *MetricsService, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, xlsx xlsxRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	if title == "" {
		title = "Grade sheet"
	}
	return &ExportService{sheets: sheets, csv: csv, pdf: pdf, xlsx: xlsx, title: title, metrics: metrics, logger: logger}
}

// ParseExportFormat normalises a format name.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch format := ExportFormat(strings.ToLower(strings.TrimSpace(raw))); format {
	case "":
		return ExportFormatCSV, nil
	case ExportFormatCSV, ExportFormatPDF, ExportFormatXLSX:
		return format, nil
	default:
		return "", appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", raw))
	}
}

// Export renders the stored sheet.
func (s *ExportService) Export(ctx context.Context, sheetID string, format ExportFormat) (*ExportFile, error) {
	rows, result, err := s.sheets.Statistics(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	file, err := s.Render(rows, *result, format)
	if err != nil {
		return nil, err
	}
	file.Filename = fmt.Sprintf("gradesheet-%s.%s", sheetID, format)
	s.metrics.RecordExport(string(format))
	s.logger.Info("sheet exported", zap.String("sheet_id", sheetID), zap.String("format", string(format)), zap.Int("bytes", len(file.Body)))
	return file, nil
}

// Render turns rows and their statistics into a file of the requested format.
func (s *ExportService) Render(rows []models.Row, result models.StatisticsResult, format ExportFormat) (*ExportFile, error) {
	data := BuildDataset(rows, result)
	var (
		body        []byte
		contentType string
		err         error
	)
	switch format {
	case ExportFormatCSV:
		body, err = s.csv.Render(data)
		contentType = "text/csv"
	case ExportFormatPDF:
		body, err = s.pdf.Render(data, s.title)
		contentType = "application/pdf"
	case ExportFormatXLSX:
		body, err = s.xlsx.Render(data)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{Filename: "gradesheet." + string(format), ContentType: contentType, Body: body}, nil
}

// BuildDataset lays out rows and the summary block shared by every format.
func BuildDataset(rows []models.Row, result models.StatisticsResult) export.Dataset {
	data := export.Dataset{Headers: []string{colSequence, colSubject, colGrade, colStatus}}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			colSequence: strconv.Itoa(row.SequenceNumber),
			colSubject:  row.Subject,
			colGrade:    row.GradeText,
			colStatus:   string(row.State),
		})
	}

	highest, lowest := "-", "-"
	if result.Highest != nil {
		highest = fmt.Sprintf("%s (%s)", FormatGrade(result.Highest.Value), result.Highest.Subject)
	}
	if result.Lowest != nil {
		lowest = fmt.Sprintf("%s (%s)", FormatGrade(result.Lowest.Value), result.Lowest.Subject)
	}
	invalid := "-"
	if len(result.InvalidSequenceNumbers) > 0 {
		parts := make([]string, len(result.InvalidSequenceNumbers))
		for i, n := range result.InvalidSequenceNumbers {
			parts[i] = strconv.Itoa(n)
		}
		invalid = strings.Join(parts, ", ")
	}
	data.Summary = []export.SummaryLine{
		{Label: "Average", Value: FormatGrade(result.Average)},
		{Label: "Highest", Value: highest},
		{Label: "Lowest", Value: lowest},
		{Label: "Percent", Value: strconv.Itoa(result.Percent) + "%"},
		{Label: "Valid disciplines", Value: strconv.Itoa(result.Count)},
		{Label: "Invalid disciplines", Value: invalid},
	}
	return data
}
