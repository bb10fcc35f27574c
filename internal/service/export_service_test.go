package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/gradesheet/internal/models"
	appErrors "github.com/noah-isme/gradesheet/pkg/errors"
	"github.com/noah-isme/gradesheet/pkg/export"
)

type statisticsStub struct {
	rows   []models.Row
	result models.StatisticsResult
	err    error
}

func (s statisticsStub) Statistics(ctx context.Context, id string) ([]models.Row, *models.StatisticsResult, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	res := s.result
	return s.rows, &res, nil
}

type failingRenderer struct{}

func (failingRenderer) Render(data export.Dataset) ([]byte, error) {
	return nil, errors.New("boom")
}

func sampleStatistics() statisticsStub {
	return statisticsStub{
		rows: []models.Row{
			{ID: "a", SequenceNumber: 1, Subject: "Matemática", GradeText: "9", State: models.ValidationValid},
			{ID: "b", SequenceNumber: 2, Subject: "História", GradeText: "abc", State: models.ValidationInvalid},
			{ID: "c", SequenceNumber: 3, Subject: "Física", GradeText: "7,5", State: models.ValidationValid},
		},
		result: models.StatisticsResult{
			Average:                8.3,
			Count:                  2,
			Sum:                    16.5,
			Highest:                &models.GradeEntry{Value: 9, Subject: "Matemática", SequenceNumber: 1},
			Lowest:                 &models.GradeEntry{Value: 7.5, Subject: "Física", SequenceNumber: 3},
			Percent:                83,
			InvalidSequenceNumbers: []int{2},
		},
	}
}

func TestParseExportFormat(t *testing.T) {
	cases := map[string]ExportFormat{
		"":      ExportFormatCSV,
		"csv":   ExportFormatCSV,
		" PDF ": ExportFormatPDF,
		"xlsx":  ExportFormatXLSX,
	}
	for raw, want := range cases {
		got, err := ParseExportFormat(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	_, err := ParseExportFormat("docx")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnsupportedFormat))
}

func TestExportServiceCSV(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewExportService(sampleStatistics(), "", metrics, zap.NewNop(), nil, nil, nil)

	file, err := svc.Export(context.Background(), "sheet-1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "gradesheet-sheet-1.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	r := csv.NewReader(bytes.NewReader(file.Body))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"#", "Subject", "Grade", "Status"}, records[0])
	assert.Equal(t, []string{"2", "História", "abc", "invalid"}, records[2])
	assert.Contains(t, records, []string{"Highest", "9 (Matemática)"})
	assert.Contains(t, records, []string{"Percent", "83%"})
	assert.Contains(t, records, []string{"Invalid disciplines", "2"})

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.exportsGenerated.WithLabelValues("csv")))
}

func TestExportServicePDFAndXLSX(t *testing.T) {
	svc := NewExportService(sampleStatistics(), "Boletim", nil, nil, nil, nil, nil)

	pdf, err := svc.Export(context.Background(), "s", ExportFormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf.Body, []byte("%PDF")))
	assert.Equal(t, "application/pdf", pdf.ContentType)

	xlsx, err := svc.Export(context.Background(), "s", ExportFormatXLSX)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(xlsx.Body, []byte("PK")))
	assert.Equal(t, "gradesheet-s.xlsx", xlsx.Filename)
}

func TestExportServiceErrors(t *testing.T) {
	missing := statisticsStub{err: appErrors.ErrSheetNotFound}
	svc := NewExportService(missing, "", nil, nil, nil, nil, nil)
	_, err := svc.Export(context.Background(), "s", ExportFormatCSV)
	assert.True(t, appErrors.Is(err, appErrors.ErrSheetNotFound))

	svc = NewExportService(sampleStatistics(), "", nil, nil, failingRenderer{}, nil, nil)
	_, err = svc.Export(context.Background(), "s", ExportFormatCSV)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))

	_, err = svc.Render(nil, models.StatisticsResult{}, ExportFormat("odt"))
	assert.True(t, appErrors.Is(err, appErrors.ErrUnsupportedFormat))
}

func TestBuildDatasetEmptyResult(t *testing.T) {
	data := BuildDataset(nil, models.StatisticsResult{})
	assert.Empty(t, data.Rows)
	require.Len(t, data.Summary, 6)
	assert.Equal(t, export.SummaryLine{Label: "Average", Value: "0"}, data.Summary[0])
	assert.Equal(t, "-", data.Summary[1].Value)
	assert.Equal(t, "0%", data.Summary[3].Value)
	assert.Equal(t, "-", data.Summary[5].Value)
}
