package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Sheet1"

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes headers on row 1, data below, then the summary after one blank row.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := writeXLSXRow(f, 1, data.Headers); err != nil {
		return nil, err
	}
	line := 2
	for _, row := range data.Rows {
		if err := writeXLSXRow(f, line, data.record(row)); err != nil {
			return nil, err
		}
		line++
	}
	if len(data.Summary) > 0 {
		line++
		for _, s := range data.Summary {
			if err := writeXLSXRow(f, line, []string{s.Label, s.Value}); err != nil {
				return nil, err
			}
			line++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeXLSXRow(f *excelize.File, line int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		return fmt.Errorf("xlsx cell name: %w", err)
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
		return fmt.Errorf("write xlsx row %d: %w", line, err)
	}
	return nil
}
