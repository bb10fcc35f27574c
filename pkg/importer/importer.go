package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Record is one discipline line read from a file. A line without a grade
// column yields an empty Grade. Line is the 1-based line (or worksheet row)
// the record came from.
type Record struct {
	Line    int
	Subject string
	Grade   string
}

type sourceLine struct {
	num    int
	fields []string
}

var headerLabels = map[string]struct{}{
	"subject":    {},
	"disciplina": {},
	"discipline": {},
}

// ReadFile dispatches on the file extension (.csv or .xlsx).
func ReadFile(path string) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported input %q: want .csv or .xlsx", filepath.Ext(path))
	}
}

// ReadCSV reads subject,grade records. Both comma and semicolon separated
// files are accepted. In a comma separated file an unquoted comma decimal
// grade spills into extra fields, which are joined back into the grade.
func ReadCSV(r io.Reader) ([]Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	reader := csv.NewReader(strings.NewReader(string(raw)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if strings.Contains(firstLine(string(raw)), ";") {
		reader.Comma = ';'
	}

	var lines []sourceLine
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		num, _ := reader.FieldPos(0)
		if reader.Comma == ',' && len(fields) > 2 {
			fields = []string{fields[0], strings.Join(fields[1:], ",")}
		}
		lines = append(lines, sourceLine{num: num, fields: fields})
	}
	return fromLines(lines), nil
}

// ReadXLSX reads subject,grade records from the first worksheet.
func ReadXLSX(path string) ([]Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows from %s: %w", sheets[0], err)
	}
	lines := make([]sourceLine, len(rows))
	for i, row := range rows {
		lines[i] = sourceLine{num: i + 1, fields: row}
	}
	return fromLines(lines), nil
}

func fromLines(lines []sourceLine) []Record {
	records := make([]Record, 0, len(lines))
	for i, src := range lines {
		line := src.fields
		if len(line) == 0 || (len(line) == 1 && strings.TrimSpace(line[0]) == "") {
			continue
		}
		subject := strings.TrimSpace(line[0])
		if i == 0 {
			if _, isHeader := headerLabels[strings.ToLower(subject)]; isHeader {
				continue
			}
		}
		rec := Record{Line: src.num, Subject: subject}
		if len(line) > 1 {
			rec.Grade = line[1]
		}
		records = append(records, rec)
	}
	return records
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
