package export

// Dataset defines tabular export content with an optional trailing summary.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	Summary []SummaryLine
}

// SummaryLine is a labelled value printed below the table.
type SummaryLine struct {
	Label string
	Value string
}

func (d Dataset) record(row map[string]string) []string {
	record := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		record[i] = row[header]
	}
	return record
}
