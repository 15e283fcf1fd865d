package parser

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVExtractor lays each record out as one row of side-by-side cells.
type CSVExtractor struct{}

func (p *CSVExtractor) Extract(r io.Reader, filename string) (*Extraction, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	l := newLayout()
	for _, rec := range records {
		l.row(rec, bodyStyle)
	}
	l.gap(bodyStyle)
	return fromLayout("", l), nil
}
