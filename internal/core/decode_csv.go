package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// readCSV parses a CSV buffer into typed cells. A UTF-8 or UTF-16 BOM
// selects the input encoding; invalid UTF-8 is replaced with U+FFFD.
func readCSV(data []byte) ([][]Value, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	r := csv.NewReader(transform.NewReader(bytes.NewReader(data), dec))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var grid [][]Value
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		cells := make([]Value, len(record))
		for i, s := range record {
			cells[i] = coerceText(s)
		}
		grid = append(grid, cells)
	}
	return grid, nil
}
