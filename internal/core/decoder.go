package core

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Format is an accepted spreadsheet file format.
type Format string

const (
	FormatXLSX Format = ".xlsx"
	FormatXLS  Format = ".xls"
	FormatCSV  Format = ".csv"
)

// acceptedFormats is the ingestion allow-list, matched as an exact
// (case-sensitive) suffix of the file name. A bare ".csv" is accepted.
var acceptedFormats = []Format{FormatXLSX, FormatXLS, FormatCSV}

// CheckExtension validates name against the allow-list and returns the
// matching format. It never looks at file contents.
func CheckExtension(name string) (Format, error) {
	for _, f := range acceptedFormats {
		if strings.HasSuffix(name, string(f)) {
			return f, nil
		}
	}
	return "", &UnsupportedFormatError{FileName: name}
}

// Decoder turns a file buffer into loosely-typed rows from its first sheet.
type Decoder interface {
	Decode(data []byte, format Format) ([]Row, error)
}

// SheetDecoder is the default Decoder backed by excelize, extrame/xls and
// encoding/csv.
type SheetDecoder struct {
	log *slog.Logger
}

// NewSheetDecoder returns a SheetDecoder logging through log (or the
// default logger when nil).
func NewSheetDecoder(log *slog.Logger) *SheetDecoder {
	if log == nil {
		log = slog.Default()
	}
	return &SheetDecoder{log: log}
}

// Decode parses data as format. Any failure, including a panic inside the
// underlying library, is reported as a *DecodeError with no partial rows.
func (d *SheetDecoder) Decode(data []byte, format Format) (rows []Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = &DecodeError{Format: format, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	var grid [][]Value
	switch format {
	case FormatXLSX:
		grid, err = readXLSX(data)
	case FormatXLS:
		grid, err = readXLS(data)
	case FormatCSV:
		grid, err = readCSV(data)
	default:
		return nil, &UnsupportedFormatError{FileName: string(format)}
	}
	if err != nil {
		return nil, &DecodeError{Format: format, Err: err}
	}

	rows = gridToRows(grid)
	d.log.Debug("sheet decoded", "format", string(format), "rows", len(rows))
	return rows, nil
}

// gridToRows treats the first non-blank row as the header and turns every
// following non-blank row into a Row keyed by header.
func gridToRows(grid [][]Value) []Row {
	start := -1
	for i, cells := range grid {
		if !blankRow(cells) {
			start = i
			break
		}
	}
	if start < 0 {
		return []Row{}
	}

	width := len(grid[start])
	for _, cells := range grid[start+1:] {
		width = max(width, len(cells))
	}
	header := headerNames(grid[start], width)

	rows := make([]Row, 0, len(grid)-start-1)
	for _, cells := range grid[start+1:] {
		if blankRow(cells) {
			continue
		}
		var row Row
		for c, v := range cells {
			if v.IsNull() {
				continue
			}
			row = append(row, Field{Name: header[c], Value: v})
		}
		rows = append(rows, row)
	}
	return rows
}

// headerNames stringifies header cells as written, padded to width. Empty
// cells become __EMPTY, __EMPTY_1, ...; repeated names get _1, _2, ...
// suffixes.
func headerNames(cells []Value, width int) []string {
	names := make([]string, width)
	seen := make(map[string]int)
	for i := range names {
		var name string
		if i < len(cells) {
			name = cells[i].Display()
		}
		if name == "" {
			name = "__EMPTY"
		}
		names[i] = uniqueName(name, seen)
	}
	return names
}

func uniqueName(name string, seen map[string]int) string {
	n, dup := seen[name]
	if !dup {
		seen[name] = 0
		return name
	}
	for {
		n++
		candidate := name + "_" + strconv.Itoa(n)
		if _, taken := seen[candidate]; !taken {
			seen[name] = n
			seen[candidate] = 0
			return candidate
		}
	}
}

func blankRow(cells []Value) bool {
	for _, v := range cells {
		if !v.IsNull() {
			return false
		}
	}
	return true
}
