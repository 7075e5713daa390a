package core

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// readXLSX reads the first sheet of an OOXML workbook. Raw cell values are
// used so numbers are not passed through their display format.
func readXLSX(data []byte) ([][]Value, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	grid := make([][]Value, len(rows))
	for r, cells := range rows {
		grid[r] = make([]Value, len(cells))
		for c, raw := range cells {
			if raw == "" {
				continue
			}
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(sheet, name)
			if err != nil {
				return nil, fmt.Errorf("cell %s: %w", name, err)
			}
			grid[r][c] = xlsxCell(raw, typ)
		}
	}
	return grid, nil
}

func xlsxCell(raw string, typ excelize.CellType) Value {
	switch typ {
	case excelize.CellTypeBool:
		return Bool(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return Number(f)
		}
		return String(raw)
	case excelize.CellTypeFormula:
		return coerceText(raw)
	default:
		return String(raw)
	}
}
