package core

import (
	"bytes"
	"errors"

	"github.com/extrame/xls"
)

// readXLS reads the first sheet of a legacy BIFF (.xls) workbook. The
// reader hands back formatted text, so cells are typed with coerceText.
func readXLS(data []byte) ([][]Value, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if wb.NumSheets() == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("first sheet unreadable")
	}

	grid := make([][]Value, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		// LastCol is one past the last used column.
		cells := make([]Value, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = coerceText(row.Col(c))
		}
		grid = append(grid, cells)
	}
	return grid, nil
}
