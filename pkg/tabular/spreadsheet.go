package tabular

import (
	"bytes"
	"fmt"
	"io"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/firegrid/firegrid-engine/pkg/apperrors"
	"github.com/firegrid/firegrid-engine/pkg/models"
)

// parseXLSX reads the first worksheet of an Office Open XML workbook.
func parseXLSX(data []byte) (*models.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.ErrEmptyDataset
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return gridToTable(rows)
}

// parseXLS reads the first sheet of a legacy BIFF workbook.
func parseXLS(data []byte) (*models.Table, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, apperrors.ErrEmptyDataset
	}

	var grid [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		grid = append(grid, cells)
	}
	return gridToTable(grid)
}

// xlsRow returns nil for rows the sheet never stored. WorkSheet.Row panics on those.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func gridToTable(grid [][]string) (*models.Table, error) {
	// Skip leading blank rows some exports place above the header.
	for len(grid) > 0 && blankRecord(grid[0]) {
		grid = grid[1:]
	}
	if len(grid) == 0 {
		return nil, apperrors.ErrEmptyDataset
	}

	headers, body := grid[0], grid[1:]
	width := len(headers)
	for _, r := range body {
		if len(r) > width {
			width = len(r)
		}
	}
	for len(headers) < width {
		headers = append(headers, "")
	}

	i := 0
	return recordsToTable(headers, func() ([]string, error) {
		if i >= len(body) {
			return nil, io.EOF
		}
		i++
		return body[i-1], nil
	})
}

// writeXLSX renders a table as a single-sheet workbook.
func writeXLSX(t *models.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for r, row := range t.Rows {
		cells := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			cells[i] = spreadsheetCell(row[c])
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", r+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func spreadsheetCell(v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case string, float64, int, int64, bool:
		return val
	default:
		return CellString(val)
	}
}
