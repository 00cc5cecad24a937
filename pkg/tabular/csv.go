package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/firegrid/firegrid-engine/pkg/apperrors"
	"github.com/firegrid/firegrid-engine/pkg/models"
)

// parseCSV reads delimited text with a header row. Rows shorter than the header are
// padded with empty strings, longer rows are truncated, blank lines are skipped.
func parseCSV(data []byte) (*models.Table, error) {
	decoded, _, err := DecodeText(data)
	if err != nil {
		return nil, fmt.Errorf("encoding detection failed: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.ErrEmptyDataset
		}
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	return recordsToTable(headers, func() ([]string, error) {
		return reader.Read()
	})
}

// recordsToTable builds a table from a header row and a record iterator that returns io.EOF
// when exhausted. Shared by the delimited-text and spreadsheet readers.
func recordsToTable(headers []string, next func() ([]string, error)) (*models.Table, error) {
	columns := NormalizeHeaders(headers)
	table := models.NewTable(columns...)
	line := 1

	for {
		record, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}
		if blankRecord(record) {
			continue
		}

		row := make(models.Row, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	if len(table.Rows) == 0 {
		return nil, apperrors.ErrEmptyDataset
	}
	return table, nil
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
