package tabular

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/firegrid/firegrid-engine/pkg/apperrors"
	"github.com/firegrid/firegrid-engine/pkg/models"
)

// ExportFormat is a serialization target for formatted data.
type ExportFormat string

const (
	ExportCSV   ExportFormat = "csv"
	ExportJSON  ExportFormat = "json"
	ExportExcel ExportFormat = "excel"
)

// ExportFormats lists the supported export targets.
var ExportFormats = []ExportFormat{ExportCSV, ExportJSON, ExportExcel}

// ParseExportFormat validates a requested format. "xlsx" is accepted for excel.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return ExportCSV, nil
	case "json":
		return ExportJSON, nil
	case "excel", "xlsx":
		return ExportExcel, nil
	default:
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnsupportedExportFormat, s)
	}
}

// ExportPayload is a serialized table.
type ExportPayload struct {
	Format    ExportFormat
	MediaType string
	Extension string
	Data      []byte
}

// Base64 returns the payload for inline delivery inside a JSON response.
func (p *ExportPayload) Base64() string {
	return base64.StdEncoding.EncodeToString(p.Data)
}

// Export serializes a table. Rows are written in table order and columns in
// t.Columns order; cells missing from a row are written empty.
func Export(t *models.Table, format ExportFormat) (*ExportPayload, error) {
	switch format {
	case ExportCSV:
		data, err := writeCSV(t)
		if err != nil {
			return nil, err
		}
		return &ExportPayload{Format: format, MediaType: "text/csv", Extension: "csv", Data: data}, nil
	case ExportJSON:
		data, err := writeJSON(t)
		if err != nil {
			return nil, err
		}
		return &ExportPayload{Format: format, MediaType: "application/json", Extension: "json", Data: data}, nil
	case ExportExcel:
		data, err := writeXLSX(t)
		if err != nil {
			return nil, err
		}
		return &ExportPayload{
			Format:    format,
			MediaType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Extension: "xlsx",
			Data:      data,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedExportFormat, format)
	}
}

func writeCSV(t *models.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, c := range t.Columns {
			record[i] = CellString(row[c])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func writeJSON(t *models.Table) ([]byte, error) {
	out := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for _, c := range t.Columns {
			rec[c] = row[c]
		}
		out = append(out, rec)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	return data, nil
}
