// Package tabular reads uploaded CAD/RMS exports into tables and writes tables back out.
package tabular

import (
	"fmt"

	"github.com/firegrid/firegrid-engine/pkg/apperrors"
	"github.com/firegrid/firegrid-engine/pkg/models"
)

// ParseOptions restricts what Parse accepts.
type ParseOptions struct {
	// AllowedFormats is the accepted set; empty means every known format.
	AllowedFormats []models.FileFormat
}

// Allows reports whether the format is accepted.
func (o ParseOptions) Allows(f models.FileFormat) bool {
	if len(o.AllowedFormats) == 0 {
		return true
	}
	for _, a := range o.AllowedFormats {
		if a == f {
			return true
		}
	}
	return false
}

// DetectFormat resolves the file format from the filename and checks it against the options.
func DetectFormat(filename string, opts ParseOptions) (models.FileFormat, error) {
	format, ok := models.FormatFromFilename(filename)
	if !ok || !opts.Allows(format) {
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, filename)
	}
	return format, nil
}

// Parse reads file bytes into a table. The format comes from the filename extension.
// Fails with apperrors.ErrUnsupportedFormat for extensions outside the accepted set and
// apperrors.ErrEmptyDataset when no data rows remain.
func Parse(filename string, data []byte, opts ParseOptions) (*models.Table, models.FileFormat, error) {
	format, err := DetectFormat(filename, opts)
	if err != nil {
		return nil, "", err
	}
	table, err := ParseFormat(format, data)
	if err != nil {
		return nil, format, err
	}
	return table, format, nil
}

// ParseFormat reads bytes already known to be in the given format.
func ParseFormat(format models.FileFormat, data []byte) (*models.Table, error) {
	if len(data) == 0 {
		return nil, apperrors.ErrEmptyDataset
	}

	switch format {
	case models.FormatCSV:
		return parseCSV(data)
	case models.FormatJSON:
		return parseJSON(data)
	case models.FormatXML:
		return parseXML(data)
	case models.FormatXLSX:
		return parseXLSX(data)
	case models.FormatXLS:
		return parseXLS(data)
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, format)
	}
}
