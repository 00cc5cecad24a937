// Package models contains domain types for the firegrid engine.
package models

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileFormat identifies how an uploaded file is laid out.
type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatXLSX FileFormat = "xlsx"
	FormatXLS  FileFormat = "xls"
	FormatJSON FileFormat = "json"
	FormatXML  FileFormat = "xml"
)

// AllFileFormats lists every format the parser understands.
var AllFileFormats = []FileFormat{FormatCSV, FormatXLSX, FormatXLS, FormatJSON, FormatXML}

// FormatFromFilename derives the file format from the filename's extension.
// Returns false when the extension is not a known format.
func FormatFromFilename(filename string) (FileFormat, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	for _, f := range AllFileFormats {
		if string(f) == ext {
			return f, true
		}
	}
	return "", false
}

// IsSpreadsheet reports whether the format is a workbook.
func (f FileFormat) IsSpreadsheet() bool {
	return f == FormatXLSX || f == FormatXLS
}

// Transformable reports whether datasets of this format can feed the transformation engine.
// Markup uploads are accepted for analysis only.
func (f FileFormat) Transformable() bool {
	return f != FormatXML && f != ""
}

// UploadedDataset is the metadata of a file uploaded to the data formatter.
// The raw bytes live on durable storage under StoragePath.
type UploadedDataset struct {
	ID           uuid.UUID  `json:"id"`
	DepartmentID uuid.UUID  `json:"department_id"`
	Filename     string     `json:"filename"`
	Format       FileFormat `json:"file_type"`
	RowCount     int        `json:"row_count"`
	Columns      []string   `json:"columns"`
	SystemType   SystemType `json:"system_type"`
	StoragePath  string     `json:"-"`
	SizeBytes    int64      `json:"size_bytes"`
	CreatedAt    time.Time  `json:"created_at"`
}
