package apperrors

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrUnsupportedFormat       = errors.New("unsupported file format")
	ErrEmptyDataset            = errors.New("dataset contains no rows")
	ErrNotTransformable        = errors.New("file format cannot be used as a transform source")
	ErrUnknownTool             = errors.New("unknown target tool")
	ErrUnsupportedExportFormat = errors.New("unsupported export format")
	ErrNoTransformedData       = errors.New("no transformed data available")
	ErrEncryptionKeyMismatch   = errors.New("stored upload was encrypted with a different key")
)
