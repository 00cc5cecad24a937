package tabular

import (
	"strings"

	"github.com/araddon/dateparse"

	"github.com/firegrid/firegrid-engine/pkg/models"
)

// DefaultInferenceSample is how many rows InferColumns inspects per column.
const DefaultInferenceSample = 100

// InferColumns guesses a type for every column from up to sample non-blank values.
// A column is numeric or temporal only when every sampled value parses that way.
// The result is advisory; nothing downstream enforces it.
func InferColumns(t *models.Table, sample int) []models.Column {
	if sample <= 0 {
		sample = DefaultInferenceSample
	}

	out := make([]models.Column, 0, len(t.Columns))
	for _, name := range t.Columns {
		out = append(out, models.Column{Name: name, Type: inferColumn(t, name, sample)})
	}
	return out
}

func inferColumn(t *models.Table, name string, sample int) models.ColumnType {
	seen, numeric, temporal := 0, 0, 0
	for _, row := range t.Rows {
		if seen >= sample {
			break
		}
		v, ok := row[name]
		if !ok || IsBlank(v) {
			continue
		}
		seen++

		if _, ok := CellFloat(v); ok {
			numeric++
			continue
		}
		if s, ok := v.(string); ok && looksTemporal(s) {
			temporal++
		}
	}

	switch {
	case seen == 0:
		return models.ColumnUnknown
	case numeric == seen:
		return models.ColumnNumeric
	case temporal == seen:
		return models.ColumnTemporal
	default:
		return models.ColumnText
	}
}

func looksTemporal(s string) bool {
	s = strings.TrimSpace(s)
	// dateparse accepts bare integers as timestamps; those were already counted as numeric.
	if len(s) < 4 {
		return false
	}
	_, err := dateparse.ParseAny(s)
	return err == nil
}
