package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/firegrid/firegrid-engine/pkg/models"
)

func TestInferColumns(t *testing.T) {
	table := &models.Table{
		Columns: []string{"lat", "alarm_date", "call_type", "empty"},
		Rows: []models.Row{
			{"lat": "33.45", "alarm_date": "2024-01-05 10:15:00", "call_type": "STRUCTURE FIRE", "empty": ""},
			{"lat": 33.5, "alarm_date": "01/06/2024", "call_type": "MEDICAL AID", "empty": nil},
		},
	}

	cols := InferColumns(table, 0)

	assert.Equal(t, []models.Column{
		{Name: "lat", Type: models.ColumnNumeric},
		{Name: "alarm_date", Type: models.ColumnTemporal},
		{Name: "call_type", Type: models.ColumnText},
		{Name: "empty", Type: models.ColumnUnknown},
	}, cols)
}
