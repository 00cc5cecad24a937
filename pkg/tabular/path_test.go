package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/firegrid/firegrid-engine/pkg/models"
)

func TestResolveField(t *testing.T) {
	row := models.Row{
		"incident_id": "I-1",
		"a.b":         "dotted column",
		"stations": []any{
			map[string]any{"name": "S1", "coordinates": map[string]any{"lat": 33.4}},
		},
		"units": []any{
			map[string]any{"id": "E1"},
			map[string]any{"id": "L2"},
		},
		"location": map[string]any{"lat": "33.5"},
	}

	tests := []struct {
		name   string
		spec   string
		want   any
		wantOK bool
	}{
		{"plain column", "incident_id", "I-1", true},
		{"column containing a dot wins", "a.b", "dotted column", true},
		{"nested map", "location.lat", "33.5", true},
		{"single element array unwraps", "stations.coordinates.lat", 33.4, true},
		{"numeric index", "units.1.id", "L2", true},
		{"array projection", "units.id", []any{"E1", "L2"}, true},
		{"index out of range", "units.5.id", nil, false},
		{"missing column", "nope", nil, false},
		{"missing nested key", "location.lng", nil, false},
		{"path through scalar", "incident_id.x", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveField(row, tt.spec)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
