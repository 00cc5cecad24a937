package formatter

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firegrid/firegrid-engine/pkg/apperrors"
	"github.com/firegrid/firegrid-engine/pkg/models"
)

func TestTransform_HeatmapDropsInvalidCoordinates(t *testing.T) {
	table := &models.Table{
		Columns: []string{"lat", "lon"},
		Rows: []models.Row{
			{"lat": "33.45", "lon": "-112.07"},
			{"lat": "999", "lon": "-112.07"},
		},
	}
	mapping := models.FieldMapping{"latitude": "lat", "longitude": "lon"}

	ds, err := Transform(table, mapping, models.ToolCallDensity, models.SystemUnknown)
	require.NoError(t, err)

	assert.Equal(t, []string{"lat", "lng", "weight"}, ds.Columns)
	assert.Equal(t, []models.Row{{"lat": 33.45, "lng": -112.07, "weight": 1}}, ds.Rows)
}

func TestTransform_GeoRowsStayInRange(t *testing.T) {
	table := &models.Table{
		Columns: []string{"Latitude", "Longitude"},
		Rows: []models.Row{
			{"Latitude": "-90", "Longitude": "180"},
			{"Latitude": "90.0001", "Longitude": "0"},
			{"Latitude": "10", "Longitude": "-180.5"},
			{"Latitude": "", "Longitude": "5"},
			{"Latitude": "abc", "Longitude": "5"},
			{"Latitude": 45.5, "Longitude": -122.6},
		},
	}

	ds, err := Transform(table, nil, models.ToolCallDensity, models.SystemUnknown)
	require.NoError(t, err)

	require.Len(t, ds.Rows, 2)
	for _, row := range ds.Rows {
		lat := row["lat"].(float64)
		lng := row["lng"].(float64)
		assert.True(t, lat >= -90 && lat <= 90)
		assert.True(t, lng >= -180 && lng <= 180)
	}
}

func TestTransform_CoverageGapUsesMappingFallback(t *testing.T) {
	table := &models.Table{
		Columns: []string{"geo", "nature", "when"},
		Rows: []models.Row{
			{"geo": map[string]any{"north": 33.4, "east": -112.1}, "nature": "FIRE", "when": "2024-03-01"},
			{"geo": map[string]any{"north": 33.5}, "nature": "EMS", "when": "2024-03-02"},
		},
	}
	mapping := models.FieldMapping{
		"latitude":      "geo.north",
		"longitude":     "geo.east",
		"incident_type": "nature",
	}

	ds, err := Transform(table, mapping, models.ToolCoverageGap, models.SystemUnknown)
	require.NoError(t, err)

	assert.Equal(t, []string{"latitude", "longitude", "type", "date"}, ds.Columns)
	assert.Equal(t, []models.Row{
		{"latitude": 33.4, "longitude": -112.1, "type": "FIRE", "date": ""},
	}, ds.Rows)
}

func TestTransform_HeatmapPrefersWordMatchOverInfix(t *testing.T) {
	table := &models.Table{
		Columns: []string{"incident_number", "related_incident", "gps_latitude", "gps_longitude"},
		Rows: []models.Row{
			{"incident_number": "24-0001", "related_incident": "24-0000", "gps_latitude": "33.45", "gps_longitude": "-112.07"},
		},
	}
	mapping := models.FieldMapping{"latitude": "gps_latitude", "longitude": "gps_longitude"}

	ds, err := Transform(table, mapping, models.ToolCallDensity, models.SystemUnknown)
	require.NoError(t, err)

	assert.Equal(t, []models.Row{{"lat": 33.45, "lng": -112.07, "weight": 1}}, ds.Rows)
}

func TestTransform_GeoFallsBackToMappingWhenNamedColumnsHoldNoCoordinates(t *testing.T) {
	table := &models.Table{
		Columns: []string{"translated_address", "lon_zone", "y_pos", "x_pos"},
		Rows: []models.Row{
			{"translated_address": "1 Main St", "lon_zone": "W", "y_pos": "33.45", "x_pos": "-112.07"},
			{"translated_address": "2 Oak Ave", "lon_zone": "E", "y_pos": "95", "x_pos": "-112.07"},
		},
	}
	mapping := models.FieldMapping{"latitude": "y_pos", "longitude": "x_pos"}

	ds, err := Transform(table, mapping, models.ToolCoverageGap, models.SystemUnknown)
	require.NoError(t, err)

	assert.Equal(t, []models.Row{
		{"latitude": 33.45, "longitude": -112.07, "type": "", "date": ""},
	}, ds.Rows)
}

func TestPartialRank(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{name: "gps_latitude", want: 2},
		{name: "Lat Deg", want: 2},
		{name: "related_incident", want: 1},
		{name: "escalation", want: 1},
		{name: "address", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, partialRank(tt.name, []string{"lat"}))
		})
	}
}

func TestTransform_ResponseTime(t *testing.T) {
	table := &models.Table{
		Columns: []string{"Inc#", "Disp", "OnScene"},
		Rows: []models.Row{
			{"Inc#": "F24-1", "Disp": "10:00", "OnScene": "10:06"},
			{"Inc#": "", "Disp": "11:00", "OnScene": "11:09"},
		},
	}
	mapping := models.FieldMapping{
		"incident_number": "Inc#",
		"dispatch_time":   "Disp",
		"arrival_time":    "OnScene",
	}

	ds, err := Transform(table, mapping, models.ToolResponseTime, models.SystemFireRMS)
	require.NoError(t, err)

	assert.Equal(t, models.SystemFireRMS, ds.SystemType)
	assert.Equal(t, []string{"incident_id", "dispatch_time", "arrival_time"}, ds.Columns)
	assert.Equal(t, []models.Row{
		{"incident_id": "F24-1", "dispatch_time": "10:00", "arrival_time": "10:06"},
		{"incident_id": "INC-000002", "dispatch_time": "11:00", "arrival_time": "11:09"},
	}, ds.Rows)
}

func TestTransform_ForecasterCountsPerDay(t *testing.T) {
	table := &models.Table{
		Columns: []string{"call_received"},
		Rows: []models.Row{
			{"call_received": "2024-01-02 10:00:00"},
			{"call_received": "2024-01-01 09:00:00"},
			{"call_received": "01/02/2024 13:00"},
			{"call_received": "not a date"},
			{"call_received": ""},
		},
	}
	mapping := models.FieldMapping{"incident_date": "call_received"}

	ds, err := Transform(table, mapping, models.ToolCallForecaster, models.SystemUnknown)
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "count"}, ds.Columns)
	assert.Equal(t, []models.Row{
		{"date": "2024-01-01", "count": 1},
		{"date": "2024-01-02", "count": 2},
	}, ds.Rows)
}

func TestTransform_ForecasterFindsDateColumnByName(t *testing.T) {
	table := &models.Table{
		Columns: []string{"unit", "alarm_date"},
		Rows:    []models.Row{{"unit": "E1", "alarm_date": "2024-05-05"}},
	}

	ds, err := Transform(table, nil, models.ToolCallForecaster, models.SystemUnknown)
	require.NoError(t, err)

	assert.Equal(t, []models.Row{{"date": "2024-05-05", "count": 1}}, ds.Rows)
}

func TestTransform_IdentityKeepsCatalogOrderThenExtras(t *testing.T) {
	table := &models.Table{
		Columns: []string{"Notes", "ID", "Type"},
		Rows:    []models.Row{{"Notes": "smoke showing", "ID": "1", "Type": "FIRE"}},
	}
	mapping := models.FieldMapping{
		"zz_custom":     "Notes",
		"incident_type": "Type",
		"incident_id":   "ID",
		"missing":       "NoSuchColumn",
	}

	ds, err := Transform(table, mapping, models.ToolIncidentLogger, models.SystemGenericCAD)
	require.NoError(t, err)

	assert.Equal(t, []string{"incident_id", "incident_type", "zz_custom"}, ds.Columns)
	assert.Equal(t, []models.Row{{"incident_id": "1", "incident_type": "FIRE", "zz_custom": "smoke showing"}}, ds.Rows)
}

func TestTransform_NestedPathMapping(t *testing.T) {
	table := &models.Table{
		Columns: []string{"stations"},
		Rows: []models.Row{
			{"stations": []any{map[string]any{"name": "Station 9", "coordinates": map[string]any{"lat": 33.4}}}},
		},
	}
	mapping := models.FieldMapping{"station": "stations.name"}

	ds, err := Transform(table, mapping, models.ToolStationView, models.SystemUnknown)
	require.NoError(t, err)

	assert.Equal(t, []models.Row{{"station": "Station 9"}}, ds.Rows)
}

func TestTransform_EmptyMapping(t *testing.T) {
	table := &models.Table{
		Columns: []string{"incident_number", "alarm_date"},
		Rows:    []models.Row{{"incident_number": "1", "alarm_date": "2024-01-01"}},
	}

	for _, tool := range []models.ToolID{models.ToolQuickStats, models.ToolStationView, models.ToolIncidentLogger, models.ToolResponseTime} {
		t.Run(string(tool), func(t *testing.T) {
			ds, err := Transform(table, models.FieldMapping{}, tool, models.SystemFireRMS)
			require.NoError(t, err)
			assert.Empty(t, ds.Columns)
			assert.Empty(t, ds.Rows)
		})
	}
}

func TestTransform_UnknownTool(t *testing.T) {
	_, err := Transform(models.NewTable(), nil, "pie-chart", models.SystemUnknown)
	assert.ErrorIs(t, err, apperrors.ErrUnknownTool)
}

func TestRun_IsIdempotent(t *testing.T) {
	table := &models.Table{
		Columns: []string{"call_id", "address", "lat", "lon"},
		Rows: []models.Row{
			{"call_id": "C1", "address": "1 Main St, Phoenix, AZ", "lat": "33.4", "lon": "-112.0"},
			{"call_id": "C2", "address": "2 Oak Ave, Mesa, AZ", "lat": "33.5", "lon": "-111.9"},
		},
	}
	req := models.TransformRequest{
		DatasetID: uuid.New(),
		Tool:      models.ToolIncidentLogger,
		Mapping:   models.FieldMapping{"incident_id": "call_id", "address": "address"},
		SplitRules: []models.SplitRule{
			{TargetField: "city", SourceField: "address", Delimiter: ",", PartIndex: 1},
			{TargetField: "state", SourceField: "address", Delimiter: ",", PartIndex: models.LastPart},
		},
	}

	first, err := Run(table, req, models.SystemGenericCAD)
	require.NoError(t, err)
	second, err := Run(table, req, models.SystemGenericCAD)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, req.DatasetID, first.SourceDatasetID)
	assert.Equal(t, []string{"incident_id", "address", "city", "state"}, first.Columns)
}
