package formatter

import (
	"strings"

	"github.com/firegrid/firegrid-engine/pkg/models"
)

// forecastMinRows is the row count above which the forecaster rates a dataset high.
const forecastMinRows = 100

var incidentLoggerSystems = map[models.SystemType]bool{
	models.SystemFireRMS:     true,
	models.SystemESO:         true,
	models.SystemImageTrend:  true,
	models.SystemGenericCAD:  true,
	models.SystemMotorolaCAD: true,
}

// CompatibleTools lists the tools a dataset can feed, in models.AllTools order.
// Each tool is judged independently; incompatible tools are omitted.
func CompatibleTools(flags models.CapabilityFlags, system models.SystemType, table *models.Table) []models.ToolCompatibility {
	var columns []string
	if table != nil {
		columns = table.Columns
	}
	known := system.IsKnown()

	out := make([]models.ToolCompatibility, 0, len(models.AllTools))
	add := func(tool models.ToolID, high bool) {
		tier := models.TierMedium
		if high {
			tier = models.TierHigh
		}
		out = append(out, models.ToolCompatibility{Tool: tool, Tier: tier})
	}

	for _, tool := range models.AllTools {
		switch tool {
		case models.ToolResponseTime:
			if flags.HasTimestamps {
				add(tool, known)
			}
		case models.ToolCallDensity, models.ToolCoverageGap:
			if flags.HasGeo {
				add(tool, true)
			}
		case models.ToolStationView:
			if flags.HasTimestamps {
				add(tool, known && hasStationColumn(columns))
			}
		case models.ToolQuickStats:
			add(tool, known)
		case models.ToolIncidentLogger:
			if incidentLoggerSystems[system] {
				add(tool, true)
			}
		case models.ToolCallForecaster:
			if flags.HasTimestamps {
				add(tool, table.RowCount() > forecastMinRows)
			}
		}
	}
	return out
}

func hasStationColumn(columns []string) bool {
	for _, c := range columns {
		if strings.Contains(strings.ToLower(c), "station") {
			return true
		}
	}
	return false
}
