// Package formatter turns parsed CAD/RMS tables into tool-ready datasets: it classifies the
// source, recommends tools, proposes column mappings and applies tool-specific shaping.
package formatter

import (
	"strings"

	"github.com/firegrid/firegrid-engine/pkg/models"
)

var (
	latitudeTokens  = []string{"lat", "latitude", "y_coord"}
	longitudeTokens = []string{"lon", "lng", "long", "longitude", "x_coord"}
	timeTokens      = []string{"date", "time", "timestamp", "alarm", "dispatch", "arrival", "clear"}
)

// AnalyzeCapabilities derives capability flags from column names only. Names are
// case-folded and matched by substring; row values are never inspected.
func AnalyzeCapabilities(columns []string) models.CapabilityFlags {
	return models.CapabilityFlags{
		HasGeo:        anyColumnContains(columns, latitudeTokens) && anyColumnContains(columns, longitudeTokens),
		HasTimestamps: anyColumnContains(columns, timeTokens),
	}
}

func anyColumnContains(columns []string, tokens []string) bool {
	for _, c := range columns {
		lc := strings.ToLower(c)
		for _, t := range tokens {
			if strings.Contains(lc, t) {
				return true
			}
		}
	}
	return false
}
