package models

import (
	"fmt"

	"github.com/firegrid/firegrid-engine/pkg/apperrors"
)

// ToolID identifies a downstream analysis tool that consumes formatted data.
type ToolID string

const (
	ToolResponseTime   ToolID = "response-time-analysis"
	ToolCallDensity    ToolID = "call-density-heatmap"
	ToolStationView    ToolID = "station-overview"
	ToolCoverageGap    ToolID = "coverage-gap-finder"
	ToolQuickStats     ToolID = "quick-stats"
	ToolIncidentLogger ToolID = "incident-logger"
	ToolCallForecaster ToolID = "call-volume-forecaster"
)

// AllTools lists the recognized tools in their canonical order.
var AllTools = []ToolID{
	ToolResponseTime,
	ToolCallDensity,
	ToolStationView,
	ToolCoverageGap,
	ToolQuickStats,
	ToolIncidentLogger,
	ToolCallForecaster,
}

// ParseToolID validates a tool identifier.
func ParseToolID(s string) (ToolID, error) {
	for _, t := range AllTools {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownTool, s)
}

// CompatibilityTier grades how well a dataset suits a tool.
type CompatibilityTier string

const (
	TierHigh   CompatibilityTier = "high"
	TierMedium CompatibilityTier = "medium"
)

// ToolCompatibility is one entry of a dataset's tool recommendations.
// Incompatible tools are left out rather than graded low.
type ToolCompatibility struct {
	Tool ToolID            `json:"tool"`
	Tier CompatibilityTier `json:"compatibility"`
}
