package models

// SystemType labels the CAD/RMS product that most likely produced a dataset.
type SystemType string

const (
	SystemFireRMS     SystemType = "FireRMS"
	SystemESO         SystemType = "ESO"
	SystemImageTrend  SystemType = "ImageTrend"
	SystemZoll        SystemType = "Zoll"
	SystemMotorolaCAD SystemType = "MotorolaCAD"
	SystemGenericCAD  SystemType = "GenericCAD"
	SystemUnknown     SystemType = "Unknown"
)

// IsKnown reports whether the system was recognized.
func (s SystemType) IsKnown() bool {
	return s != SystemUnknown && s != ""
}

// CapabilityFlags records which kinds of analysis a dataset can support,
// judged from its column names alone.
type CapabilityFlags struct {
	HasGeo        bool `json:"has_geo_coordinates"`
	HasTimestamps bool `json:"has_timestamps"`
}
