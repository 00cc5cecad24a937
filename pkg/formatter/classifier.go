package formatter

import (
	"strings"

	"github.com/firegrid/firegrid-engine/pkg/models"
)

// columnSet is a case-folded set of column names.
type columnSet map[string]bool

func newColumnSet(columns []string) columnSet {
	set := make(columnSet, len(columns))
	for _, c := range columns {
		set[strings.ToLower(strings.TrimSpace(c))] = true
	}
	return set
}

func (s columnSet) has(name string) bool { return s[name] }

func (s columnSet) hasAny(names ...string) bool {
	for _, n := range names {
		if s[n] {
			return true
		}
	}
	return false
}

type systemRule struct {
	system  models.SystemType
	matches func(columnSet) bool
}

// systemRules is evaluated top to bottom; vendor fingerprints overlap, so order matters.
var systemRules = []systemRule{
	{models.SystemFireRMS, func(s columnSet) bool {
		return s.has("incident_number") && s.hasAny("alarm_date", "alarm_time")
	}},
	{models.SystemESO, func(s columnSet) bool {
		return s.hasAny("pcr_number", "incident_pcr")
	}},
	{models.SystemImageTrend, func(s columnSet) bool {
		return s.has("incident_id") && s.has("agency_id")
	}},
	{models.SystemZoll, func(s columnSet) bool {
		return s.has("incident_key") && s.hasAny("dispatch_date", "dispatch_time")
	}},
	{models.SystemMotorolaCAD, func(s columnSet) bool {
		return s.has("cad_number") || (s.has("call_type") && s.has("call_date"))
	}},
	{models.SystemGenericCAD, func(s columnSet) bool {
		return s.hasAny("call_number", "call_id", "dispatch_time")
	}},
}

// ClassifySystem labels the originating CAD/RMS product from the set of column names.
// The first matching fingerprint wins; no match yields models.SystemUnknown.
func ClassifySystem(columns []string) models.SystemType {
	set := newColumnSet(columns)
	for _, rule := range systemRules {
		if rule.matches(set) {
			return rule.system
		}
	}
	return models.SystemUnknown
}
