package formatter

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"

	"github.com/firegrid/firegrid-engine/pkg/models"
	"github.com/firegrid/firegrid-engine/pkg/tabular"
)

var responseTimeFields = []string{"dispatch_time", "arrival_time", "clear_time"}

func shapeIdentity(in shapeInput) shapeResult {
	res := shapeResult{columns: in.renamed.Columns}
	for i, row := range in.renamed.Rows {
		res.rows = append(res.rows, shapedRow{row: row.Clone(), origin: i})
	}
	return res
}

func shapeResponseTime(in shapeInput) shapeResult {
	if len(in.renamed.Rows) == 0 {
		return shapeResult{}
	}

	res := shapeResult{columns: []string{"incident_id"}}
	for _, f := range responseTimeFields {
		if in.renamed.HasColumn(f) {
			res.columns = append(res.columns, f)
		}
	}

	for i, src := range in.renamed.Rows {
		row := models.Row{"incident_id": incidentID(src, i)}
		for _, f := range res.columns[1:] {
			if v, ok := src[f]; ok {
				row[f] = v
			}
		}
		res.rows = append(res.rows, shapedRow{row: row, origin: i})
	}
	return res
}

// incidentID prefers an explicit id, then the incident number, then a placeholder built
// from the 1-based row number.
func incidentID(row models.Row, i int) any {
	for _, key := range []string{"incident_id", "incident_number"} {
		if v, ok := row[key]; ok && !tabular.IsBlank(v) {
			return v
		}
	}
	return fmt.Sprintf("INC-%06d", i+1)
}

func shapeHeatmap(in shapeInput) shapeResult {
	res := shapeResult{columns: []string{"lat", "lng", "weight"}}
	eachCoordinate(in, func(i int, lat, lng float64) {
		res.rows = append(res.rows, shapedRow{
			row:    models.Row{"lat": lat, "lng": lng, "weight": 1},
			origin: i,
		})
	})
	return res
}

func shapeCoverageGap(in shapeInput) shapeResult {
	res := shapeResult{columns: []string{"latitude", "longitude", "type", "date"}}
	eachCoordinate(in, func(i int, lat, lng float64) {
		src := in.source.Rows[i]
		res.rows = append(res.rows, shapedRow{
			row: models.Row{
				"latitude":  lat,
				"longitude": lng,
				"type":      mappedString(src, in.mapping, "incident_type"),
				"date":      mappedString(src, in.mapping, "incident_date"),
			},
			origin: i,
		})
	})
	return res
}

// eachCoordinate calls fn for every source row with a valid coordinate pair. The pair
// located by column name is used unless no row has a valid coordinate under it, in which
// case the mapped latitude/longitude pair is tried.
func eachCoordinate(in shapeInput, fn func(i int, lat, lng float64)) {
	for _, pair := range coordinateSources(in.source.Columns, in.mapping) {
		valid := 0
		for i, src := range in.source.Rows {
			lat, ok := coordinate(src, pair[0], 90)
			if !ok {
				continue
			}
			lng, ok := coordinate(src, pair[1], 180)
			if !ok {
				continue
			}
			valid++
			fn(i, lat, lng)
		}
		if valid > 0 {
			return
		}
	}
}

func coordinate(row models.Row, spec string, limit float64) (float64, bool) {
	v, ok := tabular.ResolveField(row, spec)
	if !ok {
		return 0, false
	}
	f, ok := tabular.CellFloat(v)
	if !ok || math.IsNaN(f) || f < -limit || f > limit {
		return 0, false
	}
	return f, true
}

var (
	latitudeNames  = []string{"lat", "latitude", "y_coord", "gps_lat", "y"}
	longitudeNames = []string{"lon", "lng", "long", "longitude", "x_coord", "gps_lon", "x"}
)

// coordinateSources lists the latitude/longitude source pairs to try, in order: the pair
// found among source column names (a missing half taken from the mapping), then the
// mapped latitude/longitude fields.
func coordinateSources(columns []string, mapping models.FieldMapping) [][2]string {
	var pairs [][2]string
	located := locateCoordinates(columns, mapping)
	if located[0] != "" && located[1] != "" && located[0] != located[1] {
		pairs = append(pairs, located)
	}
	mapped := [2]string{mapping["latitude"], mapping["longitude"]}
	if mapped[0] != "" && mapped[1] != "" && (len(pairs) == 0 || pairs[0] != mapped) {
		pairs = append(pairs, mapped)
	}
	return pairs
}

// locateCoordinates finds latitude and longitude columns by name: exact names first,
// then the best ranked partial match. A half not found by name falls back to the mapping.
func locateCoordinates(columns []string, mapping models.FieldMapping) [2]string {
	lat := findColumn(columns, latitudeNames, []string{"lat"}, "")
	if lat == "" {
		lat = mapping["latitude"]
	}
	lng := findColumn(columns, longitudeNames, []string{"lon", "lng"}, lat)
	if lng == "" {
		lng = mapping["longitude"]
	}
	return [2]string{lat, lng}
}

func findColumn(columns, exact, prefixes []string, exclude string) string {
	for _, name := range exact {
		for _, c := range columns {
			if c != exclude && strings.EqualFold(strings.TrimSpace(c), name) {
				return c
			}
		}
	}

	best, bestRank := "", 0
	for _, c := range columns {
		if c == exclude {
			continue
		}
		if r := partialRank(c, prefixes); r > bestRank {
			best, bestRank = c, r
		}
	}
	return best
}

// partialRank scores how well a column name matches one of the prefixes: 2 when a word
// of the name starts with it (gps_latitude, "Lat Deg"), 1 when it only appears inside a
// word (related_incident), 0 otherwise.
func partialRank(name string, prefixes []string) int {
	lc := strings.ToLower(name)
	words := strings.FieldsFunc(lc, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	rank := 0
	for _, p := range prefixes {
		for _, w := range words {
			if strings.HasPrefix(w, p) {
				return 2
			}
		}
		if strings.Contains(lc, p) {
			rank = 1
		}
	}
	return rank
}

func mappedString(row models.Row, mapping models.FieldMapping, field string) string {
	spec, ok := mapping[field]
	if !ok || spec == "" {
		return ""
	}
	v, ok := tabular.ResolveField(row, spec)
	if !ok {
		return ""
	}
	return tabular.CellString(v)
}

func shapeForecast(in shapeInput) shapeResult {
	res := shapeResult{columns: []string{"date", "count"}}
	spec := forecastDateSource(in.source.Columns, in.mapping)
	if spec == "" {
		return res
	}

	counts := make(map[string]int)
	for _, src := range in.source.Rows {
		v, ok := tabular.ResolveField(src, spec)
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		t, err := dateparse.ParseIn(strings.TrimSpace(s), time.UTC)
		if err != nil {
			continue
		}
		counts[t.Format(time.DateOnly)]++
	}

	dates := make([]string, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		res.rows = append(res.rows, shapedRow{row: models.Row{"date": d, "count": counts[d]}, origin: -1})
	}
	return res
}

// forecastDateSource picks the date source: mapped incident_date, mapped dispatch_time,
// then the first source column whose name mentions a date, then a time.
func forecastDateSource(columns []string, mapping models.FieldMapping) string {
	for _, f := range []string{"incident_date", "dispatch_time"} {
		if spec := mapping[f]; spec != "" {
			return spec
		}
	}
	for _, token := range []string{"date", "time"} {
		for _, c := range columns {
			if strings.Contains(strings.ToLower(c), token) {
				return c
			}
		}
	}
	return ""
}
