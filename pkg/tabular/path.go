package tabular

import (
	"strconv"
	"strings"

	"github.com/firegrid/firegrid-engine/pkg/models"
)

// ResolveField looks up a mapped source in a row. The source is either a
// column name or a dotted path whose first segment is a column and whose remaining
// segments walk nested maps and arrays (e.g. "stations.coordinates.lat").
// An exact column match always wins over path interpretation.
func ResolveField(row models.Row, spec string) (any, bool) {
	if v, ok := row[spec]; ok {
		return v, true
	}
	if !strings.Contains(spec, ".") {
		return nil, false
	}

	segments := strings.Split(spec, ".")
	// The column itself may contain dots; try the longest column prefix first.
	for i := len(segments) - 1; i >= 1; i-- {
		head := strings.Join(segments[:i], ".")
		root, ok := row[head]
		if !ok {
			continue
		}
		return ResolvePath(root, segments[i:])
	}
	return nil, false
}

// ResolvePath walks a generic tree (map[string]any, []any, scalars) along segments.
// A numeric segment indexes an array. A non-numeric segment applied to an array is
// resolved against each element; a single match is unwrapped, several are returned as []any.
func ResolvePath(value any, segments []string) (any, bool) {
	if len(segments) == 0 {
		return value, true
	}
	seg := segments[0]

	switch node := value.(type) {
	case map[string]any:
		child, ok := node[seg]
		if !ok {
			return nil, false
		}
		return ResolvePath(child, segments[1:])
	case models.Row:
		return ResolvePath(map[string]any(node), segments)
	case []any:
		if idx, err := strconv.Atoi(seg); err == nil {
			if idx < 0 || idx >= len(node) {
				return nil, false
			}
			return ResolvePath(node[idx], segments[1:])
		}
		var found []any
		for _, el := range node {
			if v, ok := ResolvePath(el, segments); ok {
				found = append(found, v)
			}
		}
		switch len(found) {
		case 0:
			return nil, false
		case 1:
			return found[0], true
		default:
			return found, true
		}
	default:
		return nil, false
	}
}
