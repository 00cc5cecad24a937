package tabular

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/firegrid/firegrid-engine/pkg/apperrors"
	"github.com/firegrid/firegrid-engine/pkg/models"
)

// parseJSON reads structured-object exports. Accepted shapes:
//   - an array of objects, one row each
//   - an object holding an array of objects under some key (the first such key in
//     sorted order is used, e.g. {"incidents": [...]})
//   - a single object, read as one row
//
// Nested values are kept as trees so they can be addressed with dotted paths.
func parseJSON(data []byte) (*models.Table, error) {
	decoded, _, err := DecodeText(data)
	if err != nil {
		return nil, fmt.Errorf("encoding detection failed: %w", err)
	}

	var doc any
	if err := json.Unmarshal(decoded, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	records := jsonRecords(doc)
	if len(records) == 0 {
		return nil, apperrors.ErrEmptyDataset
	}

	cols := newColumnSet()
	for _, rec := range records {
		for _, k := range orderedKeys(rec) {
			cols.add(k)
		}
	}

	table := models.NewTable(cols.names...)
	for _, rec := range records {
		table.Rows = append(table.Rows, models.Row(rec))
	}
	return table, nil
}

func jsonRecords(doc any) []map[string]any {
	switch v := doc.(type) {
	case []any:
		return objectsOf(v)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if arr, ok := v[k].([]any); ok {
				if recs := objectsOf(arr); len(recs) > 0 {
					return recs
				}
			}
		}
		if len(v) == 0 {
			return nil
		}
		return []map[string]any{v}
	default:
		return nil
	}
}

func objectsOf(arr []any) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if obj, ok := el.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// orderedKeys returns an object's keys sorted. encoding/json does not retain source order,
// so sorting keeps the column order stable across parses.
func orderedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
