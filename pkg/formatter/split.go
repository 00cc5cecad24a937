package formatter

import (
	"sort"
	"strings"

	"github.com/firegrid/firegrid-engine/pkg/models"
	"github.com/firegrid/firegrid-engine/pkg/tabular"
)

// ApplySplitRules adds columns derived by splitting text values of a transformed dataset.
// Every rule reads the rows as they were before any rule ran, so rules never chain and
// their order does not matter. Rows whose source is missing, not text, or has too few
// parts are left untouched. A target column is added only if some row received a value;
// new columns are appended in name order.
func ApplySplitRules(ds *models.TransformedDataset, rules []models.SplitRule) {
	applySplitRules(ds, rules, nil)
}

func applySplitRules(ds *models.TransformedDataset, rules []models.SplitRule, lineage func(i int) []models.Row) {
	if ds == nil || len(rules) == 0 {
		return
	}

	snapshot := make([]models.Row, len(ds.Rows))
	for i, r := range ds.Rows {
		snapshot[i] = r.Clone()
	}

	existing := make(map[string]bool, len(ds.Columns))
	for _, c := range ds.Columns {
		existing[c] = true
	}
	added := make(map[string]bool)

	for _, rule := range rules {
		if rule.Delimiter == "" || rule.TargetField == "" || rule.SourceField == "" {
			continue
		}
		for i, row := range ds.Rows {
			var fallback []models.Row
			if lineage != nil {
				fallback = lineage(i)
			}
			text, ok := splitSource(snapshot[i], fallback, rule.SourceField)
			if !ok {
				continue
			}
			part, ok := splitPart(text, rule.Delimiter, rule.PartIndex)
			if !ok {
				continue
			}
			row[rule.TargetField] = part
			if !existing[rule.TargetField] {
				added[rule.TargetField] = true
			}
		}
	}

	names := make([]string, 0, len(added))
	for name := range added {
		names = append(names, name)
	}
	sort.Strings(names)
	ds.Columns = append(ds.Columns, names...)
}

// splitSource resolves a rule's source from the pre-rule row, then the mapped row it came from.
func splitSource(row models.Row, fallback []models.Row, field string) (string, bool) {
	for _, r := range append([]models.Row{row}, fallback...) {
		v, ok := tabular.ResolveField(r, field)
		if !ok {
			continue
		}
		s, ok := v.(string)
		return s, ok
	}
	return "", false
}

func splitPart(text, delimiter string, index int) (string, bool) {
	parts := strings.Split(text, delimiter)
	if index < 0 {
		index = len(parts) - 1
	}
	if index >= len(parts) {
		return "", false
	}
	return strings.TrimSpace(parts[index]), true
}
