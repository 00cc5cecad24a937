package formatter

import (
	"strings"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"

	"github.com/firegrid/firegrid-engine/pkg/models"
)

// minSubstringLen keeps very short names like "id" or "x" from matching everything.
const minSubstringLen = 3

// MappingSuggestion is a proposed source mapping for one tool.
type MappingSuggestion struct {
	Tool     models.ToolID       `json:"targetTool"`
	Mapping  models.FieldMapping `json:"mappings"`
	Unmapped []string            `json:"unmapped"`
}

// normalizeName folds case, drops separators and singularizes each word, so that
// "Arrival Times", "arrival-time" and "ARRIVAL_TIME" compare equal.
func normalizeName(s string) string {
	words := strings.FieldsFunc(cases.Fold().String(s), func(r rune) bool {
		switch r {
		case '_', '-', ' ', '.', '/', '\t':
			return true
		}
		return false
	})
	for i, w := range words {
		words[i] = inflection.Singular(w)
	}
	return strings.Join(words, "")
}

type candidate struct {
	name  string
	norm  string
	index int
}

// SuggestMapping proposes a mapping from the tool's canonical fields to source columns.
// Three passes run over the fields in catalog order: exact match on the field name or
// label, then substring containment, then the field's synonyms. A column is proposed for
// at most one field. Fields without a candidate are reported as unmapped, never guessed.
func SuggestMapping(columns []string, tool *Tool) MappingSuggestion {
	cands := make([]candidate, 0, len(columns))
	for i, c := range columns {
		if n := normalizeName(c); n != "" {
			cands = append(cands, candidate{name: c, norm: n, index: i})
		}
	}

	mapping := make(models.FieldMapping)
	claimed := make(map[string]bool)
	claim := func(field, column string) {
		mapping[field] = column
		claimed[column] = true
	}

	passes := []func(Field) (string, bool){
		func(f Field) (string, bool) { return exactMatch(f, cands, claimed) },
		func(f Field) (string, bool) { return substringMatch(f, cands, claimed) },
		func(f Field) (string, bool) { return synonymMatch(f, cands, claimed) },
	}
	for _, pass := range passes {
		for _, f := range tool.Fields {
			if _, done := mapping[f.Name]; done {
				continue
			}
			if col, ok := pass(f); ok {
				claim(f.Name, col)
			}
		}
	}

	unmapped := []string{}
	for _, f := range tool.Fields {
		if _, ok := mapping[f.Name]; !ok {
			unmapped = append(unmapped, f.Name)
		}
	}
	return MappingSuggestion{Tool: tool.ID, Mapping: mapping, Unmapped: unmapped}
}

func fieldKeys(f Field) []string {
	keys := []string{normalizeName(f.Name)}
	if f.Label != "" {
		if l := normalizeName(f.Label); l != keys[0] {
			keys = append(keys, l)
		}
	}
	return keys
}

func exactMatch(f Field, cands []candidate, claimed map[string]bool) (string, bool) {
	keys := fieldKeys(f)
	for _, c := range cands {
		if claimed[c.name] {
			continue
		}
		for _, k := range keys {
			if c.norm == k {
				return c.name, true
			}
		}
	}
	return "", false
}

func substringMatch(f Field, cands []candidate, claimed map[string]bool) (string, bool) {
	var (
		best     string
		bestDiff = -1
	)
	for _, c := range cands {
		if claimed[c.name] || len(c.norm) < minSubstringLen {
			continue
		}
		for _, k := range fieldKeys(f) {
			if len(k) < minSubstringLen {
				continue
			}
			if !strings.Contains(c.norm, k) && !strings.Contains(k, c.norm) {
				continue
			}
			diff := len(c.norm) - len(k)
			if diff < 0 {
				diff = -diff
			}
			// Candidates are visited in column order, so strict < keeps the earliest on ties.
			if bestDiff < 0 || diff < bestDiff {
				best, bestDiff = c.name, diff
			}
		}
	}
	return best, bestDiff >= 0
}

func synonymMatch(f Field, cands []candidate, claimed map[string]bool) (string, bool) {
	for _, syn := range f.Synonyms {
		ns := normalizeName(syn)
		for _, c := range cands {
			if !claimed[c.name] && c.norm == ns {
				return c.name, true
			}
		}
	}
	return "", false
}
