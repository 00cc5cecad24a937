package tabular

import (
	"fmt"
	"strings"
)

// NormalizeHeaders trims header names, names blank headers "column_<n>" (1-based) and
// makes every name unique by suffixing repeats: the second "name" becomes "name_2",
// the third "name_3". Suffixes that collide with an existing header are skipped.
func NormalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	taken := make(map[string]bool, len(headers))

	// Reserve the names that are already unique so a suffix never steals them.
	counts := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(strings.Trim(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		out[i] = h
		counts[h]++
	}
	for h, n := range counts {
		if n == 1 {
			taken[h] = true
		}
	}

	seen := make(map[string]int, len(headers))
	for i, h := range out {
		if counts[h] == 1 {
			continue
		}
		seen[h]++
		if seen[h] == 1 {
			taken[h] = true
			continue
		}
		n := seen[h]
		candidate := fmt.Sprintf("%s_%d", h, n)
		for taken[candidate] {
			n++
			candidate = fmt.Sprintf("%s_%d", h, n)
		}
		seen[h] = n
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}

// columnSet accumulates column names in first-seen order.
type columnSet struct {
	names []string
	index map[string]bool
}

func newColumnSet() *columnSet {
	return &columnSet{index: make(map[string]bool)}
}

func (c *columnSet) add(name string) {
	if c.index[name] {
		return
	}
	c.index[name] = true
	c.names = append(c.names, name)
}
