package tabular

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/firegrid/firegrid-engine/pkg/apperrors"
	"github.com/firegrid/firegrid-engine/pkg/models"
)

type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

// parseXML reads markup exports. The record elements are the children of the root, after
// descending through single-child wrappers (<export><incidents><incident/>...).
// Attributes and leaf child elements become columns; deeper elements become nested maps.
func parseXML(data []byte) (*models.Table, error) {
	decoded, _, err := DecodeText(data)
	if err != nil {
		return nil, fmt.Errorf("encoding detection failed: %w", err)
	}

	var root xmlNode
	dec := xml.NewDecoder(bytes.NewReader(decoded))
	// Encoding was already normalized to UTF-8 above.
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("invalid XML: %w", err)
	}

	container := root
	for len(container.Children) == 1 && len(container.Children[0].Children) > 0 && !isRecordLike(container.Children[0]) {
		container = container.Children[0]
	}

	cols := newColumnSet()
	table := models.NewTable()
	for _, rec := range container.Children {
		row := make(models.Row)
		for _, a := range rec.Attrs {
			row[a.Name.Local] = a.Value
			cols.add(a.Name.Local)
		}
		for _, child := range rec.Children {
			name := child.XMLName.Local
			value := xmlValue(child)
			if existing, ok := row[name]; ok {
				row[name] = appendValue(existing, value)
				continue
			}
			row[name] = value
			cols.add(name)
		}
		if len(row) == 0 {
			if text := strings.TrimSpace(rec.Text); text != "" {
				row[rec.XMLName.Local] = text
				cols.add(rec.XMLName.Local)
			}
		}
		if len(row) > 0 {
			table.Rows = append(table.Rows, row)
		}
	}

	if len(table.Rows) == 0 {
		return nil, apperrors.ErrEmptyDataset
	}
	table.Columns = cols.names
	return table, nil
}

// isRecordLike reports whether a node looks like a record (its children are leaves)
// rather than a wrapper around records.
func isRecordLike(n xmlNode) bool {
	for _, c := range n.Children {
		if len(c.Children) > 0 {
			return false
		}
	}
	return true
}

func xmlValue(n xmlNode) any {
	if len(n.Children) == 0 && len(n.Attrs) == 0 {
		return strings.TrimSpace(n.Text)
	}
	out := make(map[string]any, len(n.Children)+len(n.Attrs))
	for _, a := range n.Attrs {
		out[a.Name.Local] = a.Value
	}
	for _, c := range n.Children {
		name := c.XMLName.Local
		if existing, ok := out[name]; ok {
			out[name] = appendValue(existing, xmlValue(c))
			continue
		}
		out[name] = xmlValue(c)
	}
	return out
}

func appendValue(existing, v any) any {
	if arr, ok := existing.([]any); ok {
		return append(arr, v)
	}
	return []any{existing, v}
}
