package formatter

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/firegrid/firegrid-engine/pkg/apperrors"
	"github.com/firegrid/firegrid-engine/pkg/models"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Field is a canonical input field of a tool.
type Field struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Synonyms []string `json:"synonyms,omitempty"`
}

// Tool is a downstream tool and the canonical fields it consumes, in display order.
type Tool struct {
	ID          models.ToolID `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Fields      []Field       `json:"fields"`
}

// FieldNames returns the tool's canonical field names in order.
func (t *Tool) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// Catalog holds every tool the formatter can target.
type Catalog struct {
	tools []*Tool
	byID  map[models.ToolID]*Tool
}

type catalogFile struct {
	Fields map[string]struct {
		Label    string   `yaml:"label"`
		Synonyms []string `yaml:"synonyms"`
	} `yaml:"fields"`
	Tools []struct {
		ID          string   `yaml:"id"`
		Name        string   `yaml:"name"`
		Description string   `yaml:"description"`
		Fields      []string `yaml:"fields"`
	} `yaml:"tools"`
}

// LoadCatalog parses a catalog document. Every tool must be a recognized tool id and every
// field a tool lists must be defined under fields.
func LoadCatalog(data []byte) (*Catalog, error) {
	var doc catalogFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{byID: make(map[models.ToolID]*Tool, len(doc.Tools))}
	for _, t := range doc.Tools {
		id, err := models.ParseToolID(t.ID)
		if err != nil {
			return nil, err
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("tool %q listed twice", id)
		}

		tool := &Tool{ID: id, Name: t.Name, Description: t.Description}
		for _, name := range t.Fields {
			def, ok := doc.Fields[name]
			if !ok {
				return nil, fmt.Errorf("tool %q references undefined field %q", id, name)
			}
			tool.Fields = append(tool.Fields, Field{Name: name, Label: def.Label, Synonyms: def.Synonyms})
		}
		c.tools = append(c.tools, tool)
		c.byID[id] = tool
	}
	return c, nil
}

var defaultCatalog = mustLoadCatalog(defaultCatalogYAML)

func mustLoadCatalog(data []byte) *Catalog {
	c, err := LoadCatalog(data)
	if err != nil {
		panic(err)
	}
	for _, id := range models.AllTools {
		if _, ok := c.byID[id]; !ok {
			panic(fmt.Sprintf("catalog is missing tool %q", id))
		}
	}
	return c
}

// DefaultCatalog returns the built-in tool catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// Tools returns the tools in catalog order.
func (c *Catalog) Tools() []*Tool {
	return c.tools
}

// Tool looks up a tool by id.
func (c *Catalog) Tool(id models.ToolID) (*Tool, error) {
	t, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownTool, id)
	}
	return t, nil
}
