package formatter

import (
	"sort"

	"github.com/firegrid/firegrid-engine/pkg/models"
	"github.com/firegrid/firegrid-engine/pkg/tabular"
)

// shapedRow is an output row plus the index of the source row it came from.
// Aggregated rows have origin -1.
type shapedRow struct {
	row    models.Row
	origin int
}

type shapeInput struct {
	source  *models.Table
	renamed *models.Table
	mapping models.FieldMapping
}

type shapeResult struct {
	columns []string
	rows    []shapedRow
}

type shaper func(shapeInput) shapeResult

var shapers = map[models.ToolID]shaper{
	models.ToolResponseTime:   shapeResponseTime,
	models.ToolCallDensity:    shapeHeatmap,
	models.ToolCoverageGap:    shapeCoverageGap,
	models.ToolCallForecaster: shapeForecast,
	models.ToolStationView:    shapeIdentity,
	models.ToolQuickStats:     shapeIdentity,
	models.ToolIncidentLogger: shapeIdentity,
}

// Transform renames mapped source columns to the tool's canonical fields and shapes the
// result for the tool. Per-row failures (bad coordinates, unparseable dates) drop the row;
// an empty result is still a success. Unknown tools fail with apperrors.ErrUnknownTool.
func Transform(table *models.Table, mapping models.FieldMapping, tool models.ToolID, system models.SystemType) (*models.TransformedDataset, error) {
	out, err := transform(table, mapping, tool, system)
	if err != nil {
		return nil, err
	}
	return out.dataset, nil
}

// Run performs a full transform request: rename, shaping and split rules.
// Split rules fall back to the renamed row behind each output row, never the raw source row.
func Run(table *models.Table, req models.TransformRequest, system models.SystemType) (*models.TransformedDataset, error) {
	out, err := transform(table, req.Mapping, req.Tool, system)
	if err != nil {
		return nil, err
	}
	out.dataset.SourceDatasetID = req.DatasetID
	applySplitRules(out.dataset, req.SplitRules, out.lineage)
	return out.dataset, nil
}

type transformOutput struct {
	dataset *models.TransformedDataset
	lineage func(i int) []models.Row
}

func transform(table *models.Table, mapping models.FieldMapping, toolID models.ToolID, system models.SystemType) (*transformOutput, error) {
	tool, err := DefaultCatalog().Tool(toolID)
	if err != nil {
		return nil, err
	}
	if table == nil {
		table = models.NewTable()
	}

	renamed := rename(table, mapping, tool)
	res := shapers[toolID](shapeInput{source: table, renamed: renamed, mapping: mapping})

	ds := &models.TransformedDataset{
		Tool:       toolID,
		SystemType: system,
		Columns:    res.columns,
		Rows:       make([]models.Row, len(res.rows)),
	}
	if ds.Columns == nil {
		ds.Columns = []string{}
	}
	for i, r := range res.rows {
		ds.Rows[i] = r.row
	}

	// Split rules may only read mapped values, so lineage stops at the renamed row.
	lineage := func(i int) []models.Row {
		origin := res.rows[i].origin
		if origin < 0 || origin >= len(renamed.Rows) {
			return nil
		}
		return []models.Row{renamed.Rows[origin]}
	}
	return &transformOutput{dataset: ds, lineage: lineage}, nil
}

// rename copies each mapped source value into a column named after its canonical field.
// The returned table has one row per source row, index-aligned, or no rows at all when no
// mapped source resolved anywhere. Columns follow the tool's field order, then any extra
// mapped names alphabetically.
func rename(table *models.Table, mapping models.FieldMapping, tool *Tool) *models.Table {
	out := models.NewTable()
	if len(mapping) == 0 {
		return out
	}

	present := make(map[string]bool, len(mapping))
	rows := make([]models.Row, len(table.Rows))
	for i, src := range table.Rows {
		row := make(models.Row, len(mapping))
		for canonical, spec := range mapping {
			if canonical == "" || spec == "" {
				continue
			}
			if v, ok := tabular.ResolveField(src, spec); ok {
				row[canonical] = v
				present[canonical] = true
			}
		}
		rows[i] = row
	}
	if len(present) == 0 {
		return out
	}

	var extra []string
	known := make(map[string]bool, len(tool.Fields))
	for _, f := range tool.Fields {
		known[f.Name] = true
		if present[f.Name] {
			out.Columns = append(out.Columns, f.Name)
		}
	}
	for name := range present {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	out.Columns = append(out.Columns, extra...)
	out.Rows = rows
	return out
}
