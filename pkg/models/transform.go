package models

import "github.com/google/uuid"

// FieldMapping maps a canonical target field to a source column name or a dotted
// path into nested source values (e.g. "stations.coordinates.lat").
type FieldMapping map[string]string

// LastPart is the SplitRule.PartIndex sentinel selecting the final token.
const LastPart = -1

// SplitRule derives TargetField from the PartIndex-th token of SourceField split on Delimiter.
// Any negative PartIndex selects the last token.
type SplitRule struct {
	TargetField string `json:"targetField"`
	SourceField string `json:"sourceField"`
	Delimiter   string `json:"delimiter"`
	PartIndex   int    `json:"partIndex"`
}

// TransformRequest describes a single transform call. It is not persisted.
type TransformRequest struct {
	DatasetID  uuid.UUID
	Tool       ToolID
	Mapping    FieldMapping
	SplitRules []SplitRule
}

// TransformedDataset is the canonical-shaped output of the transformation engine.
type TransformedDataset struct {
	Tool            ToolID     `json:"tool"`
	SourceDatasetID uuid.UUID  `json:"source_dataset_id"`
	SystemType      SystemType `json:"system_type"`
	Columns         []string   `json:"columns"`
	Rows            []Row      `json:"rows"`
}

// Table returns the dataset as a plain table.
func (d *TransformedDataset) Table() *Table {
	return &Table{Columns: d.Columns, Rows: d.Rows}
}
