package models

// Row is a single record keyed by column name.
// Values keep the type they were parsed with: string for delimited and spreadsheet
// sources; string, float64, bool, nil or nested map[string]any / []any for JSON and XML.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered list of named columns plus row records.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns, Rows: []Row{}}
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether the table has a column with exactly this name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Head returns at most n rows from the start of the table.
func (t *Table) Head(n int) []Row {
	if n < 0 || n >= len(t.Rows) {
		return t.Rows
	}
	return t.Rows[:n]
}

// ColumnType is an advisory classification of a column's values.
type ColumnType string

const (
	ColumnNumeric  ColumnType = "numeric"
	ColumnText     ColumnType = "text"
	ColumnTemporal ColumnType = "temporal"
	ColumnUnknown  ColumnType = "unknown"
)

// Column describes a column and its inferred type.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}
