// Package dataset handles ingestion of uploaded tabular data: schema
// inference over raw rows, materialization into a backing table, and
// handle-based lookup of active datasets.
package dataset

import (
	"time"
)

// ColumnType is the inferred logical type of a dataset column.
type ColumnType string

const (
	TypeInteger ColumnType = "integer"
	TypeFloat   ColumnType = "float"
	TypeDate    ColumnType = "date"
	TypeText    ColumnType = "text"
)

// Column describes a single inferred column.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Schema describes a dataset: its backing table, typed columns, and a
// bounded row sample used for prompting context.
type Schema struct {
	Table      string           `json:"table"`
	Columns    []Column         `json:"columns"`
	SampleRows []map[string]any `json:"sample_rows"`
	RowCount   int              `json:"row_count"`
}

// Column returns the schema column with the given name, if present.
func (s Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in schema order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Dataset is one uploaded table, immutable after creation.
type Dataset struct {
	Handle    string    `json:"handle"`
	Schema    Schema    `json:"schema"`
	CreatedAt time.Time `json:"created_at"`
}
