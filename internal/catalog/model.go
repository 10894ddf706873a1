package catalog

import (
	"github.com/tuannm99/novaheap/internal/index"
	"github.com/tuannm99/novaheap/internal/record"
)

// Schema table names.
const (
	TablesName  = "_tables"
	ColumnsName = "_columns"
	IndicesName = "_indices"
)

// IsSchemaTable reports whether name is one of the catalog's own tables.
func IsSchemaTable(name string) bool {
	return name == TablesName || name == ColumnsName || name == IndicesName
}

var (
	tablesSchema = record.NewSchema(
		record.Column{Name: "table_name", Type: record.ColText},
	)
	columnsSchema = record.NewSchema(
		record.Column{Name: "table_name", Type: record.ColText},
		record.Column{Name: "column_name", Type: record.ColText},
		record.Column{Name: "data_type", Type: record.ColText},
	)
	indicesSchema = record.NewSchema(
		record.Column{Name: "table_name", Type: record.ColText},
		record.Column{Name: "index_name", Type: record.ColText},
		record.Column{Name: "column_name", Type: record.ColText},
		record.Column{Name: "seq_in_index", Type: record.ColInt},
		record.Column{Name: "index_type", Type: record.ColText},
		record.Column{Name: "is_unique", Type: record.ColBool},
	)
)

// SchemaOf returns the fixed schema of a schema table.
func SchemaOf(name string) (record.Schema, bool) {
	switch name {
	case TablesName:
		return tablesSchema, true
	case ColumnsName:
		return columnsSchema, true
	case IndicesName:
		return indicesSchema, true
	}
	return record.Schema{}, false
}

// IndexMeta describes one index as recorded in _indices.
type IndexMeta struct {
	Table   string     `json:"table"`
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Type    index.Type `json:"type"`
	Unique  bool       `json:"unique"`
}

// TableRow is the _tables row for name.
func TableRow(name string) record.Row {
	return record.Row{"table_name": record.TextValue(name)}
}

// ColumnRow is the _columns row for one column of table.
func ColumnRow(table string, col record.Column) record.Row {
	return record.Row{
		"table_name":  record.TextValue(table),
		"column_name": record.TextValue(col.Name),
		"data_type":   record.TextValue(col.Type.String()),
	}
}

// IndexRows are the _indices rows for m, one per key column.
func IndexRows(m IndexMeta) []record.Row {
	rows := make([]record.Row, len(m.Columns))
	for i, c := range m.Columns {
		rows[i] = record.Row{
			"table_name":   record.TextValue(m.Table),
			"index_name":   record.TextValue(m.Name),
			"column_name":  record.TextValue(c),
			"seq_in_index": record.IntValue(int32(i + 1)),
			"index_type":   record.TextValue(string(m.Type)),
			"is_unique":    record.BoolValue(m.Unique),
		}
	}
	return rows
}
