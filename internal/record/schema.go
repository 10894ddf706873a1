package record

import (
	"fmt"
	"strings"
)

type ColumnType uint8

const (
	ColInt  ColumnType = iota + 1 // 4-byte signed
	ColText                       // u16 length + raw bytes
	ColBool                       // one byte, 0 or 1
)

func (t ColumnType) String() string {
	switch t {
	case ColInt:
		return "INT"
	case ColText:
		return "TEXT"
	case ColBool:
		return "BOOLEAN"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// ParseColumnType maps a SQL type name to a ColumnType.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToUpper(s) {
	case "INT", "INTEGER":
		return ColInt, nil
	case "TEXT":
		return ColText, nil
	case "BOOL", "BOOLEAN":
		return ColBool, nil
	default:
		return 0, fmt.Errorf("unsupported column type: %s", s)
	}
}

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Schema is the ordered column list shared by every row of a relation.
type Schema struct {
	Cols []Column `json:"cols"`
}

func NewSchema(cols ...Column) Schema { return Schema{Cols: cols} }

func (s Schema) NumCols() int { return len(s.Cols) }

func (s Schema) Index(name string) int {
	for i := range s.Cols {
		if s.Cols[i].Name == name {
			return i
		}
	}
	return -1
}

func (s Schema) Column(name string) (Column, bool) {
	if i := s.Index(name); i >= 0 {
		return s.Cols[i], true
	}
	return Column{}, false
}

func (s Schema) Names() []string {
	out := make([]string, len(s.Cols))
	for i, c := range s.Cols {
		out[i] = c.Name
	}
	return out
}

func (s Schema) Types() []ColumnType {
	out := make([]ColumnType, len(s.Cols))
	for i, c := range s.Cols {
		out[i] = c.Type
	}
	return out
}

// Project returns the sub-schema for names, in the order given.
func (s Schema) Project(names []string) (Schema, error) {
	out := Schema{Cols: make([]Column, 0, len(names))}
	for _, n := range names {
		c, ok := s.Column(n)
		if !ok {
			return Schema{}, &ColumnError{Column: n, Err: ErrUnknownColumn}
		}
		out.Cols = append(out.Cols, c)
	}
	return out, nil
}
