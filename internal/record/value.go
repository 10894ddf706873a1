package record

import (
	"maps"
	"strconv"
)

// Value is one typed column value. INT and BOOLEAN use N; TEXT uses S.
type Value struct {
	Type ColumnType
	N    int32
	S    string
}

func IntValue(n int32) Value   { return Value{Type: ColInt, N: n} }
func TextValue(s string) Value { return Value{Type: ColText, S: s} }

func BoolValue(b bool) Value {
	if b {
		return Value{Type: ColBool, N: 1}
	}
	return Value{Type: ColBool}
}

func (v Value) Bool() bool { return v.N != 0 }

// String renders the value for result output; booleans print as false/true.
func (v Value) String() string {
	switch v.Type {
	case ColInt:
		return strconv.FormatInt(int64(v.N), 10)
	case ColText:
		return v.S
	case ColBool:
		return strconv.FormatBool(v.Bool())
	default:
		return "???"
	}
}

// Row maps column names to values.
type Row map[string]Value

func (r Row) Clone() Row { return maps.Clone(r) }

// Restrict keeps only the named columns; a missing column is an error.
func (r Row) Restrict(names []string) (Row, error) {
	out := make(Row, len(names))
	for _, n := range names {
		v, ok := r[n]
		if !ok {
			return nil, &ColumnError{Column: n, Err: ErrUnknownColumn}
		}
		out[n] = v
	}
	return out, nil
}

// Matches reports whether every entry of where is present and equal in r.
func (r Row) Matches(where Row) bool {
	for k, want := range where {
		got, ok := r[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}
