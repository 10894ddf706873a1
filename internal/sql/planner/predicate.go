package planner

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/tuannm99/novaheap/internal/record"
	"github.com/tuannm99/novaheap/internal/sql/ast"
)

// Cond is column = value.
type Cond struct {
	Column string
	Value  record.Value
}

func (c Cond) String() string {
	if c.Value.Type == record.ColText {
		return fmt.Sprintf("%s='%s'", c.Column, c.Value.S)
	}
	return fmt.Sprintf("%s=%s", c.Column, c.Value)
}

// Predicate is a conjunction of equality conditions. The empty predicate
// matches every row.
type Predicate []Cond

// Equals builds a predicate from a column -> value map, ordered by column.
func Equals(where record.Row) Predicate {
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := make(Predicate, 0, len(keys))
	for _, k := range keys {
		p = append(p, Cond{Column: k, Value: where[k]})
	}
	return p
}

func (p Predicate) Matches(row record.Row) bool {
	for _, c := range p {
		v, ok := row[c.Column]
		if !ok || v != c.Value {
			return false
		}
	}
	return true
}

func (p Predicate) String() string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}

// BindWhere checks a WHERE expression against schema and turns it into a
// Predicate. Only AND-ed column = literal comparisons are accepted.
// A nil expression yields a nil predicate.
func BindWhere(expr ast.Expr, schema record.Schema) (Predicate, error) {
	if expr == nil {
		return nil, nil
	}

	e, ok := expr.(*ast.BinaryExpr)
	if !ok {
		return nil, planErrorf("unsupported WHERE expression %T", expr)
	}

	switch strings.ToUpper(e.Op) {
	case ast.OpAnd:
		if e.Left == nil || e.Right == nil {
			return nil, planErrorf("AND needs two operands")
		}
		left, err := BindWhere(e.Left, schema)
		if err != nil {
			return nil, err
		}
		right, err := BindWhere(e.Right, schema)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil

	case ast.OpEq:
		ref, ok := e.Left.(*ast.ColumnRef)
		if !ok {
			return nil, planErrorf("left side of = must be a column, got %T", e.Left)
		}
		col, ok := schema.Column(ref.Name)
		if !ok {
			return nil, planErrorf("unknown column %q", ref.Name)
		}
		v, err := Literal(e.Right, col.Type)
		if err != nil {
			return nil, err
		}
		return Predicate{{Column: col.Name, Value: v}}, nil

	default:
		return nil, planErrorf("unsupported operator %q", e.Op)
	}
}

// Literal coerces an integer or string literal to a value of type t.
func Literal(expr ast.Expr, t record.ColumnType) (record.Value, error) {
	var raw any
	switch lit := expr.(type) {
	case *ast.IntLiteral:
		raw = lit.Value
	case *ast.StringLiteral:
		raw = lit.Value
	default:
		return record.Value{}, planErrorf("expected a literal, got %T", expr)
	}

	switch t {
	case record.ColInt:
		var n int64
		var err error
		if s, ok := raw.(string); ok {
			// decimal only; cast would read "010" as octal
			n, err = strconv.ParseInt(s, 10, 64)
		} else {
			n, err = cast.ToInt64E(raw)
		}
		if err != nil {
			return record.Value{}, planErrorf("%v is not an INT", raw)
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return record.Value{}, planErrorf("%d out of INT range", n)
		}
		return record.IntValue(int32(n)), nil

	case record.ColText:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return record.Value{}, planErrorf("%v is not TEXT", raw)
		}
		return record.TextValue(s), nil

	case record.ColBool:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return record.Value{}, planErrorf("%v is not a BOOLEAN", raw)
		}
		return record.BoolValue(b), nil

	default:
		return record.Value{}, planErrorf("unsupported column type %s", t)
	}
}
