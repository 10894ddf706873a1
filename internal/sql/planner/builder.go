package planner

import (
	"github.com/tuannm99/novaheap/internal/relation"
	"github.com/tuannm99/novaheap/internal/sql/ast"
)

// BuildFilter builds scan [+ select] over rel for a WHERE clause.
func BuildFilter(rel relation.Relation, where ast.Expr) (*EvalPlan, error) {
	pred, err := BindWhere(where, rel.Schema())
	if err != nil {
		return nil, err
	}
	var node Node = &TableScan{Rel: rel}
	if len(pred) > 0 {
		node = &Select{Pred: pred, Child: node}
	}
	return New(node), nil
}

// BuildSelect builds the left-deep plan for a SELECT: scan, an optional
// select for WHERE, then the projection for the select list.
func BuildSelect(s *ast.SelectStmt, rel relation.Relation) (*EvalPlan, error) {
	p, err := BuildFilter(rel, s.Where)
	if err != nil {
		return nil, err
	}

	if isStar(s.Columns) {
		return New(&ProjectAll{Child: p.Root}), nil
	}
	schema := rel.Schema()
	for _, c := range s.Columns {
		if schema.Index(c) < 0 {
			return nil, planErrorf("unknown column %q in select list", c)
		}
	}
	return New(&Project{Columns: s.Columns, Child: p.Root}), nil
}

func isStar(cols []string) bool {
	return len(cols) == 0 || (len(cols) == 1 && cols[0] == "*")
}
