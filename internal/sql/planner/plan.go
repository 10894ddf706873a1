package planner

import (
	"fmt"
	"strings"

	"github.com/tuannm99/novaheap/internal/record"
	"github.com/tuannm99/novaheap/internal/relation"
)

// Node is one operator of an evaluation plan.
type Node interface {
	planNode()
	// Relation is the relation rows are drawn from.
	Relation() relation.Relation
}

// ----- Plan nodes -----

type TableScan struct {
	Rel relation.Relation
}

func (*TableScan) planNode()                     {}
func (n *TableScan) Relation() relation.Relation { return n.Rel }

type Select struct {
	Pred  Predicate
	Child Node
}

func (*Select) planNode()                     {}
func (n *Select) Relation() relation.Relation { return n.Child.Relation() }

// FilteredScan is a scan that applies its predicate while reading.
// Only Optimize produces it.
type FilteredScan struct {
	Rel  relation.Relation
	Pred Predicate
}

func (*FilteredScan) planNode()                     {}
func (n *FilteredScan) Relation() relation.Relation { return n.Rel }

type ProjectAll struct {
	Child Node
}

func (*ProjectAll) planNode()                     {}
func (n *ProjectAll) Relation() relation.Relation { return n.Child.Relation() }

type Project struct {
	Columns []string
	Child   Node
}

func (*Project) planNode()                     {}
func (n *Project) Relation() relation.Relation { return n.Child.Relation() }

// EvalPlan is an operator tree evaluated against one relation.
type EvalPlan struct {
	Root Node
}

func New(root Node) *EvalPlan { return &EvalPlan{Root: root} }

// Optimize returns a rewritten plan; p is left untouched.
// Optimizing an optimized plan returns an equivalent plan.
func (p *EvalPlan) Optimize() *EvalPlan {
	return &EvalPlan{Root: optimize(p.Root)}
}

func optimize(n Node) Node {
	switch n := n.(type) {
	case *ProjectAll:
		return &ProjectAll{Child: optimize(n.Child)}
	case *Project:
		return &Project{Columns: n.Columns, Child: optimize(n.Child)}
	case *Select:
		child := optimize(n.Child)
		switch c := child.(type) {
		case *TableScan:
			return &FilteredScan{Rel: c.Rel, Pred: n.Pred}
		case *FilteredScan:
			return &FilteredScan{Rel: c.Rel, Pred: concat(c.Pred, n.Pred)}
		case *Select:
			return &Select{Pred: concat(c.Pred, n.Pred), Child: c.Child}
		}
		return &Select{Pred: n.Pred, Child: child}
	default:
		return n
	}
}

func concat(a, b Predicate) Predicate {
	out := make(Predicate, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}

// Pipeline evaluates the plan to row identities only. Projection nodes
// do not change which handles come out.
func (p *EvalPlan) Pipeline() (relation.Relation, relation.Handles, error) {
	return pipeline(p.Root)
}

func pipeline(n Node) (relation.Relation, relation.Handles, error) {
	switch n := n.(type) {
	case *TableScan:
		hs, err := n.Rel.Select()
		return n.Rel, hs, err

	case *FilteredScan:
		var hs relation.Handles
		err := n.Rel.Scan(func(h relation.Handle, row record.Row) error {
			if n.Pred.Matches(row) {
				hs = append(hs, h)
			}
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
		return n.Rel, hs, nil

	case *Select:
		rel, in, err := pipeline(n.Child)
		if err != nil {
			return nil, nil, err
		}
		var out relation.Handles
		for _, h := range in {
			row, err := rel.Project(h)
			if err != nil {
				return nil, nil, err
			}
			if n.Pred.Matches(row) {
				out = append(out, h)
			}
		}
		return rel, out, nil

	case *ProjectAll:
		return pipeline(n.Child)
	case *Project:
		return pipeline(n.Child)
	default:
		return nil, nil, planErrorf("unknown plan node %T", n)
	}
}

// Evaluate materializes the plan's rows in scan order. A root that is not
// a projection yields whole rows.
func (p *EvalPlan) Evaluate() ([]record.Row, error) {
	return materialize(p.Root)
}

func materialize(n Node) ([]record.Row, error) {
	switch n := n.(type) {
	case *TableScan:
		return scanRows(n.Rel, nil)
	case *FilteredScan:
		return scanRows(n.Rel, n.Pred)

	case *Select:
		in, err := materialize(n.Child)
		if err != nil {
			return nil, err
		}
		out := make([]record.Row, 0, len(in))
		for _, row := range in {
			if n.Pred.Matches(row) {
				out = append(out, row)
			}
		}
		return out, nil

	case *ProjectAll:
		return materialize(n.Child)

	case *Project:
		in, err := materialize(n.Child)
		if err != nil {
			return nil, err
		}
		out := make([]record.Row, len(in))
		for i, row := range in {
			r, err := row.Restrict(n.Columns)
			if err != nil {
				return nil, planErrorf("project: %v", err)
			}
			out[i] = r
		}
		return out, nil

	default:
		return nil, planErrorf("unknown plan node %T", n)
	}
}

func scanRows(rel relation.Relation, pred Predicate) ([]record.Row, error) {
	var rows []record.Row
	err := rel.Scan(func(_ relation.Handle, row record.Row) error {
		if pred.Matches(row) {
			rows = append(rows, row)
		}
		return nil
	})
	return rows, err
}

// String renders the tree root-first, e.g.
// Project(a) <- FilteredScan(t; a=1).
func (p *EvalPlan) String() string {
	var parts []string
	for n := p.Root; n != nil; {
		switch v := n.(type) {
		case *TableScan:
			parts = append(parts, fmt.Sprintf("TableScan(%s)", v.Rel.Name()))
			n = nil
		case *FilteredScan:
			parts = append(parts, fmt.Sprintf("FilteredScan(%s; %s)", v.Rel.Name(), v.Pred))
			n = nil
		case *Select:
			parts = append(parts, fmt.Sprintf("Select(%s)", v.Pred))
			n = v.Child
		case *ProjectAll:
			parts = append(parts, "ProjectAll")
			n = v.Child
		case *Project:
			parts = append(parts, fmt.Sprintf("Project(%s)", strings.Join(v.Columns, ",")))
			n = v.Child
		default:
			parts = append(parts, fmt.Sprintf("%T", v))
			n = nil
		}
	}
	return strings.Join(parts, " <- ")
}
