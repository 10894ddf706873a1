// Package ast holds pre-parsed statements; nothing here reads SQL text.
package ast

// Statement is the root interface for all SQL statements.
type Statement interface {
	stmtNode()
}

// ----- CREATE TABLE -----
type ColumnDef struct {
	Name string
	Type string // "INT", "TEXT", "BOOLEAN"
}

type CreateTableStmt struct {
	Table       string
	IfNotExists bool
	Columns     []ColumnDef
}

func (*CreateTableStmt) stmtNode() {}

// ----- DROP TABLE -----
type DropTableStmt struct {
	Table string
}

func (*DropTableStmt) stmtNode() {}

// ----- CREATE INDEX -----
type CreateIndexStmt struct {
	Index   string
	Table   string
	Columns []string
	Type    string // "BTREE" (default, unique) or "HASH"
}

func (*CreateIndexStmt) stmtNode() {}

// ----- DROP INDEX -----
type DropIndexStmt struct {
	Index string
	Table string
}

func (*DropIndexStmt) stmtNode() {}

// ----- SHOW -----
type ShowKind int

const (
	ShowTables ShowKind = iota
	ShowColumns
	ShowIndex
)

type ShowStmt struct {
	Kind  ShowKind
	Table string // SHOW COLUMNS FROM / SHOW INDEX FROM
}

func (*ShowStmt) stmtNode() {}

// ----- INSERT -----
type InsertStmt struct {
	Table   string
	Columns []string // empty = schema order
	Values  []Expr
}

func (*InsertStmt) stmtNode() {}

// ----- DELETE -----
type DeleteStmt struct {
	Table string
	Where Expr // nil = every row
}

func (*DeleteStmt) stmtNode() {}

// ----- SELECT -----
type SelectStmt struct {
	Table   string
	Columns []string // empty = *
	Where   Expr
}

func (*SelectStmt) stmtNode() {}

// ----- UPDATE -----
type Assignment struct {
	Column string
	Value  Expr
}

type UpdateStmt struct {
	Table string
	Set   []Assignment
	Where Expr
}

func (*UpdateStmt) stmtNode() {}

// ----- Expressions -----
type Expr interface {
	exprNode()
}

const (
	OpAnd = "AND"
	OpOr  = "OR"
	OpEq  = "="
	OpNe  = "<>"
	OpLt  = "<"
	OpGt  = ">"
)

type ColumnRef struct {
	Name string
}

func (*ColumnRef) exprNode() {}

type IntLiteral struct {
	Value int64
}

func (*IntLiteral) exprNode() {}

type StringLiteral struct {
	Value string
}

func (*StringLiteral) exprNode() {}

type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// And folds exprs into a left-deep conjunction; nil for none.
func And(exprs ...Expr) Expr {
	var out Expr
	for _, e := range exprs {
		if out == nil {
			out = e
			continue
		}
		out = &BinaryExpr{Op: OpAnd, Left: out, Right: e}
	}
	return out
}

// Eq builds column = literal.
func Eq(column string, lit Expr) Expr {
	return &BinaryExpr{Op: OpEq, Left: &ColumnRef{Name: column}, Right: lit}
}
