package executor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuannm99/novaheap/internal/catalog"
	"github.com/tuannm99/novaheap/internal/index"
	"github.com/tuannm99/novaheap/internal/record"
	"github.com/tuannm99/novaheap/internal/relation"
	"github.com/tuannm99/novaheap/internal/sql/ast"
	"github.com/tuannm99/novaheap/internal/sql/planner"
)

var (
	ErrUnsupported  = errors.New("executor: unsupported statement")
	ErrSchemaTable  = errors.New("executor: cannot drop a schema table")
	ErrTableExists  = errors.New("executor: table already exists")
	ErrIndexExists  = errors.New("executor: index already exists")
	ErrColumnCount  = errors.New("executor: column and value counts differ")
	ErrDuplicateCol = errors.New("executor: duplicate column")
)

// executorCatalog is the catalog surface the executor needs; a seam for tests.
type executorCatalog interface {
	Tables() relation.Relation
	Columns() relation.Relation
	Indices() relation.Relation

	TableExists(name string) (bool, error)
	GetTable(name string) (relation.Relation, error)
	IndexNames(table string) ([]string, error)
	GetIndex(table, name string) (relation.Index, error)
	Indexes(table string) ([]relation.Index, error)

	Forget(table string)
	ForgetIndex(table, name string)
}

var _ executorCatalog = (*catalog.Catalog)(nil)

// Executor runs statements against a catalog.
type Executor struct {
	cat executorCatalog
}

func NewExecutor(cat *catalog.Catalog) *Executor {
	return &Executor{cat: cat}
}

// Execute runs one statement to completion.
func (e *Executor) Execute(stmt ast.Statement) (*Result, error) {
	slog.Debug("executor: execute", "stmt", fmt.Sprintf("%T", stmt))

	switch s := stmt.(type) {
	case *ast.CreateTableStmt:
		return e.execCreateTable(s)
	case *ast.CreateIndexStmt:
		return e.execCreateIndex(s)
	case *ast.DropTableStmt:
		return e.execDropTable(s)
	case *ast.DropIndexStmt:
		return e.execDropIndex(s)
	case *ast.ShowStmt:
		return e.execShow(s)

	case *ast.InsertStmt:
		return e.execInsert(s)
	case *ast.DeleteStmt:
		return e.execDelete(s)
	case *ast.SelectStmt:
		return e.execSelect(s)
	case *ast.UpdateStmt:
		return e.execUpdate(s)

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, stmt)
	}
}

// undo deletes hs from rel in reverse order. Failures are logged and
// dropped so the caller can return its original error.
func undo(rel relation.Relation, hs relation.Handles) {
	for i := len(hs) - 1; i >= 0; i-- {
		if err := rel.Delete(hs[i]); err != nil {
			slog.Warn("executor: compensation failed", "table", rel.Name(), "handle", hs[i].String(), "err", err)
		}
	}
}

func tableWhere(table string) record.Row {
	return record.Row{"table_name": record.TextValue(table)}
}

// deleteWhere removes every row of rel matching where.
func deleteWhere(rel relation.Relation, where record.Row) error {
	hs, err := rel.SelectWhere(where)
	if err != nil {
		return err
	}
	for _, h := range hs {
		if err := rel.Delete(h); err != nil {
			return err
		}
	}
	return nil
}

// ----- CREATE TABLE -----

func (e *Executor) execCreateTable(s *ast.CreateTableStmt) (*Result, error) {
	exists, err := e.cat.TableExists(s.Table)
	if err != nil {
		return nil, err
	}
	if exists {
		if s.IfNotExists {
			return message("table " + s.Table + " already exists"), nil
		}
		return nil, fmt.Errorf("%w: %s", ErrTableExists, s.Table)
	}

	cols, err := columnDefs(s)
	if err != nil {
		return nil, err
	}

	th, err := e.cat.Tables().Insert(catalog.TableRow(s.Table))
	if err != nil {
		return nil, err
	}
	var chs relation.Handles
	columns := e.cat.Columns()
	err = func() error {
		for _, col := range cols {
			h, err := columns.Insert(catalog.ColumnRow(s.Table, col))
			if err != nil {
				return err
			}
			chs = append(chs, h)
		}
		rel, err := e.cat.GetTable(s.Table)
		if err != nil {
			return err
		}
		if s.IfNotExists {
			return rel.CreateIfNotExists()
		}
		return rel.Create()
	}()
	if err != nil {
		undo(columns, chs)
		undo(e.cat.Tables(), relation.Handles{th})
		e.cat.Forget(s.Table)
		return nil, err
	}
	return message("created " + s.Table), nil
}

func columnDefs(s *ast.CreateTableStmt) ([]record.Column, error) {
	if len(s.Columns) == 0 {
		return nil, relation.Errorf(s.Table, "", "table needs at least one column")
	}
	seen := make(map[string]bool, len(s.Columns))
	cols := make([]record.Column, 0, len(s.Columns))
	for _, d := range s.Columns {
		if seen[d.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCol, d.Name)
		}
		seen[d.Name] = true
		ct, err := record.ParseColumnType(d.Type)
		if err != nil {
			return nil, relation.Wrap(s.Table, d.Name, "unrecognized data type", err)
		}
		cols = append(cols, record.Column{Name: d.Name, Type: ct})
	}
	return cols, nil
}

// ----- CREATE INDEX -----

func (e *Executor) execCreateIndex(s *ast.CreateIndexStmt) (*Result, error) {
	rel, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}
	schema := rel.Schema()
	for _, c := range s.Columns {
		if schema.Index(c) < 0 {
			return nil, relation.Errorf(s.Table, c, "column does not exist")
		}
	}
	if len(s.Columns) == 0 {
		return nil, relation.Errorf(s.Table, "", "index %s has no columns", s.Index)
	}
	typ, err := index.ParseType(s.Type)
	if err != nil {
		return nil, err
	}
	names, err := e.cat.IndexNames(s.Table)
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		if n == s.Index {
			return nil, fmt.Errorf("%w: %s", ErrIndexExists, s.Index)
		}
	}

	meta := catalog.IndexMeta{
		Table:   s.Table,
		Name:    s.Index,
		Columns: s.Columns,
		Type:    typ,
		Unique:  typ.Unique(),
	}
	indices := e.cat.Indices()
	var ihs relation.Handles
	err = func() error {
		for _, row := range catalog.IndexRows(meta) {
			h, err := indices.Insert(row)
			if err != nil {
				return err
			}
			ihs = append(ihs, h)
		}
		_, err := e.cat.GetIndex(s.Table, s.Index)
		return err
	}()
	if err != nil {
		undo(indices, ihs)
		e.cat.ForgetIndex(s.Table, s.Index)
		return nil, err
	}
	return message("created index " + s.Index), nil
}

// ----- DROP -----

func (e *Executor) execDropTable(s *ast.DropTableStmt) (*Result, error) {
	if catalog.IsSchemaTable(s.Table) {
		return nil, ErrSchemaTable
	}
	rel, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}

	ixs, err := e.cat.Indexes(s.Table)
	if err != nil {
		return nil, err
	}
	for _, ix := range ixs {
		if err := ix.Drop(); err != nil {
			return nil, err
		}
	}
	if err := deleteWhere(e.cat.Indices(), tableWhere(s.Table)); err != nil {
		return nil, err
	}
	if err := deleteWhere(e.cat.Columns(), tableWhere(s.Table)); err != nil {
		return nil, err
	}
	if err := rel.Drop(); err != nil {
		return nil, err
	}
	if err := deleteWhere(e.cat.Tables(), tableWhere(s.Table)); err != nil {
		return nil, err
	}
	e.cat.Forget(s.Table)
	return message("dropped " + s.Table), nil
}

func (e *Executor) execDropIndex(s *ast.DropIndexStmt) (*Result, error) {
	ix, err := e.cat.GetIndex(s.Table, s.Index)
	if err != nil {
		return nil, err
	}
	if err := ix.Drop(); err != nil {
		return nil, err
	}
	where := tableWhere(s.Table)
	where["index_name"] = record.TextValue(s.Index)
	if err := deleteWhere(e.cat.Indices(), where); err != nil {
		return nil, err
	}
	e.cat.ForgetIndex(s.Table, s.Index)
	return message("dropped index " + s.Index), nil
}

// ----- SHOW -----

func (e *Executor) execShow(s *ast.ShowStmt) (*Result, error) {
	switch s.Kind {
	case ast.ShowTables:
		res, err := project(e.cat.Tables(), nil, []string{"table_name"})
		if err != nil {
			return nil, err
		}
		rows := res.Rows[:0]
		for _, r := range res.Rows {
			if !catalog.IsSchemaTable(r["table_name"].S) {
				rows = append(rows, r)
			}
		}
		res.Rows = rows
		res.Message = returned(len(rows))
		return res, nil

	case ast.ShowColumns:
		return project(e.cat.Columns(), tableWhere(s.Table),
			[]string{"table_name", "column_name", "data_type"})

	case ast.ShowIndex:
		return project(e.cat.Indices(), tableWhere(s.Table),
			[]string{"table_name", "index_name", "column_name", "seq_in_index", "index_type", "is_unique"})

	default:
		return nil, fmt.Errorf("%w: SHOW kind %d", ErrUnsupported, s.Kind)
	}
}

// project builds a result set of columns from the rows of rel matching where.
func project(rel relation.Relation, where record.Row, columns []string) (*Result, error) {
	var (
		hs  relation.Handles
		err error
	)
	if where == nil {
		hs, err = rel.Select()
	} else {
		hs, err = rel.SelectWhere(where)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{
		ColumnNames:      columns,
		ColumnAttributes: attributes(rel.Schema(), columns),
		Rows:             make([]record.Row, 0, len(hs)),
	}
	for _, h := range hs {
		row, err := rel.ProjectColumns(h, columns)
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, row)
	}
	res.Message = returned(len(res.Rows))
	return res, nil
}

func attributes(s record.Schema, columns []string) []record.ColumnType {
	out := make([]record.ColumnType, len(columns))
	for i, c := range columns {
		if col, ok := s.Column(c); ok {
			out[i] = col.Type
		}
	}
	return out
}

func returned(n int) string { return fmt.Sprintf("successfully returned %d rows", n) }

// ----- INSERT -----

func (e *Executor) execInsert(s *ast.InsertStmt) (*Result, error) {
	rel, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}
	schema := rel.Schema()

	names := s.Columns
	if len(names) == 0 {
		names = schema.Names()
	}
	if len(names) != len(s.Values) {
		return nil, fmt.Errorf("%w: %d columns, %d values", ErrColumnCount, len(names), len(s.Values))
	}
	row := make(record.Row, len(names))
	for i, n := range names {
		col, ok := schema.Column(n)
		if !ok {
			return nil, relation.Errorf(s.Table, n, "column does not exist")
		}
		v, err := planner.Literal(s.Values[i], col.Type)
		if err != nil {
			return nil, err
		}
		row[n] = v
	}

	ixs, err := e.cat.Indexes(s.Table)
	if err != nil {
		return nil, err
	}
	h, err := rel.Insert(row)
	if err != nil {
		return nil, err
	}
	for i, ix := range ixs {
		if err := ix.Insert(h); err != nil {
			for j := i - 1; j >= 0; j-- {
				if derr := ixs[j].Delete(h); derr != nil {
					slog.Warn("executor: compensation failed", "index", ixs[j].Name(), "err", derr)
				}
			}
			undo(rel, relation.Handles{h})
			return nil, err
		}
	}
	return message(fmt.Sprintf("successfully inserted 1 row into %s and %d indices", s.Table, len(ixs))), nil
}

// ----- DELETE -----

func (e *Executor) execDelete(s *ast.DeleteStmt) (*Result, error) {
	rel, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}
	plan, err := planner.BuildFilter(rel, s.Where)
	if err != nil {
		return nil, err
	}
	if err := rel.Open(); err != nil {
		return nil, err
	}
	_, hs, err := plan.Optimize().Pipeline()
	if err != nil {
		return nil, err
	}
	ixs, err := e.cat.Indexes(s.Table)
	if err != nil {
		return nil, err
	}

	for _, h := range hs {
		for _, ix := range ixs {
			if err := ix.Delete(h); err != nil {
				return nil, err
			}
		}
		if err := rel.Delete(h); err != nil {
			return nil, err
		}
	}
	return message(fmt.Sprintf("successfully deleted %d rows from %s and %d indices", len(hs), s.Table, len(ixs))), nil
}

// ----- SELECT -----

func (e *Executor) execSelect(s *ast.SelectStmt) (*Result, error) {
	rel, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}
	plan, err := planner.BuildSelect(s, rel)
	if err != nil {
		return nil, err
	}
	if err := rel.Open(); err != nil {
		return nil, err
	}
	rows, err := plan.Optimize().Evaluate()
	if err != nil {
		return nil, err
	}

	names := s.Columns
	if len(names) == 0 || (len(names) == 1 && names[0] == "*") {
		names = rel.Schema().Names()
	}
	if rows == nil {
		rows = []record.Row{}
	}
	return &Result{
		ColumnNames:      names,
		ColumnAttributes: attributes(rel.Schema(), names),
		Rows:             rows,
		Message:          returned(len(rows)),
	}, nil
}

// ----- UPDATE -----

func (e *Executor) execUpdate(s *ast.UpdateStmt) (*Result, error) {
	rel, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}
	schema := rel.Schema()

	values := make(record.Row, len(s.Set))
	for _, a := range s.Set {
		col, ok := schema.Column(a.Column)
		if !ok {
			return nil, relation.Errorf(s.Table, a.Column, "column does not exist")
		}
		v, err := planner.Literal(a.Value, col.Type)
		if err != nil {
			return nil, err
		}
		values[a.Column] = v
	}
	plan, err := planner.BuildFilter(rel, s.Where)
	if err != nil {
		return nil, err
	}
	if err := rel.Open(); err != nil {
		return nil, err
	}
	_, hs, err := plan.Optimize().Pipeline()
	if err != nil {
		return nil, err
	}
	ixs, err := e.cat.Indexes(s.Table)
	if err != nil {
		return nil, err
	}

	for _, h := range hs {
		if err := updateOne(rel, ixs, h, values); err != nil {
			return nil, err
		}
	}
	return message(fmt.Sprintf("successfully updated %d rows in %s", len(hs), s.Table)), nil
}

// updateOne rewrites one row and keeps ixs in step. If an index rejects
// the new key the old row is put back and the index error is returned.
func updateOne(rel relation.Relation, ixs []relation.Index, h relation.Handle, values record.Row) error {
	old, err := rel.Project(h)
	if err != nil {
		return err
	}
	for _, ix := range ixs {
		if err := ix.Delete(h); err != nil {
			return err
		}
	}
	nh, err := rel.Update(h, values)
	if err != nil {
		reindex(ixs, h)
		return err
	}
	for i, ix := range ixs {
		if err := ix.Insert(nh); err != nil {
			for j := i - 1; j >= 0; j-- {
				if derr := ixs[j].Delete(nh); derr != nil {
					slog.Warn("executor: compensation failed", "index", ixs[j].Name(), "err", derr)
				}
			}
			back, uerr := rel.Update(nh, old)
			if uerr != nil {
				slog.Warn("executor: restoring row failed", "table", rel.Name(), "err", uerr)
				return err
			}
			reindex(ixs, back)
			return err
		}
	}
	return nil
}

func reindex(ixs []relation.Index, h relation.Handle) {
	for _, ix := range ixs {
		if err := ix.Insert(h); err != nil {
			slog.Warn("executor: compensation failed", "index", ix.Name(), "handle", h.String(), "err", err)
		}
	}
}
