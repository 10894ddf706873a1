package heap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuannm99/novaheap/internal/record"
	"github.com/tuannm99/novaheap/internal/relation"
	"github.com/tuannm99/novaheap/internal/sql/planner"
	"github.com/tuannm99/novaheap/internal/storage"
)

// Table is a relation stored as a heap File plus a fixed Schema.
// Rows are appended at the tail; earlier blocks are never revisited for
// free space.
type Table struct {
	name   string
	schema record.Schema
	file   *File
}

var _ relation.Relation = (*Table)(nil)

func NewTable(name string, schema record.Schema, store storage.BlockStore) *Table {
	return &Table{
		name:   name,
		schema: schema,
		file:   NewFile(store),
	}
}

func (t *Table) Name() string          { return t.name }
func (t *Table) Schema() record.Schema { return t.schema }
func (t *Table) File() *File           { return t.file }

func (t *Table) Create() error {
	if t.schema.NumCols() == 0 {
		return relation.Errorf(t.name, "", "table needs at least one column")
	}
	if err := t.file.Create(); err != nil {
		return relation.Wrap(t.name, "", "create", err)
	}
	return nil
}

// CreateIfNotExists opens the table, creating it when the open fails.
func (t *Table) CreateIfNotExists() error {
	err := t.Open()
	if err == nil {
		return nil
	}
	slog.Debug("heap: open failed, creating", "table", t.name, "err", err)
	return t.Create()
}

func (t *Table) Open() error {
	if err := t.file.Open(); err != nil {
		return relation.Wrap(t.name, "", "open", err)
	}
	return nil
}

func (t *Table) Close() error {
	return t.file.Close()
}

func (t *Table) Drop() error {
	if err := t.file.Drop(); err != nil {
		return relation.Wrap(t.name, "", "drop", err)
	}
	return nil
}

func (t *Table) checkOpen() error {
	if !t.file.IsOpen() {
		return relation.Errorf(t.name, "", "table is not open")
	}
	return nil
}

// Validate returns row restricted to the schema's columns. Every column
// must be bound with a value of its declared type; unknown names are
// rejected.
func (t *Table) Validate(row record.Row) (record.Row, error) {
	for name := range row {
		if t.schema.Index(name) < 0 {
			return nil, relation.Errorf(t.name, name, "unknown column")
		}
	}
	out := make(record.Row, len(t.schema.Cols))
	for _, col := range t.schema.Cols {
		v, ok := row[col.Name]
		if !ok {
			return nil, relation.Errorf(t.name, col.Name, "missing value (NULL and defaults are not supported)")
		}
		if v.Type != col.Type {
			return nil, relation.Errorf(t.name, col.Name, "expected %s, got %s", col.Type, v.Type)
		}
		out[col.Name] = v
	}
	return out, nil
}

func (t *Table) marshal(row record.Row) ([]byte, error) {
	data, err := record.Marshal(t.schema, row)
	if err != nil {
		return nil, t.codecErr("marshal", err)
	}
	return data, nil
}

func (t *Table) unmarshal(data []byte) (record.Row, error) {
	row, err := record.Unmarshal(t.schema, data)
	if err != nil {
		return nil, t.codecErr("unmarshal", err)
	}
	return row, nil
}

// checkFits rejects a record that no block of this file could hold.
func (t *Table) checkFits(data []byte) error {
	if len(data) > storage.MaxRecordSize(t.file.BlockSize()) {
		return relation.Wrap(t.name, "", fmt.Sprintf("row of %d bytes does not fit in an empty block", len(data)), storage.ErrStorageFull)
	}
	return nil
}

func (t *Table) codecErr(op string, err error) error {
	var ce *record.ColumnError
	col := ""
	if errors.As(err, &ce) {
		col = ce.Column
	}
	return relation.Wrap(t.name, col, op, err)
}

// Insert opens the table if needed and appends the validated row.
func (t *Table) Insert(row record.Row) (relation.Handle, error) {
	if err := t.Open(); err != nil {
		return relation.Handle{}, err
	}
	full, err := t.Validate(row)
	if err != nil {
		return relation.Handle{}, err
	}
	return t.append(full)
}

// append adds the row to the last block, starting a new block when the
// last one is full.
func (t *Table) append(row record.Row) (relation.Handle, error) {
	data, err := t.marshal(row)
	if err != nil {
		return relation.Handle{}, err
	}
	if err := t.checkFits(data); err != nil {
		return relation.Handle{}, err
	}

	var b storage.Block
	if t.file.Last() == 0 {
		b, err = t.file.GetNew()
	} else {
		b, err = t.file.Get(t.file.Last())
	}
	if err != nil {
		return relation.Handle{}, err
	}

	rid, err := b.Add(data)
	if errors.Is(err, storage.ErrStorageFull) {
		if b, err = t.file.GetNew(); err != nil {
			return relation.Handle{}, err
		}
		rid, err = b.Add(data)
		if errors.Is(err, storage.ErrStorageFull) {
			return relation.Handle{}, relation.Wrap(t.name, "", "row does not fit in an empty block", err)
		}
	}
	if err != nil {
		return relation.Handle{}, err
	}

	if err := t.file.Put(b); err != nil {
		return relation.Handle{}, err
	}
	return relation.Handle{BlockID: b.ID(), RecordID: rid}, nil
}

// Select returns every live handle, ordered by block then record id.
func (t *Table) Select() (relation.Handles, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	var hs relation.Handles
	for _, bid := range t.file.BlockIDs() {
		b, err := t.file.Get(bid)
		if err != nil {
			return nil, err
		}
		for _, rid := range b.IDs() {
			hs = append(hs, relation.Handle{BlockID: bid, RecordID: rid})
		}
	}
	return hs, nil
}

// SelectWhere runs an equality filter through the evaluation plan.
func (t *Table) SelectWhere(where record.Row) (relation.Handles, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	for name := range where {
		if t.schema.Index(name) < 0 {
			return nil, relation.Errorf(t.name, name, "unknown column")
		}
	}
	plan := planner.New(&planner.Select{
		Pred:  planner.Equals(where),
		Child: &planner.TableScan{Rel: t},
	})
	_, hs, err := plan.Optimize().Pipeline()
	return hs, err
}

// Scan reads each block once and calls fn for its live rows in order.
func (t *Table) Scan(fn func(relation.Handle, record.Row) error) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	for _, bid := range t.file.BlockIDs() {
		b, err := t.file.Get(bid)
		if err != nil {
			return err
		}
		for _, rid := range b.IDs() {
			data, err := b.Get(rid)
			if err != nil {
				return err
			}
			row, err := t.unmarshal(data)
			if err != nil {
				return err
			}
			if err := fn(relation.Handle{BlockID: bid, RecordID: rid}, row); err != nil {
				return err
			}
		}
	}
	return nil
}

// fetch loads the block holding h and the row's current bytes.
func (t *Table) fetch(h relation.Handle) (storage.Block, []byte, error) {
	if err := t.checkOpen(); err != nil {
		return nil, nil, err
	}
	b, err := t.file.Get(h.BlockID)
	if err != nil {
		return nil, nil, relation.Wrap(t.name, "", "invalid handle "+h.String(), err)
	}
	data, err := b.Get(h.RecordID)
	if err != nil {
		return nil, nil, relation.Wrap(t.name, "", "invalid handle "+h.String(), err)
	}
	return b, data, nil
}

func (t *Table) Project(h relation.Handle) (record.Row, error) {
	_, data, err := t.fetch(h)
	if err != nil {
		return nil, err
	}
	return t.unmarshal(data)
}

// ProjectColumns is Project restricted to columns; nil means all.
func (t *Table) ProjectColumns(h relation.Handle, columns []string) (record.Row, error) {
	row, err := t.Project(h)
	if err != nil || columns == nil {
		return row, err
	}
	out, err := row.Restrict(columns)
	if err != nil {
		return nil, t.codecErr("project", err)
	}
	return out, nil
}

// Update merges newValues into the row at h and rewrites it in place.
// When the grown row no longer fits its block it moves to the tail and
// the returned handle replaces h.
func (t *Table) Update(h relation.Handle, newValues record.Row) (relation.Handle, error) {
	b, data, err := t.fetch(h)
	if err != nil {
		return relation.Handle{}, err
	}
	row, err := t.unmarshal(data)
	if err != nil {
		return relation.Handle{}, err
	}
	for k, v := range newValues {
		row[k] = v
	}
	row, err = t.Validate(row)
	if err != nil {
		return relation.Handle{}, err
	}
	data, err = t.marshal(row)
	if err != nil {
		return relation.Handle{}, err
	}
	// nothing is touched until the new row is known to fit somewhere
	if err := t.checkFits(data); err != nil {
		return relation.Handle{}, err
	}

	err = b.Put(h.RecordID, data)
	if errors.Is(err, storage.ErrStorageFull) {
		slog.Debug("heap: update relocates row", "table", t.name, "handle", h.String())
		return t.relocate(h, row)
	}
	if err != nil {
		return relation.Handle{}, err
	}
	if err := t.file.Put(b); err != nil {
		return relation.Handle{}, err
	}
	return h, nil
}

// relocate appends row at the tail and only then deletes the record at h,
// so a failed append leaves h intact.
func (t *Table) relocate(h relation.Handle, row record.Row) (relation.Handle, error) {
	moved, err := t.append(row)
	if err != nil {
		return relation.Handle{}, err
	}
	if err := t.Delete(h); err != nil {
		if uerr := t.Delete(moved); uerr != nil {
			slog.Warn("heap: drop relocated copy failed", "table", t.name, "handle", moved.String(), "err", uerr)
		}
		return relation.Handle{}, err
	}
	return moved, nil
}

func (t *Table) Delete(h relation.Handle) error {
	b, _, err := t.fetch(h)
	if err != nil {
		return err
	}
	if err := b.Del(h.RecordID); err != nil {
		return relation.Wrap(t.name, "", "delete "+h.String(), err)
	}
	return t.file.Put(b)
}
