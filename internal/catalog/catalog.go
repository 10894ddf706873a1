// Package catalog keeps table and index definitions in the _tables,
// _columns and _indices relations. A Catalog is created once and handed to
// whatever needs schema access.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/multierr"

	"github.com/tuannm99/novaheap/internal/alias/util"
	"github.com/tuannm99/novaheap/internal/heap"
	"github.com/tuannm99/novaheap/internal/index"
	"github.com/tuannm99/novaheap/internal/record"
	"github.com/tuannm99/novaheap/internal/relation"
	"github.com/tuannm99/novaheap/internal/storage"
)

const DefaultCacheSize = 1024

type Options struct {
	// CacheSize bounds the number of cached schemas and index descriptors.
	CacheSize int64
}

type Catalog struct {
	provider storage.Provider

	tables  *heap.Table
	columns *heap.Table
	indices *heap.Table

	// derived metadata only; entries may be dropped at any time
	schemas *ristretto.Cache[string, record.Schema]
	metas   *ristretto.Cache[string, IndexMeta]

	// open relations and built indices are owned here, never evicted
	open    map[string]*heap.Table
	indexes map[string]*index.HashIndex
}

// Open bootstraps the schema tables on provider, creating and describing
// them on first use.
func Open(provider storage.Provider, opts Options) (*Catalog, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	schemas, err := ristretto.NewCache(&ristretto.Config[string, record.Schema]{
		NumCounters: size * 10,
		MaxCost:     size,
		BufferItems: 64,

		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	metas, err := ristretto.NewCache(&ristretto.Config[string, IndexMeta]{
		NumCounters: size * 10,
		MaxCost:     size,
		BufferItems: 64,

		IgnoreInternalCost: true,
	})
	if err != nil {
		schemas.Close()
		return nil, err
	}

	c := &Catalog{
		provider: provider,
		tables:   heap.NewTable(TablesName, tablesSchema, provider.Store(TablesName)),
		columns:  heap.NewTable(ColumnsName, columnsSchema, provider.Store(ColumnsName)),
		indices:  heap.NewTable(IndicesName, indicesSchema, provider.Store(IndicesName)),
		schemas:  schemas,
		metas:    metas,
		open:     make(map[string]*heap.Table),
		indexes:  make(map[string]*index.HashIndex),
	}
	if err := c.bootstrap(); err != nil {
		util.CloseQuietly(c, "catalog")
		return nil, err
	}
	return c, nil
}

func (c *Catalog) bootstrap() error {
	for _, t := range []*heap.Table{c.tables, c.columns, c.indices} {
		created, err := openOrCreate(t)
		if err != nil {
			return err
		}
		if !created {
			continue
		}
		slog.Info("catalog: created schema table", "table", t.Name())

		switch t {
		case c.tables:
			for _, name := range []string{TablesName, ColumnsName, IndicesName} {
				if _, err := t.Insert(TableRow(name)); err != nil {
					return err
				}
			}
		case c.columns:
			for _, name := range []string{TablesName, ColumnsName, IndicesName} {
				schema, _ := SchemaOf(name)
				for _, col := range schema.Cols {
					if _, err := t.Insert(ColumnRow(name, col)); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func openOrCreate(t *heap.Table) (bool, error) {
	err := t.Open()
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrStoreNotFound) {
		return false, err
	}
	return true, t.Create()
}

func (c *Catalog) Provider() storage.Provider { return c.provider }
func (c *Catalog) Tables() relation.Relation  { return c.tables }
func (c *Catalog) Columns() relation.Relation { return c.columns }
func (c *Catalog) Indices() relation.Relation { return c.indices }

// TableExists reports whether _tables has a row for name.
func (c *Catalog) TableExists(name string) (bool, error) {
	hs, err := c.tables.SelectWhere(TableRow(name))
	if err != nil {
		return false, err
	}
	return len(hs) > 0, nil
}

// Schema reads the column definitions recorded for name.
func (c *Catalog) Schema(name string) (record.Schema, error) {
	if s, ok := SchemaOf(name); ok {
		return s, nil
	}
	if s, ok := c.schemas.Get(name); ok {
		return s, nil
	}

	hs, err := c.columns.SelectWhere(TableRow(name))
	if err != nil {
		return record.Schema{}, err
	}
	if len(hs) == 0 {
		return record.Schema{}, relation.Errorf(name, "", "table does not exist")
	}

	var s record.Schema
	for _, h := range hs {
		row, err := c.columns.ProjectColumns(h, []string{"column_name", "data_type"})
		if err != nil {
			return record.Schema{}, err
		}
		ct, err := record.ParseColumnType(row["data_type"].S)
		if err != nil {
			return record.Schema{}, relation.Wrap(name, row["column_name"].S, "bad catalog entry", err)
		}
		s.Cols = append(s.Cols, record.Column{Name: row["column_name"].S, Type: ct})
	}

	c.schemas.Set(name, s, 1)
	c.schemas.Wait()
	return s, nil
}

// GetTable returns the relation for name. User tables are returned
// unopened the first time; the caller opens or creates them.
func (c *Catalog) GetTable(name string) (relation.Relation, error) {
	return c.table(name)
}

func (c *Catalog) table(name string) (*heap.Table, error) {
	switch name {
	case TablesName:
		return c.tables, nil
	case ColumnsName:
		return c.columns, nil
	case IndicesName:
		return c.indices, nil
	}
	if t, ok := c.open[name]; ok {
		return t, nil
	}
	schema, err := c.Schema(name)
	if err != nil {
		return nil, err
	}
	t := heap.NewTable(name, schema, c.provider.Store(name))
	c.open[name] = t
	return t, nil
}

// IndexNames lists the indices on table in the order they were created.
func (c *Catalog) IndexNames(table string) ([]string, error) {
	hs, err := c.indices.SelectWhere(TableRow(table))
	if err != nil {
		return nil, err
	}
	var names []string
	seen := make(map[string]bool)
	for _, h := range hs {
		row, err := c.indices.ProjectColumns(h, []string{"index_name"})
		if err != nil {
			return nil, err
		}
		n := row["index_name"].S
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	return names, nil
}

func indexKey(table, name string) string { return table + "." + name }

// IndexMeta reads the _indices rows of one index.
func (c *Catalog) IndexMeta(table, name string) (IndexMeta, error) {
	key := indexKey(table, name)
	if m, ok := c.metas.Get(key); ok {
		return m, nil
	}

	hs, err := c.indices.SelectWhere(record.Row{
		"table_name": record.TextValue(table),
		"index_name": record.TextValue(name),
	})
	if err != nil {
		return IndexMeta{}, err
	}
	if len(hs) == 0 {
		return IndexMeta{}, relation.Errorf(table, "", "index %s does not exist", name)
	}

	type keyCol struct {
		seq  int32
		name string
	}
	m := IndexMeta{Table: table, Name: name}
	var cols []keyCol
	for _, h := range hs {
		row, err := c.indices.Project(h)
		if err != nil {
			return IndexMeta{}, err
		}
		cols = append(cols, keyCol{seq: row["seq_in_index"].N, name: row["column_name"].S})
		m.Type = index.Type(row["index_type"].S)
		m.Unique = row["is_unique"].Bool()
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].seq < cols[j].seq })
	for _, kc := range cols {
		m.Columns = append(m.Columns, kc.name)
	}

	c.metas.Set(key, m, 1)
	c.metas.Wait()
	return m, nil
}

// GetIndex returns the built index, building it from its table on first use.
func (c *Catalog) GetIndex(table, name string) (relation.Index, error) {
	key := indexKey(table, name)
	if ix, ok := c.indexes[key]; ok {
		return ix, nil
	}
	m, err := c.IndexMeta(table, name)
	if err != nil {
		return nil, err
	}
	t, err := c.table(table)
	if err != nil {
		return nil, err
	}
	if err := t.Open(); err != nil {
		return nil, err
	}
	ix := index.NewHashIndex(name, t, m.Columns, m.Unique)
	if err := ix.Create(); err != nil {
		return nil, err
	}
	c.indexes[key] = ix
	return ix, nil
}

// Indexes returns every index on table, built.
func (c *Catalog) Indexes(table string) ([]relation.Index, error) {
	names, err := c.IndexNames(table)
	if err != nil {
		return nil, err
	}
	out := make([]relation.Index, 0, len(names))
	for _, n := range names {
		ix, err := c.GetIndex(table, n)
		if err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, nil
}

// ForgetIndex drops cached state for one index.
func (c *Catalog) ForgetIndex(table, name string) {
	key := indexKey(table, name)
	delete(c.indexes, key)
	c.metas.Del(key)
}

// Forget drops cached state for table and its indices, closing the
// relation if it was open.
func (c *Catalog) Forget(table string) {
	if t, ok := c.open[table]; ok {
		if err := t.Close(); err != nil {
			slog.Warn("catalog: close on forget failed", "table", table, "err", err)
		}
		delete(c.open, table)
	}
	c.schemas.Del(table)
	prefix := table + "."
	for key := range c.indexes {
		if strings.HasPrefix(key, prefix) {
			delete(c.indexes, key)
			c.metas.Del(key)
		}
	}
}

// Close closes every relation the catalog opened.
func (c *Catalog) Close() error {
	var err error
	for name, t := range c.open {
		if cerr := t.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close %s: %w", name, cerr))
		}
	}
	c.open = make(map[string]*heap.Table)
	c.indexes = make(map[string]*index.HashIndex)
	for _, t := range []*heap.Table{c.indices, c.columns, c.tables} {
		err = multierr.Append(err, t.Close())
	}
	c.schemas.Close()
	c.metas.Close()
	return err
}
