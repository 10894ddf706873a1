package catalog

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaheap/internal/index"
	"github.com/tuannm99/novaheap/internal/record"
	"github.com/tuannm99/novaheap/internal/relation"
	"github.com/tuannm99/novaheap/internal/storage"
)

func newTestProvider(t *testing.T) storage.Provider {
	t.Helper()
	return storage.NewFileProvider(afero.NewMemMapFs(), "/data", 1024, 16)
}

func newTestCatalog(t *testing.T, prov storage.Provider) *Catalog {
	t.Helper()
	c, err := Open(prov, Options{CacheSize: 16})
	require.NoError(t, err)
	return c
}

func count(t *testing.T, r relation.Relation) int {
	t.Helper()
	hs, err := r.Select()
	require.NoError(t, err)
	return len(hs)
}

// addTable records a table in the catalog the way CREATE TABLE does.
func addTable(t *testing.T, c *Catalog, name string, cols ...record.Column) {
	t.Helper()
	_, err := c.Tables().Insert(TableRow(name))
	require.NoError(t, err)
	for _, col := range cols {
		_, err := c.Columns().Insert(ColumnRow(name, col))
		require.NoError(t, err)
	}
	tbl, err := c.GetTable(name)
	require.NoError(t, err)
	require.NoError(t, tbl.Create())
}

func TestOpen_BootstrapsSelfDescribingRows(t *testing.T) {
	prov := newTestProvider(t)
	c := newTestCatalog(t, prov)

	require.Equal(t, 3, count(t, c.Tables()))
	require.Equal(t, 1+3+6, count(t, c.Columns()))
	require.Equal(t, 0, count(t, c.Indices()))

	for _, name := range []string{TablesName, ColumnsName, IndicesName} {
		ok, err := c.TableExists(name)
		require.NoError(t, err)
		require.True(t, ok, name)
	}

	hs, err := c.Columns().SelectWhere(TableRow(IndicesName))
	require.NoError(t, err)
	require.Len(t, hs, 6)
	row, err := c.Columns().Project(hs[5])
	require.NoError(t, err)
	require.Equal(t, "is_unique", row["column_name"].S)
	require.Equal(t, "BOOLEAN", row["data_type"].S)

	require.NoError(t, c.Close())

	// reopening does not describe the schema tables again
	c = newTestCatalog(t, prov)
	require.Equal(t, 3, count(t, c.Tables()))
	require.Equal(t, 10, count(t, c.Columns()))
	require.NoError(t, c.Close())
}

func TestCatalog_SchemaAndGetTable(t *testing.T) {
	c := newTestCatalog(t, newTestProvider(t))
	defer func() { require.NoError(t, c.Close()) }()

	addTable(t, c, "users",
		record.Column{Name: "id", Type: record.ColInt},
		record.Column{Name: "name", Type: record.ColText},
		record.Column{Name: "admin", Type: record.ColBool},
	)

	s, err := c.Schema("users")
	require.NoError(t, err)
	require.Equal(t, []string{"id", "name", "admin"}, s.Names())
	require.Equal(t, []record.ColumnType{record.ColInt, record.ColText, record.ColBool}, s.Types())

	t1, err := c.GetTable("users")
	require.NoError(t, err)
	t2, err := c.GetTable("users")
	require.NoError(t, err)
	require.Same(t, t1, t2)

	ok, err := c.TableExists("users")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = c.TableExists("ghost")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = c.GetTable("ghost")
	require.ErrorIs(t, err, relation.ErrRelation)

	sys, err := c.GetTable(ColumnsName)
	require.NoError(t, err)
	require.Same(t, c.Columns(), sys)
}

func TestCatalog_Indexes(t *testing.T) {
	c := newTestCatalog(t, newTestProvider(t))
	defer func() { require.NoError(t, c.Close()) }()

	addTable(t, c, "users",
		record.Column{Name: "id", Type: record.ColInt},
		record.Column{Name: "name", Type: record.ColText},
	)
	tbl, err := c.GetTable("users")
	require.NoError(t, err)
	h, err := tbl.Insert(record.Row{"id": record.IntValue(1), "name": record.TextValue("a")})
	require.NoError(t, err)

	meta := IndexMeta{Table: "users", Name: "fx", Columns: []string{"name", "id"}, Type: index.TypeBTree, Unique: true}
	for _, row := range IndexRows(meta) {
		_, err := c.Indices().Insert(row)
		require.NoError(t, err)
	}

	names, err := c.IndexNames("users")
	require.NoError(t, err)
	require.Equal(t, []string{"fx"}, names)

	got, err := c.IndexMeta("users", "fx")
	require.NoError(t, err)
	require.Equal(t, meta, got)

	ix, err := c.GetIndex("users", "fx")
	require.NoError(t, err)
	hs, err := ix.Lookup(record.Row{"id": record.IntValue(1), "name": record.TextValue("a")})
	require.NoError(t, err)
	require.Equal(t, relation.Handles{h}, hs)

	again, err := c.GetIndex("users", "fx")
	require.NoError(t, err)
	require.Same(t, ix, again)

	c.Forget("users")
	rebuilt, err := c.GetIndex("users", "fx")
	require.NoError(t, err)
	require.NotSame(t, ix, rebuilt)

	_, err = c.GetIndex("users", "nope")
	require.ErrorIs(t, err, relation.ErrRelation)
}
