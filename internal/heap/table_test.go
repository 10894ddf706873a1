package heap

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaheap/internal/record"
	"github.com/tuannm99/novaheap/internal/relation"
	"github.com/tuannm99/novaheap/internal/storage"
)

func usersSchema() record.Schema {
	return record.NewSchema(
		record.Column{Name: "id", Type: record.ColInt},
		record.Column{Name: "name", Type: record.ColText},
	)
}

// newTestTable creates a table on an in-memory file provider.
func newTestTable(t *testing.T, name string) (*Table, storage.Provider) {
	t.Helper()
	prov := newTestProvider(t)
	tbl := NewTable(name, usersSchema(), prov.Store(name))
	require.NoError(t, tbl.Create())
	return tbl, prov
}

func userRow(id int, name string) record.Row {
	return record.Row{"id": record.IntValue(int32(id)), "name": record.TextValue(name)}
}

func TestTable_HelloScenario(t *testing.T) {
	prov := newTestProvider(t)
	schema := record.NewSchema(
		record.Column{Name: "a", Type: record.ColInt},
		record.Column{Name: "b", Type: record.ColText},
	)
	tbl := NewTable("t", schema, prov.Store("t"))
	require.NoError(t, tbl.Create())

	row := record.Row{"a": record.IntValue(12), "b": record.TextValue("Hello!")}
	_, err := tbl.Insert(row)
	require.NoError(t, err)

	hs, err := tbl.Select()
	require.NoError(t, err)
	require.Len(t, hs, 1)

	got, err := tbl.Project(hs[0])
	require.NoError(t, err)
	require.Equal(t, row, got)

	require.NoError(t, tbl.Drop())
	require.Error(t, tbl.Open())
}

func TestTable_InsertSelectOrder(t *testing.T) {
	tbl, _ := newTestTable(t, "users")

	const n = 10
	for i := 1; i <= n; i++ {
		_, err := tbl.Insert(userRow(i, fmt.Sprintf("user-%d", i)))
		require.NoError(t, err)
	}

	hs, err := tbl.Select()
	require.NoError(t, err)
	require.Len(t, hs, n)
	for i, h := range hs {
		row, err := tbl.Project(h)
		require.NoError(t, err)
		require.Equal(t, userRow(i+1, fmt.Sprintf("user-%d", i+1)), row)
	}

	sub, err := tbl.ProjectColumns(hs[2], []string{"name"})
	require.NoError(t, err)
	require.Equal(t, record.Row{"name": record.TextValue("user-3")}, sub)

	_, err = tbl.ProjectColumns(hs[2], []string{"nope"})
	require.ErrorIs(t, err, relation.ErrRelation)
}

func TestTable_AppendStartsNewBlock(t *testing.T) {
	tbl, _ := newTestTable(t, "users")
	require.Equal(t, storage.BlockID(1), tbl.File().Last())

	// 46-byte records: five fit in a 256-byte block
	name := strings.Repeat("x", 40)
	var inserted relation.Handles
	for i := 1; i <= 12; i++ {
		h, err := tbl.Insert(userRow(i, name))
		require.NoError(t, err)
		inserted = append(inserted, h)
	}
	require.Equal(t, storage.BlockID(3), tbl.File().Last())
	require.Equal(t, relation.Handle{BlockID: 1, RecordID: 5}, inserted[4])
	require.Equal(t, relation.Handle{BlockID: 2, RecordID: 1}, inserted[5])

	hs, err := tbl.Select()
	require.NoError(t, err)
	require.Equal(t, inserted, hs)
	for i, h := range hs {
		row, err := tbl.Project(h)
		require.NoError(t, err)
		require.Equal(t, record.IntValue(int32(i+1)), row["id"])
	}
}

func TestTable_ReopenKeepsRows(t *testing.T) {
	tbl, prov := newTestTable(t, "users")
	for i := 1; i <= 3; i++ {
		_, err := tbl.Insert(userRow(i, "u"))
		require.NoError(t, err)
	}
	require.NoError(t, tbl.Close())

	_, err := tbl.Select()
	require.ErrorIs(t, err, relation.ErrRelation)

	again := NewTable("users", usersSchema(), prov.Store("users"))
	require.NoError(t, again.CreateIfNotExists())
	hs, err := again.Select()
	require.NoError(t, err)
	require.Len(t, hs, 3)
}

func TestTable_CreateIfNotExists(t *testing.T) {
	prov := newTestProvider(t)
	tbl := NewTable("users", usersSchema(), prov.Store("users"))
	require.NoError(t, tbl.CreateIfNotExists())
	_, err := tbl.Insert(userRow(1, "a"))
	require.NoError(t, err)

	require.NoError(t, tbl.CreateIfNotExists())
	hs, err := tbl.Select()
	require.NoError(t, err)
	require.Len(t, hs, 1)
}

func TestTable_ValidateErrors(t *testing.T) {
	tbl, _ := newTestTable(t, "users")

	_, err := tbl.Insert(record.Row{"id": record.IntValue(1)})
	require.ErrorIs(t, err, relation.ErrRelation)
	var rerr *relation.Error
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, "users", rerr.Table)
	require.Equal(t, "name", rerr.Column)

	_, err = tbl.Insert(record.Row{"id": record.TextValue("1"), "name": record.TextValue("a")})
	require.ErrorIs(t, err, relation.ErrRelation)

	_, err = tbl.Insert(record.Row{"id": record.IntValue(1), "name": record.TextValue("a"), "zzz": record.IntValue(0)})
	require.ErrorIs(t, err, relation.ErrRelation)

	empty := NewTable("e", record.Schema{}, newTestProvider(t).Store("e"))
	require.ErrorIs(t, empty.Create(), relation.ErrRelation)
}

func TestTable_UpdateInPlace(t *testing.T) {
	tbl, _ := newTestTable(t, "users")
	h1, err := tbl.Insert(userRow(1, "alice"))
	require.NoError(t, err)
	h2, err := tbl.Insert(userRow(2, "bob"))
	require.NoError(t, err)

	h, err := tbl.Update(h1, record.Row{"name": record.TextValue("alice-the-second")})
	require.NoError(t, err)
	require.Equal(t, h1, h)

	row, err := tbl.Project(h1)
	require.NoError(t, err)
	require.Equal(t, userRow(1, "alice-the-second"), row)

	row, err = tbl.Project(h2)
	require.NoError(t, err)
	require.Equal(t, userRow(2, "bob"), row)

	h, err = tbl.Update(h2, record.Row{"name": record.TextValue("b")})
	require.NoError(t, err)
	require.Equal(t, h2, h)
	row, err = tbl.Project(h2)
	require.NoError(t, err)
	require.Equal(t, userRow(2, "b"), row)

	_, err = tbl.Update(h2, record.Row{"zzz": record.IntValue(1)})
	require.ErrorIs(t, err, relation.ErrRelation)
}

func TestTable_UpdateRelocatesWhenBlockIsFull(t *testing.T) {
	tbl, _ := newTestTable(t, "users")
	name := strings.Repeat("x", 40)
	var hs relation.Handles
	for i := 1; i <= 5; i++ {
		h, err := tbl.Insert(userRow(i, name))
		require.NoError(t, err)
		hs = append(hs, h)
	}
	require.Equal(t, storage.BlockID(1), tbl.File().Last())

	moved, err := tbl.Update(hs[0], record.Row{"name": record.TextValue(strings.Repeat("y", 100))})
	require.NoError(t, err)
	require.NotEqual(t, hs[0], moved)
	require.Equal(t, storage.BlockID(2), moved.BlockID)

	_, err = tbl.Project(hs[0])
	require.ErrorIs(t, err, relation.ErrRelation)

	row, err := tbl.Project(moved)
	require.NoError(t, err)
	require.Equal(t, userRow(1, strings.Repeat("y", 100)), row)

	all, err := tbl.Select()
	require.NoError(t, err)
	require.Equal(t, append(hs[1:5:5], moved), all)
}

func TestTable_UpdateTooLargeLeavesRowIntact(t *testing.T) {
	tbl, _ := newTestTable(t, "users")
	h, err := tbl.Insert(userRow(1, "alice"))
	require.NoError(t, err)
	last := tbl.File().Last()

	_, err = tbl.Update(h, record.Row{"name": record.TextValue(strings.Repeat("z", 300))})
	require.ErrorIs(t, err, relation.ErrRelation)
	require.ErrorIs(t, err, storage.ErrStorageFull)

	row, err := tbl.Project(h)
	require.NoError(t, err)
	require.Equal(t, userRow(1, "alice"), row)

	all, err := tbl.Select()
	require.NoError(t, err)
	require.Equal(t, relation.Handles{h}, all)
	require.Equal(t, last, tbl.File().Last())
}

func TestTable_InsertTooLargeAllocatesNothing(t *testing.T) {
	tbl, _ := newTestTable(t, "users")
	h, err := tbl.Insert(userRow(1, "alice"))
	require.NoError(t, err)
	last := tbl.File().Last()

	for i := 0; i < 3; i++ {
		_, err = tbl.Insert(userRow(2, strings.Repeat("z", 300)))
		require.ErrorIs(t, err, relation.ErrRelation)
		require.ErrorIs(t, err, storage.ErrStorageFull)
	}
	require.Equal(t, last, tbl.File().Last())

	// the tail block still takes rows
	next, err := tbl.Insert(userRow(3, "carol"))
	require.NoError(t, err)
	require.Equal(t, h.BlockID, next.BlockID)
}

func TestTable_Delete(t *testing.T) {
	tbl, _ := newTestTable(t, "users")
	var hs relation.Handles
	for i := 1; i <= 4; i++ {
		h, err := tbl.Insert(userRow(i, fmt.Sprintf("u%d", i)))
		require.NoError(t, err)
		hs = append(hs, h)
	}

	require.NoError(t, tbl.Delete(hs[1]))
	err := tbl.Delete(hs[1])
	require.ErrorIs(t, err, relation.ErrRelation)

	_, err = tbl.Project(hs[1])
	require.ErrorIs(t, err, relation.ErrRelation)

	got, err := tbl.Select()
	require.NoError(t, err)
	require.Equal(t, relation.Handles{hs[0], hs[2], hs[3]}, got)

	for _, i := range []int{0, 2, 3} {
		row, err := tbl.Project(hs[i])
		require.NoError(t, err)
		require.Equal(t, userRow(i+1, fmt.Sprintf("u%d", i+1)), row)
	}

	_, err = tbl.Project(relation.Handle{BlockID: 9, RecordID: 1})
	require.ErrorIs(t, err, relation.ErrRelation)
}

func TestTable_SelectWhereAndScan(t *testing.T) {
	tbl, _ := newTestTable(t, "users")
	for i := 1; i <= 6; i++ {
		_, err := tbl.Insert(userRow(i, []string{"even", "odd"}[i%2]))
		require.NoError(t, err)
	}

	hs, err := tbl.SelectWhere(record.Row{"name": record.TextValue("odd")})
	require.NoError(t, err)
	require.Len(t, hs, 3)
	for i, h := range hs {
		row, err := tbl.Project(h)
		require.NoError(t, err)
		require.Equal(t, record.IntValue(int32(2*i+1)), row["id"])
	}

	hs, err = tbl.SelectWhere(record.Row{"name": record.TextValue("odd"), "id": record.IntValue(3)})
	require.NoError(t, err)
	require.Len(t, hs, 1)

	_, err = tbl.SelectWhere(record.Row{"zzz": record.IntValue(3)})
	require.ErrorIs(t, err, relation.ErrRelation)

	seen := 0
	err = tbl.Scan(func(h relation.Handle, row record.Row) error {
		seen++
		if seen == 2 {
			return fmt.Errorf("stop")
		}
		return nil
	})
	require.EqualError(t, err, "stop")
	require.Equal(t, 2, seen)
}
