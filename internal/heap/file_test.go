package heap

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaheap/internal/storage"
)

const testBlockSize = 256

func newTestProvider(t *testing.T) storage.Provider {
	t.Helper()
	return storage.NewFileProvider(afero.NewMemMapFs(), "/data", testBlockSize, 4)
}

func TestFile_CreateGetNew(t *testing.T) {
	f := NewFile(newTestProvider(t).Store("f"))

	require.NoError(t, f.Create())
	require.True(t, f.IsOpen())
	require.Equal(t, storage.BlockID(1), f.Last())
	require.Equal(t, []storage.BlockID{1}, f.BlockIDs())

	for want := storage.BlockID(2); want <= 6; want++ {
		b, err := f.GetNew()
		require.NoError(t, err)
		require.Equal(t, want, b.ID())
		require.Equal(t, want, f.Last())
		require.Empty(t, b.IDs())
	}
	require.Equal(t, []storage.BlockID{1, 2, 3, 4, 5, 6}, f.BlockIDs())

	_, err := f.Get(7)
	require.ErrorIs(t, err, storage.ErrBlockNotFound)
	_, err = f.Get(0)
	require.ErrorIs(t, err, storage.ErrBlockNotFound)
}

func TestFile_PutPersistsAcrossReopen(t *testing.T) {
	prov := newTestProvider(t)
	f := NewFile(prov.Store("f"))
	require.NoError(t, f.Create())

	b, err := f.Get(1)
	require.NoError(t, err)
	rid, err := b.Add([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Put(b))
	_, err = f.GetNew()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Close is idempotent, Get on a closed file fails
	require.NoError(t, f.Close())
	_, err = f.Get(1)
	require.ErrorIs(t, err, storage.ErrStoreClosed)

	f2 := NewFile(prov.Store("f"))
	require.NoError(t, f2.Open())
	require.NoError(t, f2.Open())
	require.Equal(t, storage.BlockID(2), f2.Last())

	b, err = f2.Get(1)
	require.NoError(t, err)
	got, err := b.Get(rid)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestFile_CreateTwiceFails(t *testing.T) {
	prov := newTestProvider(t)
	require.NoError(t, NewFile(prov.Store("f")).Create())
	require.ErrorIs(t, NewFile(prov.Store("f")).Create(), storage.ErrStoreExists)
}

func TestFile_Drop(t *testing.T) {
	prov := newTestProvider(t)
	f := NewFile(prov.Store("f"))
	require.NoError(t, f.Create())
	require.NoError(t, f.Close())

	// drop opens a closed file itself
	require.NoError(t, f.Drop())
	require.False(t, f.IsOpen())
	require.ErrorIs(t, NewFile(prov.Store("f")).Open(), storage.ErrStoreNotFound)
	require.ErrorIs(t, f.Drop(), storage.ErrStoreNotFound)
}
