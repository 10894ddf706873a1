package heap

import (
	"log/slog"

	"github.com/tuannm99/novaheap/internal/alias/util"
	"github.com/tuannm99/novaheap/internal/storage"
)

// File is the block sequence behind one relation. Block ids run 1..Last
// with no gaps; a new block is always Last+1.
type File struct {
	store  storage.BlockStore
	closed bool
	last   storage.BlockID
}

var _ storage.File = (*File)(nil)

func NewFile(store storage.BlockStore) *File {
	return &File{store: store, closed: true}
}

func (f *File) Name() string          { return f.store.Name() }
func (f *File) BlockSize() int        { return f.store.BlockSize() }
func (f *File) Last() storage.BlockID { return f.last }
func (f *File) IsOpen() bool          { return !f.closed }

// Create makes the store and writes an empty first block.
func (f *File) Create() error {
	if err := f.store.Create(); err != nil {
		return err
	}
	f.closed = false
	f.last = 0
	_, err := f.GetNew()
	return err
}

func (f *File) Open() error {
	if !f.closed {
		return nil
	}
	if err := f.store.Open(); err != nil {
		return err
	}
	last, err := f.store.Last()
	if err != nil {
		util.CloseQuietly(f.store, "store "+f.Name())
		return err
	}
	f.last = last
	f.closed = false
	return nil
}

func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.store.Close()
}

func (f *File) Drop() error {
	if err := f.Open(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	f.last = 0
	return f.store.Drop()
}

// GetNew appends an empty block and returns it freshly read from the store.
func (f *File) GetNew() (storage.Block, error) {
	if f.closed {
		return nil, storage.ErrStoreClosed
	}
	id := f.last + 1
	page, err := storage.NewSlottedPage(make([]byte, f.store.BlockSize()), id, true)
	if err != nil {
		return nil, err
	}
	if err := f.store.Put(id, page.Bytes()); err != nil {
		return nil, err
	}
	f.last = id
	slog.Debug("heap: new block", "file", f.Name(), "block", id)
	return f.Get(id)
}

func (f *File) Get(id storage.BlockID) (storage.Block, error) {
	if f.closed {
		return nil, storage.ErrStoreClosed
	}
	if id < 1 || id > f.last {
		return nil, storage.ErrBlockNotFound
	}
	data, err := f.store.Get(id)
	if err != nil {
		return nil, err
	}
	return storage.NewSlottedPage(data, id, false)
}

func (f *File) Put(b storage.Block) error {
	if f.closed {
		return storage.ErrStoreClosed
	}
	return f.store.Put(b.ID(), b.Bytes())
}

func (f *File) BlockIDs() []storage.BlockID {
	ids := make([]storage.BlockID, 0, f.last)
	for id := storage.BlockID(1); id <= f.last; id++ {
		ids = append(ids, id)
	}
	return ids
}
