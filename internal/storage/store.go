package storage

// BlockStore is the persistent array of fixed-size blocks behind one
// relation. Block ids are 1-based and assigned by the caller in sequence.
// Crash safety is the store's concern.
type BlockStore interface {
	Name() string
	BlockSize() int
	// Create makes the underlying resource, failing with ErrStoreExists if
	// it is already there, and leaves the store open.
	Create() error
	// Open fails with ErrStoreNotFound if the resource is absent.
	Open() error
	Close() error
	// Drop deletes the resource; the store is closed first if needed.
	Drop() error
	Get(id BlockID) ([]byte, error)
	Put(id BlockID, data []byte) error
	// Last is the highest block id stored, 0 when empty.
	Last() (BlockID, error)
}

// Provider hands out the BlockStore for a relation name.
type Provider interface {
	Store(name string) BlockStore
	BlockSize() int
}

func NewProvider(backend Backend, dir string, blockSize, segmentBlocks int) (Provider, error) {
	if blockSize < MinBlockSize || blockSize > MaxBlockSize {
		return nil, ErrWrongSize
	}
	switch backend {
	case FileBackend:
		return NewFileProvider(NewOsFs(), dir, blockSize, segmentBlocks), nil
	case LevelDBBackend:
		return NewLevelProvider(dir, blockSize), nil
	default:
		return nil, ErrInvalidBackend
	}
}
