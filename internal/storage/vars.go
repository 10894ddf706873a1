package storage

import (
	"errors"
	"fmt"
)

const (
	OneKB = 1 << 10

	// DefaultBlockSize is BLOCK_SZ unless configured otherwise.
	DefaultBlockSize = 4 * OneKB
	// MaxBlockSize keeps every in-block offset representable as a u16.
	MaxBlockSize = 1 << 16
	// MinBlockSize leaves room for the header and a handful of slots.
	MinBlockSize = 64

	DefaultSegmentBlocks = 262144

	headerSize = 4 // num_records u16 + end_free u16
	slotSize   = 4 // size u16 + location u16
)

const (
	FileMode0644 = 0o644
	FileMode0755 = 0o755
)

// BlockID addresses a block inside one relation's store; ids start at 1.
type BlockID uint32

// RecordID addresses a record inside one block; ids start at 1.
type RecordID uint16

type Backend int

const (
	FileBackend Backend = iota + 1
	LevelDBBackend
)

func (b Backend) String() string {
	switch b {
	case FileBackend:
		return "file"
	case LevelDBBackend:
		return "leveldb"
	default:
		return "unknown"
	}
}

func GetBackend(s string) (Backend, error) {
	switch s {
	case "file":
		return FileBackend, nil
	case "leveldb":
		return LevelDBBackend, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidBackend, s)
	}
}

var (
	// ErrStorageFull is returned by Add/Put when the block cannot hold the write.
	// It is expected: every relation's tail block eventually fills.
	ErrStorageFull   = errors.New("storage: block is full")
	ErrBadRecord     = errors.New("storage: invalid record id")
	ErrOutOfBounds   = errors.New("storage: access outside block")
	ErrWrongSize     = errors.New("storage: buffer size out of range")
	ErrStoreNotFound = errors.New("storage: store does not exist")
	ErrStoreExists   = errors.New("storage: store already exists")
	ErrStoreClosed   = errors.New("storage: store is not open")
	ErrBlockNotFound = errors.New("storage: block not found")
)

var (
	ErrRecordDeleted = errors.New("storage: record was deleted")
	ErrEmptyRecord   = errors.New("storage: empty record")
	ErrCorruptBlock  = errors.New("storage: block header is corrupt")
)

var ErrInvalidBackend = errors.New("storage: unsupported backend")
