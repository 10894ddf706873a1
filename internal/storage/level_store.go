package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/tuannm99/novaheap/internal/alias/bx"
)

const levelSuffix = ".ldb"

type LevelProvider struct {
	dir       string
	blockSize int
}

var _ Provider = (*LevelProvider)(nil)

func NewLevelProvider(dir string, blockSize int) *LevelProvider {
	return &LevelProvider{dir: dir, blockSize: blockSize}
}

func (p *LevelProvider) BlockSize() int { return p.blockSize }

func (p *LevelProvider) Store(name string) BlockStore {
	return &LevelStore{
		name:      name,
		path:      filepath.Join(p.dir, name+levelSuffix),
		blockSize: p.blockSize,
	}
}

// LevelStore keeps one relation in its own leveldb database, one entry per
// block keyed by the big-endian block id so iteration order is id order.
type LevelStore struct {
	name      string
	path      string
	blockSize int
	db        *leveldb.DB
}

var _ BlockStore = (*LevelStore)(nil)

func (s *LevelStore) Name() string   { return s.name }
func (s *LevelStore) BlockSize() int { return s.blockSize }

func blockKey(id BlockID) []byte {
	var k [4]byte
	bx.PutU32BE(k[:], uint32(id))
	return k[:]
}

func (s *LevelStore) exists() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *LevelStore) Create() error {
	ok, err := s.exists()
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s", ErrStoreExists, s.name)
	}
	db, err := leveldb.OpenFile(s.path, &opt.Options{ErrorIfExist: true})
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *LevelStore) Open() error {
	if s.db != nil {
		return nil
	}
	ok, err := s.exists()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrStoreNotFound, s.name)
	}
	db, err := leveldb.OpenFile(s.path, &opt.Options{ErrorIfMissing: true})
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *LevelStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *LevelStore) Drop() error {
	if err := s.Close(); err != nil {
		return err
	}
	ok, err := s.exists()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrStoreNotFound, s.name)
	}
	return os.RemoveAll(s.path)
}

func (s *LevelStore) Get(id BlockID) ([]byte, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	data, err := s.db.Get(blockKey(id), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrBlockNotFound, id)
		}
		return nil, err
	}
	if len(data) != s.blockSize {
		return nil, fmt.Errorf("%w: block %d has %d bytes", ErrWrongSize, id, len(data))
	}
	return data, nil
}

func (s *LevelStore) Put(id BlockID, data []byte) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	if len(data) != s.blockSize {
		return fmt.Errorf("%w: got %d, want %d", ErrWrongSize, len(data), s.blockSize)
	}
	if id == 0 {
		return ErrBlockNotFound
	}
	return s.db.Put(blockKey(id), data, nil)
}

func (s *LevelStore) Last() (BlockID, error) {
	if s.db == nil {
		return 0, ErrStoreClosed
	}
	it := s.db.NewIterator(nil, nil)
	defer it.Release()

	var last BlockID
	if it.Last() {
		last = BlockID(bx.U32BE(it.Key()))
	}
	return last, it.Error()
}
