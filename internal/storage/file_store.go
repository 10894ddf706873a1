package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

const fileSuffix = ".db"

// NewOsFs is the filesystem used outside tests.
func NewOsFs() afero.Fs { return afero.NewOsFs() }

type FileProvider struct {
	fs            afero.Fs
	dir           string
	blockSize     int
	segmentBlocks int
}

var _ Provider = (*FileProvider)(nil)

func NewFileProvider(fs afero.Fs, dir string, blockSize, segmentBlocks int) *FileProvider {
	if segmentBlocks <= 0 {
		segmentBlocks = DefaultSegmentBlocks
	}
	return &FileProvider{fs: fs, dir: dir, blockSize: blockSize, segmentBlocks: segmentBlocks}
}

func (p *FileProvider) BlockSize() int { return p.blockSize }

func (p *FileProvider) Store(name string) BlockStore {
	return &FileStore{
		fs:            p.fs,
		dir:           filepath.Clean(p.dir),
		base:          name + fileSuffix,
		blockSize:     p.blockSize,
		segmentBlocks: p.segmentBlocks,
	}
}

// FileStore keeps a relation's blocks in segment files:
// Base, Base.1, Base.2, ... each holding segmentBlocks blocks.
type FileStore struct {
	fs            afero.Fs
	dir           string
	base          string
	blockSize     int
	segmentBlocks int

	segs map[int32]afero.File // nil when closed
}

var _ BlockStore = (*FileStore)(nil)

func (s *FileStore) Name() string   { return strings.TrimSuffix(s.base, fileSuffix) }
func (s *FileStore) BlockSize() int { return s.blockSize }

// SegFileName returns segment file name:
//   - seg 0: base
//   - seg N>0: base.N
func SegFileName(base string, segNo int32) string {
	if segNo <= 0 {
		return base
	}
	return fmt.Sprintf("%s.%d", base, segNo)
}

func (s *FileStore) segPath(segNo int32) string {
	return filepath.Join(s.dir, SegFileName(s.base, segNo))
}

// locate maps a 1-based block id to (segment, byte offset).
func (s *FileStore) locate(id BlockID) (segNo int32, offset int64) {
	idx := int64(id) - 1
	segNo = int32(idx / int64(s.segmentBlocks))
	offset = (idx % int64(s.segmentBlocks)) * int64(s.blockSize)
	return segNo, offset
}

func (s *FileStore) Create() error {
	if err := s.fs.MkdirAll(s.dir, FileMode0755); err != nil {
		return err
	}
	f, err := s.fs.OpenFile(s.segPath(0), os.O_RDWR|os.O_CREATE|os.O_EXCL, FileMode0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrStoreExists, s.Name())
		}
		return err
	}
	s.segs = map[int32]afero.File{0: f}
	return nil
}

func (s *FileStore) Open() error {
	if s.segs != nil {
		return nil
	}
	f, err := s.fs.OpenFile(s.segPath(0), os.O_RDWR, FileMode0644)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrStoreNotFound, s.Name())
		}
		return err
	}
	s.segs = map[int32]afero.File{0: f}
	return nil
}

func (s *FileStore) Close() error {
	if s.segs == nil {
		return nil
	}
	var err error
	for _, f := range s.segs {
		err = multierr.Append(err, f.Close())
	}
	s.segs = nil
	return err
}

func (s *FileStore) Drop() error {
	if err := s.Close(); err != nil {
		return err
	}
	segs, err := s.listSegments()
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return fmt.Errorf("%w: %s", ErrStoreNotFound, s.Name())
	}
	for _, segNo := range segs {
		if err := s.fs.Remove(s.segPath(segNo)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *FileStore) segment(segNo int32, create bool) (afero.File, error) {
	if s.segs == nil {
		return nil, ErrStoreClosed
	}
	if f, ok := s.segs[segNo]; ok {
		return f, nil
	}
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	f, err := s.fs.OpenFile(s.segPath(segNo), flags, FileMode0644)
	if err != nil {
		return nil, err
	}
	s.segs[segNo] = f
	return f, nil
}

func (s *FileStore) Get(id BlockID) ([]byte, error) {
	if id == 0 {
		return nil, ErrBlockNotFound
	}
	segNo, off := s.locate(id)
	f, err := s.segment(segNo, false)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %d", ErrBlockNotFound, id)
		}
		return nil, err
	}
	buf := make([]byte, s.blockSize)
	n, err := f.ReadAt(buf, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if n < s.blockSize {
		return nil, fmt.Errorf("%w: %d", ErrBlockNotFound, id)
	}
	return buf, nil
}

func (s *FileStore) Put(id BlockID, data []byte) error {
	if len(data) != s.blockSize {
		return fmt.Errorf("%w: got %d, want %d", ErrWrongSize, len(data), s.blockSize)
	}
	if id == 0 {
		return ErrBlockNotFound
	}
	segNo, off := s.locate(id)
	f, err := s.segment(segNo, true)
	if err != nil {
		return err
	}
	n, err := f.WriteAt(data, off)
	if err != nil {
		return err
	}
	if n != s.blockSize {
		return io.ErrShortWrite
	}
	return nil
}

// Last sums whole blocks across all segments; blocks are only ever
// appended, so the count is the highest id.
func (s *FileStore) Last() (BlockID, error) {
	segs, err := s.listSegments()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, segNo := range segs {
		info, err := s.fs.Stat(s.segPath(segNo))
		if err != nil {
			return 0, err
		}
		total += info.Size() / int64(s.blockSize)
	}
	slog.Debug("filestore: last", "store", s.Name(), "segments", len(segs), "blocks", total)
	return BlockID(total), nil
}

// listSegments scans dir and returns all segment numbers for base.
func (s *FileStore) listSegments() ([]int32, error) {
	ents, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	segs := make([]int32, 0)
	prefix := s.base + "."
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == s.base {
			segs = append(segs, 0)
			continue
		}
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		n64, err := strconv.ParseInt(strings.TrimPrefix(name, prefix), 10, 32)
		if err != nil || n64 <= 0 {
			continue
		}
		segs = append(segs, int32(n64))
	}

	sort.Slice(segs, func(i, j int) bool { return segs[i] < segs[j] })
	return segs, nil
}
