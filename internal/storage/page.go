package storage

import (
	"fmt"
	"log/slog"

	"github.com/tuannm99/novaheap/internal/alias/bx"
)

// +------------------+ 0
// | num_records u16  |
// | end_free    u16  |
// | slot 1 (sz,loc)  |
// | slot 2 (sz,loc)  |
// | ...              | <-- directory grows up
// +------------------+
// |                  |
// |   Free space     |
// |                  |
// +------------------+ <-- end_free + 1
// |  Record data     |
// |  (grows down)    |
// +------------------+ BlockSize
//
// A slot of (0,0) marks a deleted record. Record ids are handed out
// sequentially from 1 and never reused.
type SlottedPage struct {
	buf        []byte
	id         BlockID
	numRecords uint16
	endFree    uint16
}

var _ Block = (*SlottedPage)(nil)

// NewSlottedPage wraps buf as block id. With isNew the header is initialized
// for an empty block; otherwise the existing header is parsed and checked.
func NewSlottedPage(buf []byte, id BlockID, isNew bool) (*SlottedPage, error) {
	if len(buf) < MinBlockSize || len(buf) > MaxBlockSize {
		return nil, ErrWrongSize
	}
	p := &SlottedPage{buf: buf, id: id}
	if isNew {
		p.numRecords = 0
		p.endFree = uint16(len(buf) - 1)
		if err := p.putHeader(0, 0, 0); err != nil {
			return nil, err
		}
		return p, nil
	}

	n, end, err := p.getHeader(0)
	if err != nil {
		return nil, err
	}
	if int(end) >= len(buf) || headerSize+slotSize*int(n) > int(end)+1 {
		return nil, fmt.Errorf("%w: block %d num_records=%d end_free=%d", ErrCorruptBlock, id, n, end)
	}
	p.numRecords, p.endFree = n, end
	return p, nil
}

func (p *SlottedPage) ID() BlockID    { return p.id }
func (p *SlottedPage) Bytes() []byte  { return p.buf }
func (p *SlottedPage) BlockSize() int { return len(p.buf) }
func (p *SlottedPage) NumRecords() int {
	return int(p.numRecords)
}

// FreeSpace is the number of bytes between the directory and the record data.
func (p *SlottedPage) FreeSpace() int {
	return int(p.endFree) + 1 - headerSize - slotSize*int(p.numRecords)
}

// HasRoom reports whether size more bytes fit while leaving room for one
// more directory slot.
func (p *SlottedPage) HasRoom(size int) bool {
	available := int(p.endFree) - slotSize*(int(p.numRecords)+1)
	return size <= available
}

// MaxRecordSize is the largest record Add accepts on an empty block of
// blockSize bytes.
func MaxRecordSize(blockSize int) int {
	return blockSize - 1 - 2*slotSize
}

// Add stores data as a new record and returns its id.
func (p *SlottedPage) Add(data []byte) (RecordID, error) {
	if len(data) == 0 {
		return 0, ErrEmptyRecord
	}
	// the room check runs before any byte is written
	if !p.HasRoom(len(data) + slotSize) {
		return 0, ErrStorageFull
	}
	p.numRecords++
	id := RecordID(p.numRecords)
	size := len(data)
	p.endFree -= uint16(size)
	loc := int(p.endFree) + 1

	if err := p.putHeader(0, 0, 0); err != nil {
		return 0, err
	}
	if err := p.putHeader(id, size, loc); err != nil {
		return 0, err
	}
	copy(p.buf[loc:loc+size], data)
	return id, nil
}

// Get returns a copy of the record's bytes.
func (p *SlottedPage) Get(id RecordID) ([]byte, error) {
	size, loc, err := p.slot(id)
	if err != nil {
		return nil, err
	}
	if loc == 0 {
		return nil, ErrRecordDeleted
	}
	if !bx.Fits(p.buf, loc, size) {
		return nil, ErrOutOfBounds
	}
	out := make([]byte, size)
	copy(out, p.buf[loc:loc+size])
	return out, nil
}

// Put replaces the record's bytes, compacting the data area so the record
// keeps a contiguous range.
func (p *SlottedPage) Put(id RecordID, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyRecord
	}
	size, loc, err := p.slot(id)
	if err != nil {
		return err
	}
	if loc == 0 {
		return ErrRecordDeleted
	}

	newSize := len(data)
	if newSize > size {
		extra := newSize - size
		if !p.HasRoom(extra) {
			return ErrStorageFull
		}
		if err := p.slide(loc, loc-extra); err != nil {
			return err
		}
		copy(p.buf[loc-extra:], data)
	} else {
		copy(p.buf[loc:], data)
		if err := p.slide(loc+newSize, loc+size); err != nil {
			return err
		}
	}

	// slide moved this record's location along with its neighbors
	_, loc, err = p.slot(id)
	if err != nil {
		return err
	}
	return p.putHeader(id, newSize, loc)
}

// Del removes the record and reclaims its bytes.
func (p *SlottedPage) Del(id RecordID) error {
	size, loc, err := p.slot(id)
	if err != nil {
		return err
	}
	if loc == 0 {
		return ErrRecordDeleted
	}
	if err := p.putHeader(id, 0, 0); err != nil {
		return err
	}
	return p.slide(loc, loc+size)
}

// IDs returns the live record ids in ascending order. The slice is a
// snapshot; it does not track later mutations.
func (p *SlottedPage) IDs() []RecordID {
	ids := make([]RecordID, 0, p.numRecords)
	for i := 1; i <= int(p.numRecords); i++ {
		_, loc, err := p.getHeader(RecordID(i))
		if err != nil || loc == 0 {
			continue
		}
		ids = append(ids, RecordID(i))
	}
	return ids
}

// slide shifts the data between the free-space boundary and start by
// end-start bytes, then fixes up every live record located at or below start.
func (p *SlottedPage) slide(start, end int) error {
	shift := end - start
	if shift == 0 {
		return nil
	}

	from := int(p.endFree) + 1
	n := start - from
	dst := from + shift
	if n < 0 || !bx.Fits(p.buf, from, n) || !bx.Fits(p.buf, dst, n) ||
		dst < headerSize+slotSize*int(p.numRecords) {
		return fmt.Errorf("%w: slide(%d, %d) end_free=%d", ErrOutOfBounds, start, end, p.endFree)
	}
	copy(p.buf[dst:dst+n], p.buf[from:from+n])

	for _, id := range p.IDs() {
		size, loc, err := p.getHeader(id)
		if err != nil {
			return err
		}
		if int(loc) <= start {
			if err := p.putHeader(id, int(size), int(loc)+shift); err != nil {
				return err
			}
		}
	}

	p.endFree = uint16(int(p.endFree) + shift)
	slog.Debug("page: slide", "block", p.id, "start", start, "end", end, "endFree", p.endFree)
	return p.putHeader(0, 0, 0)
}

// slot validates id and returns its (size, location).
func (p *SlottedPage) slot(id RecordID) (size, loc int, err error) {
	if id == 0 || int(id) > int(p.numRecords) {
		return 0, 0, fmt.Errorf("%w: %d (block %d has %d)", ErrBadRecord, id, p.id, p.numRecords)
	}
	s, l, err := p.getHeader(id)
	if err != nil {
		return 0, 0, err
	}
	return int(s), int(l), nil
}

// getHeader reads slot id; slot 0 is the block header (num_records, end_free).
func (p *SlottedPage) getHeader(id RecordID) (size, loc uint16, err error) {
	off := slotSize * int(id)
	if size, err = p.readU16At(off); err != nil {
		return 0, 0, err
	}
	if loc, err = p.readU16At(off + 2); err != nil {
		return 0, 0, err
	}
	return size, loc, nil
}

// putHeader writes slot id. For id 0 the arguments are ignored and the
// current num_records/end_free are written instead.
func (p *SlottedPage) putHeader(id RecordID, size, loc int) error {
	if id == 0 {
		size, loc = int(p.numRecords), int(p.endFree)
	}
	if size < 0 || size > 0xFFFF || loc < 0 || loc > 0xFFFF {
		return ErrOutOfBounds
	}
	off := slotSize * int(id)
	if err := p.writeU16At(off, uint16(size)); err != nil {
		return err
	}
	return p.writeU16At(off+2, uint16(loc))
}

func (p *SlottedPage) readU16At(off int) (uint16, error) {
	v, err := bx.U16At(p.buf, off)
	if err != nil {
		return 0, fmt.Errorf("%w: read u16 at %d", ErrOutOfBounds, off)
	}
	return v, nil
}

func (p *SlottedPage) writeU16At(off int, v uint16) error {
	if err := bx.PutU16At(p.buf, off, v); err != nil {
		return fmt.Errorf("%w: write u16 at %d", ErrOutOfBounds, off)
	}
	return nil
}
