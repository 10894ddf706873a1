package index

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/tuannm99/novaheap/internal/record"
	"github.com/tuannm99/novaheap/internal/relation"
)

var (
	ErrDuplicateKey = errors.New("index: duplicate key")
	ErrKeyNotFound  = errors.New("index: key not found")
	ErrBadType      = errors.New("index: unsupported index type")
)

type Type string

const (
	TypeBTree Type = "BTREE"
	TypeHash  Type = "HASH"
)

// ParseType maps an index type name; empty means BTREE.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(s) {
	case "", string(TypeBTree):
		return TypeBTree, nil
	case string(TypeHash):
		return TypeHash, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrBadType, s)
	}
}

// Unique reports whether keys of this type must be distinct.
func (t Type) Unique() bool { return t == TypeBTree }

type entry struct {
	key record.Row
	h   relation.Handle
}

// HashIndex keeps handles bucketed by the xxhash of their encoded key
// columns. It lives in memory and is rebuilt from the relation by Create.
type HashIndex struct {
	name    string
	rel     relation.Relation
	columns []string
	unique  bool
	keys    record.Schema
	buckets map[uint64][]entry
}

var _ relation.Index = (*HashIndex)(nil)

func NewHashIndex(name string, rel relation.Relation, columns []string, unique bool) *HashIndex {
	return &HashIndex{
		name:    name,
		rel:     rel,
		columns: columns,
		unique:  unique,
		buckets: make(map[uint64][]entry),
	}
}

func (ix *HashIndex) Name() string      { return ix.name }
func (ix *HashIndex) Columns() []string { return ix.columns }
func (ix *HashIndex) Unique() bool      { return ix.unique }

// Create checks the key columns and loads every current row.
func (ix *HashIndex) Create() error {
	if len(ix.columns) == 0 {
		return relation.Errorf(ix.rel.Name(), "", "index %s has no columns", ix.name)
	}
	keys, err := ix.rel.Schema().Project(ix.columns)
	if err != nil {
		var ce *record.ColumnError
		col := ""
		if errors.As(err, &ce) {
			col = ce.Column
		}
		return relation.Wrap(ix.rel.Name(), col, "index "+ix.name, err)
	}
	ix.keys = keys
	ix.buckets = make(map[uint64][]entry)

	n := 0
	err = ix.rel.Scan(func(h relation.Handle, row record.Row) error {
		n++
		return ix.add(h, row)
	})
	if err != nil {
		ix.buckets = make(map[uint64][]entry)
		return err
	}
	slog.Debug("index: built", "index", ix.name, "table", ix.rel.Name(), "entries", n)
	return nil
}

func (ix *HashIndex) Drop() error {
	ix.buckets = make(map[uint64][]entry)
	return nil
}

func (ix *HashIndex) hash(key record.Row) (uint64, error) {
	data, err := record.Marshal(ix.keys, key)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

func sameKey(a, b record.Row) bool {
	return len(a) == len(b) && a.Matches(b)
}

func (ix *HashIndex) add(h relation.Handle, row record.Row) error {
	key, err := row.Restrict(ix.columns)
	if err != nil {
		return err
	}
	sum, err := ix.hash(key)
	if err != nil {
		return err
	}
	if ix.unique {
		for _, e := range ix.buckets[sum] {
			if sameKey(e.key, key) {
				return fmt.Errorf("%w: %s on %v", ErrDuplicateKey, ix.name, key)
			}
		}
	}
	ix.buckets[sum] = append(ix.buckets[sum], entry{key: key, h: h})
	return nil
}

// Insert indexes the row currently stored at h.
func (ix *HashIndex) Insert(h relation.Handle) error {
	row, err := ix.rel.ProjectColumns(h, ix.columns)
	if err != nil {
		return err
	}
	return ix.add(h, row)
}

// Delete drops h from the index; the row must still be readable.
func (ix *HashIndex) Delete(h relation.Handle) error {
	key, err := ix.rel.ProjectColumns(h, ix.columns)
	if err != nil {
		return err
	}
	sum, err := ix.hash(key)
	if err != nil {
		return err
	}
	bucket := ix.buckets[sum]
	for i, e := range bucket {
		if e.h == h {
			bucket = append(bucket[:i], bucket[i+1:]...)
			if len(bucket) == 0 {
				delete(ix.buckets, sum)
			} else {
				ix.buckets[sum] = bucket
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s %s", ErrKeyNotFound, ix.name, h)
}

// Lookup returns the handles whose key columns equal key, in insertion order.
func (ix *HashIndex) Lookup(key record.Row) (relation.Handles, error) {
	sum, err := ix.hash(key)
	if err != nil {
		return nil, relation.Wrap(ix.rel.Name(), "", "lookup "+ix.name, err)
	}
	var out relation.Handles
	for _, e := range ix.buckets[sum] {
		if sameKey(e.key, key) {
			out = append(out, e.h)
		}
	}
	return out, nil
}

// Len is the number of indexed handles.
func (ix *HashIndex) Len() int {
	n := 0
	for _, b := range ix.buckets {
		n += len(b)
	}
	return n
}
