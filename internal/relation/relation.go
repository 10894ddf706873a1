package relation

import "github.com/tuannm99/novaheap/internal/record"

// Relation is a named, schema'd set of rows addressed by Handle.
type Relation interface {
	Name() string
	Schema() record.Schema

	Create() error
	CreateIfNotExists() error
	Open() error
	Close() error
	Drop() error

	Insert(row record.Row) (Handle, error)
	Update(h Handle, newValues record.Row) (Handle, error)
	Delete(h Handle) error

	// Select enumerates every live handle in storage order.
	Select() (Handles, error)
	// SelectWhere returns the handles whose rows equal every entry of where.
	SelectWhere(where record.Row) (Handles, error)
	Project(h Handle) (record.Row, error)
	ProjectColumns(h Handle, columns []string) (record.Row, error)

	// Scan visits each live row once, in Select order.
	// Returning a non-nil error from fn stops the scan with that error.
	Scan(fn func(Handle, record.Row) error) error
}

// Index maps key column values of a relation to handles.
type Index interface {
	Name() string
	Columns() []string
	Unique() bool

	// Create builds the index from the current rows of its relation.
	Create() error
	Drop() error

	Insert(h Handle) error
	Delete(h Handle) error
	Lookup(key record.Row) (Handles, error)
}
