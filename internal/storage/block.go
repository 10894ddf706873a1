package storage

// Block is one fixed-size unit of a relation's storage, viewed as a set of
// variable-length records.
type Block interface {
	ID() BlockID
	Add(data []byte) (RecordID, error)
	Get(id RecordID) ([]byte, error)
	Put(id RecordID, data []byte) error
	Del(id RecordID) error
	IDs() []RecordID
	Bytes() []byte
}

// File is an ordered sequence of blocks backing one relation.
type File interface {
	Create() error
	Drop() error
	Open() error
	Close() error
	GetNew() (Block, error)
	Get(id BlockID) (Block, error)
	Put(b Block) error
	BlockIDs() []BlockID
}
