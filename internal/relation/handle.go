package relation

import (
	"fmt"

	"github.com/tuannm99/novaheap/internal/storage"
)

// Handle identifies one logical row: the block it lives in and its slot there.
type Handle struct {
	BlockID  storage.BlockID
	RecordID storage.RecordID
}

func (h Handle) String() string {
	return fmt.Sprintf("(%d,%d)", h.BlockID, h.RecordID)
}

// Handles is an ordered handle list; order follows the producing scan.
type Handles []Handle
