package leafdb

import (
	"fmt"
)

const (
	// PageSize is the fixed size of every on disk page, the unit of I/O.
	PageSize = 8192

	// NodeHeaderSize is the size of the common node header shared by leaf
	// and internal nodes: type byte, root flag, parent page (uint32),
	// cell count (uint32), next leaf page (uint32, zero for internal nodes).
	NodeHeaderSize = 14

	keySize          = 4
	internalCellSize = 8

	// SentinelKey is the maximum representable key. The last cell of an
	// internal node on the rightmost routing path carries it as a catch-all
	// upper bound for any key exceeding all explicit bounds.
	SentinelKey = uint32(4294967295)
)

var (
	ErrKeyNotFound         = fmt.Errorf("key not found")
	ErrDuplicateKey        = fmt.Errorf("duplicate key")
	ErrMaximumPagesReached = fmt.Errorf("maximum pages reached")
	ErrCorruptIndex        = fmt.Errorf("index entry references missing primary key")
)

// MaxLeafCells returns how many cells of the given value size fit into
// a leaf page after the header.
func MaxLeafCells(valueSize uint32) uint32 {
	return (PageSize - NodeHeaderSize) / (keySize + valueSize)
}

// MaxInternalCells returns how many routing cells fit into an internal page.
func MaxInternalCells() uint32 {
	return (PageSize - NodeHeaderSize) / internalCellSize
}
