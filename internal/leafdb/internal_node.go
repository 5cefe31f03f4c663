package leafdb

import (
	"fmt"
)

type InternalNodeHeader struct {
	Header
	Cells uint32
}

func (h *InternalNodeHeader) Size() uint64 {
	return NodeHeaderSize
}

func (h *InternalNodeHeader) Marshal(buf []byte) ([]byte, error) {
	size := h.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	i := uint64(0)

	h.Header.Marshal(buf)
	i += h.Header.Size()

	marshalUint32(buf, h.Cells, i)
	i += 4
	// Next leaf slot is unused for internal nodes
	marshalUint32(buf, 0, i)

	return buf[:size], nil
}

func (h *InternalNodeHeader) Unmarshal(buf []byte) (uint64, error) {
	i, err := h.Header.Unmarshal(buf)
	if err != nil {
		return 0, err
	}

	h.Cells = unmarshalUint32(buf, i)

	return h.Size(), nil
}

// ICell is a routing cell: the subtree reachable through Child contains
// only keys <= MaxKey. The last cell on the rightmost routing path carries
// SentinelKey as a catch-all.
type ICell struct {
	MaxKey uint32
	Child  PageIndex
}

type InternalNode struct {
	Header InternalNodeHeader
	ICells []ICell
}

func NewInternalNode() *InternalNode {
	return &InternalNode{
		Header: InternalNodeHeader{
			Header: Header{
				IsInternal: true,
			},
		},
	}
}

func (n *InternalNode) Size() uint64 {
	return n.Header.Size() + uint64(n.Header.Cells)*internalCellSize
}

func (n *InternalNode) Marshal(buf []byte) ([]byte, error) {
	size := n.Size()
	if size > PageSize {
		return nil, fmt.Errorf("internal node size %d exceeds page size", size)
	}
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	i := uint64(0)

	hbuf, err := n.Header.Marshal(buf[i:])
	if err != nil {
		return nil, err
	}
	i += uint64(len(hbuf))

	for idx := uint32(0); idx < n.Header.Cells; idx++ {
		marshalUint32(buf, n.ICells[idx].MaxKey, i)
		i += 4
		marshalUint32(buf, uint32(n.ICells[idx].Child), i)
		i += 4
	}

	return buf[:i], nil
}

func (n *InternalNode) Unmarshal(buf []byte) (uint64, error) {
	i, err := n.Header.Unmarshal(buf)
	if err != nil {
		return 0, err
	}

	n.ICells = make([]ICell, 0, n.Header.Cells)
	for idx := uint32(0); idx < n.Header.Cells; idx++ {
		maxKey := unmarshalUint32(buf, i)
		i += 4
		child := PageIndex(unmarshalUint32(buf, i))
		i += 4
		n.ICells = append(n.ICells, ICell{MaxKey: maxKey, Child: child})
	}

	return i, nil
}

// ChildFor routes a key to a child page: the first cell in stored order
// whose MaxKey >= key. The sentinel cell guarantees a match for any key,
// the fallback to the last cell only guards a malformed rightmost bound.
func (n *InternalNode) ChildFor(key uint32) PageIndex {
	for idx := uint32(0); idx < n.Header.Cells; idx++ {
		if n.ICells[idx].MaxKey >= key {
			return n.ICells[idx].Child
		}
	}
	return n.ICells[n.Header.Cells-1].Child
}

// IndexOfChildPage returns the cell index holding the given child pointer.
func (n *InternalNode) IndexOfChildPage(childIdx PageIndex) (uint32, bool) {
	for idx := uint32(0); idx < n.Header.Cells; idx++ {
		if n.ICells[idx].Child == childIdx {
			return idx, true
		}
	}
	return 0, false
}

func (n *InternalNode) InsertCellAt(idx uint32, aCell ICell) {
	n.ICells = append(n.ICells, ICell{})
	for i := uint32(len(n.ICells)) - 1; i > idx; i-- {
		n.ICells[i] = n.ICells[i-1]
	}
	n.ICells[idx] = aCell
	n.Header.Cells += 1
}

// MaxKey is the node's upper routing bound, always carried by its last cell.
func (n *InternalNode) MaxKey() uint32 {
	return n.ICells[n.Header.Cells-1].MaxKey
}

func (n *InternalNode) Keys() []uint32 {
	keys := make([]uint32, 0, n.Header.Cells)
	for idx := uint32(0); idx < n.Header.Cells; idx++ {
		keys = append(keys, n.ICells[idx].MaxKey)
	}
	return keys
}

func (n *InternalNode) Children() []PageIndex {
	children := make([]PageIndex, 0, n.Header.Cells)
	for idx := uint32(0); idx < n.Header.Cells; idx++ {
		children = append(children, n.ICells[idx].Child)
	}
	return children
}
