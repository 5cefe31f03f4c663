package leafdb

import (
	"fmt"
)

type LeafNodeHeader struct {
	Header
	Cells    uint32
	NextLeaf PageIndex
}

func (h *LeafNodeHeader) Size() uint64 {
	return NodeHeaderSize
}

func (h *LeafNodeHeader) Marshal(buf []byte) ([]byte, error) {
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
	marshalUint32(buf, uint32(h.NextLeaf), i)

	return buf[:size], nil
}

func (h *LeafNodeHeader) Unmarshal(buf []byte) (uint64, error) {
	i, err := h.Header.Unmarshal(buf)
	if err != nil {
		return 0, err
	}

	h.Cells = unmarshalUint32(buf, i)
	i += 4
	h.NextLeaf = PageIndex(unmarshalUint32(buf, i))

	return h.Size(), nil
}

// Cell is a single key-value entry within a leaf node. Value is always
// exactly the tree's configured value size.
type Cell struct {
	Key   uint32
	Value []byte
}

type LeafNode struct {
	Header    LeafNodeHeader
	Cells     []Cell
	valueSize uint32
}

func NewLeafNode(valueSize uint32) *LeafNode {
	return &LeafNode{
		valueSize: valueSize,
	}
}

func (n *LeafNode) cellSize() uint64 {
	return keySize + uint64(n.valueSize)
}

func (n *LeafNode) Size() uint64 {
	return n.Header.Size() + uint64(n.Header.Cells)*n.cellSize()
}

func (n *LeafNode) Marshal(buf []byte) ([]byte, error) {
	size := n.Size()
	if size > PageSize {
		return nil, fmt.Errorf("leaf node size %d exceeds page size", size)
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
		aCell := &n.Cells[idx]
		if uint32(len(aCell.Value)) != n.valueSize {
			return nil, fmt.Errorf("cell %d value size %d, expected %d", idx, len(aCell.Value), n.valueSize)
		}
		marshalUint32(buf, aCell.Key, i)
		i += keySize
		copy(buf[i:], aCell.Value)
		i += uint64(n.valueSize)
	}

	return buf[:i], nil
}

func (n *LeafNode) Unmarshal(buf []byte) (uint64, error) {
	i, err := n.Header.Unmarshal(buf)
	if err != nil {
		return 0, err
	}

	n.Cells = make([]Cell, 0, n.Header.Cells)
	for idx := uint32(0); idx < n.Header.Cells; idx++ {
		value := make([]byte, n.valueSize)
		key := unmarshalUint32(buf, i)
		i += keySize
		copy(value, buf[i:i+uint64(n.valueSize)])
		i += uint64(n.valueSize)
		n.Cells = append(n.Cells, Cell{Key: key, Value: value})
	}

	return i, nil
}

// FindCell returns the index of the first cell whose key is >= key and
// a flag indicating an exact match. The index is the ordered insertion
// point when the key is absent.
func (n *LeafNode) FindCell(key uint32) (uint32, bool) {
	var (
		minIdx = uint32(0)
		maxIdx = n.Header.Cells
	)
	for minIdx != maxIdx {
		idx := (minIdx + maxIdx) / 2
		if n.Cells[idx].Key >= key {
			maxIdx = idx
		} else {
			minIdx = idx + 1
		}
	}
	if minIdx < n.Header.Cells && n.Cells[minIdx].Key == key {
		return minIdx, true
	}
	return minIdx, false
}

// InsertCellAt shifts cells right to make room and inserts at idx,
// preserving ascending key order chosen by the caller.
func (n *LeafNode) InsertCellAt(idx uint32, aCell Cell) {
	n.Cells = append(n.Cells, Cell{})
	for i := uint32(len(n.Cells)) - 1; i > idx; i-- {
		n.Cells[i] = n.Cells[i-1]
	}
	n.Cells[idx] = aCell
	n.Header.Cells += 1
}

func (n *LeafNode) MaxKey() uint32 {
	return n.Cells[n.Header.Cells-1].Key
}

func (n *LeafNode) Keys() []uint32 {
	keys := make([]uint32, 0, n.Header.Cells)
	for idx := uint32(0); idx < n.Header.Cells; idx++ {
		keys = append(keys, n.Cells[idx].Key)
	}
	return keys
}
