package leafdb

import (
	"fmt"
)

const (
	PageTypeInternal = byte(0)
	PageTypeLeaf     = byte(1)
)

// Header is the part of the node header common to both node variants:
// node type tag, is-root flag and parent page number. Cell count and the
// leaf chain pointer are marshaled by the node variants to complete the
// fixed 14 byte header.
type Header struct {
	IsInternal bool
	IsRoot     bool
	Parent     PageIndex
}

func (h *Header) Size() uint64 {
	return 1 + 1 + 4
}

func (h *Header) Marshal(buf []byte) {
	if h.IsInternal {
		buf[0] = PageTypeInternal
	} else {
		buf[0] = PageTypeLeaf
	}

	if h.IsRoot {
		buf[1] = 1
	} else {
		buf[1] = 0
	}

	marshalUint32(buf, uint32(h.Parent), 2)
}

func (h *Header) Unmarshal(buf []byte) (uint64, error) {
	if buf[0] != PageTypeLeaf && buf[0] != PageTypeInternal {
		return 0, fmt.Errorf("unrecognised page type byte %d", buf[0])
	}
	h.IsInternal = buf[0] == PageTypeInternal
	h.IsRoot = buf[1] == 1
	h.Parent = PageIndex(unmarshalUint32(buf, 2))

	return h.Size(), nil
}

func marshalUint32(buf []byte, value uint32, offset uint64) {
	buf[offset+0] = byte(value >> 0)
	buf[offset+1] = byte(value >> 8)
	buf[offset+2] = byte(value >> 16)
	buf[offset+3] = byte(value >> 24)
}

func unmarshalUint32(buf []byte, offset uint64) uint32 {
	return 0 |
		(uint32(buf[offset+0]) << 0) |
		(uint32(buf[offset+1]) << 8) |
		(uint32(buf[offset+2]) << 16) |
		(uint32(buf[offset+3]) << 24)
}
