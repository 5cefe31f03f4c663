package leafdb

type PageIndex uint32

// Page is a fixed-size buffer interpreted as either a leaf or an internal
// B-tree node. Exactly one of the two node fields is set.
type Page struct {
	Index        PageIndex
	LeafNode     *LeafNode
	InternalNode *InternalNode
}

func (p *Page) setParent(parentIdx PageIndex) {
	if p.LeafNode != nil {
		p.LeafNode.Header.Parent = parentIdx
	} else if p.InternalNode != nil {
		p.InternalNode.Header.Parent = parentIdx
	}
}
