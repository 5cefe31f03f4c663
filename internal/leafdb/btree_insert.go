package leafdb

import (
	"context"
	"fmt"
)

// Insert stores value under key, keeping leaf cells sorted ascending.
// A unique tree rejects an existing key with ErrDuplicateKey before any
// mutation takes place.
func (t *BTree) Insert(ctx context.Context, key uint32, value []byte) error {
	if uint32(len(value)) != t.valueSize {
		return fmt.Errorf("value size %d, tree expects %d", len(value), t.valueSize)
	}

	leafIdx, err := t.FindLeaf(ctx, key)
	if err != nil {
		return err
	}
	aPage, err := t.pager.GetPage(ctx, leafIdx)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	aLeaf := aPage.LeafNode

	cellIdx, found := aLeaf.FindCell(key)
	if found && t.unique {
		return fmt.Errorf("%w: %d", ErrDuplicateKey, key)
	}

	valueCopy := make([]byte, t.valueSize)
	copy(valueCopy, value)
	aLeaf.InsertCellAt(cellIdx, Cell{Key: key, Value: valueCopy})

	if aLeaf.Header.Cells <= t.maxLeafCells {
		return nil
	}

	return t.splitLeaf(ctx, aPage)
}

// splitLeaf partitions an over-capacity leaf at the midpoint. The original
// page keeps the left half, a freshly allocated page takes the right half
// and is linked into the leaf chain.
func (t *BTree) splitLeaf(ctx context.Context, aSplitPage *Page) error {
	aLeaf := aSplitPage.LeafNode
	splitIdx := aLeaf.Header.Cells / 2

	rightIdx := PageIndex(t.pager.TotalPages())
	aRightPage, err := t.pager.GetPage(ctx, rightIdx)
	if err != nil {
		return fmt.Errorf("leaf split: %w", err)
	}
	aRight := aRightPage.LeafNode

	aRight.Header.Parent = aLeaf.Header.Parent
	aRight.Header.NextLeaf = aLeaf.Header.NextLeaf
	aLeaf.Header.NextLeaf = rightIdx

	aRight.Cells = append(aRight.Cells, aLeaf.Cells[splitIdx:]...)
	aRight.Header.Cells = aLeaf.Header.Cells - splitIdx
	aLeaf.Cells = aLeaf.Cells[:splitIdx]
	aLeaf.Header.Cells = splitIdx

	t.logger.Sugar().With(
		"page_index", int(aSplitPage.Index),
		"new_page_index", int(rightIdx),
		"left_max_key", int(aLeaf.MaxKey()),
	).Debug("leaf node split")

	if aLeaf.Header.IsRoot {
		return t.splitRoot(ctx, aSplitPage, aRightPage)
	}

	return t.insertRouting(ctx, aLeaf.Header.Parent, aSplitPage.Index, rightIdx, aLeaf.MaxKey())
}

// splitRoot relocates the left half of a split root to a fresh page and
// rewrites page 0 in place as an internal node with exactly two routing
// cells, so the root stays on page 0.
func (t *BTree) splitRoot(ctx context.Context, aRootPage, aRightPage *Page) error {
	leftIdx := PageIndex(t.pager.TotalPages())
	aLeftPage, err := t.pager.GetPage(ctx, leftIdx)
	if err != nil {
		return fmt.Errorf("root split: %w", err)
	}

	var leftMaxKey uint32
	if aRootPage.LeafNode != nil {
		aLeftPage.LeafNode = aRootPage.LeafNode
		aLeftPage.InternalNode = nil
		aLeftPage.LeafNode.Header.IsRoot = false
		leftMaxKey = aLeftPage.LeafNode.MaxKey()
	} else {
		aLeftPage.InternalNode = aRootPage.InternalNode
		aLeftPage.LeafNode = nil
		aLeftPage.InternalNode.Header.IsRoot = false
		leftMaxKey = aLeftPage.InternalNode.MaxKey()
		// Children of the relocated half now hang off a different page number
		if err := t.reparentChildren(ctx, aLeftPage.InternalNode, leftIdx); err != nil {
			return fmt.Errorf("root split: %w", err)
		}
	}

	newRoot := NewInternalNode()
	newRoot.Header.IsRoot = true
	newRoot.ICells = []ICell{
		{MaxKey: leftMaxKey, Child: leftIdx},
		{MaxKey: SentinelKey, Child: aRightPage.Index},
	}
	newRoot.Header.Cells = 2

	aRootPage.LeafNode = nil
	aRootPage.InternalNode = newRoot

	aLeftPage.setParent(aRootPage.Index)
	aRightPage.setParent(aRootPage.Index)

	t.logger.Sugar().With(
		"left_child_index", int(leftIdx),
		"right_child_index", int(aRightPage.Index),
		"left_max_key", int(leftMaxKey),
	).Debug("create new root")

	return nil
}

// insertRouting records a leaf or internal split in the parent: the cell
// routing to the left child narrows its bound to leftMaxKey and a new cell
// carrying the old bound routes to the right child immediately after it.
// Over-capacity parents split recursively.
func (t *BTree) insertRouting(ctx context.Context, parentIdx PageIndex, leftIdx, rightIdx PageIndex, leftMaxKey uint32) error {
	aParentPage, err := t.pager.GetPage(ctx, parentIdx)
	if err != nil {
		return fmt.Errorf("routing insert: %w", err)
	}
	aParent := aParentPage.InternalNode
	if aParent == nil {
		return fmt.Errorf("routing insert: page %d is not an internal node", parentIdx)
	}

	cellIdx, ok := aParent.IndexOfChildPage(leftIdx)
	if !ok {
		return fmt.Errorf("routing insert: parent page %d has no cell for child page %d", parentIdx, leftIdx)
	}

	oldMaxKey := aParent.ICells[cellIdx].MaxKey
	aParent.ICells[cellIdx].MaxKey = leftMaxKey
	aParent.InsertCellAt(cellIdx+1, ICell{MaxKey: oldMaxKey, Child: rightIdx})

	aRightPage, err := t.pager.GetPage(ctx, rightIdx)
	if err != nil {
		return fmt.Errorf("routing insert: %w", err)
	}
	aRightPage.setParent(parentIdx)

	if aParent.Header.Cells <= t.maxInternalCells {
		return nil
	}

	return t.splitInternal(ctx, aParentPage)
}

// splitInternal partitions an over-capacity internal node at the midpoint
// and propagates the split upward, rewriting page 0 in place when the node
// being split is the root.
func (t *BTree) splitInternal(ctx context.Context, aSplitPage *Page) error {
	aNode := aSplitPage.InternalNode
	splitIdx := aNode.Header.Cells / 2

	rightIdx := PageIndex(t.pager.TotalPages())
	aRightPage, err := t.pager.GetPage(ctx, rightIdx)
	if err != nil {
		return fmt.Errorf("internal node split: %w", err)
	}
	// Fresh pages start out as leafs, reset the new page as an internal node
	aRightPage.InternalNode = NewInternalNode()
	aRightPage.LeafNode = nil
	aRight := aRightPage.InternalNode

	aRight.Header.Parent = aNode.Header.Parent
	aRight.ICells = append(aRight.ICells, aNode.ICells[splitIdx:]...)
	aRight.Header.Cells = aNode.Header.Cells - splitIdx
	aNode.ICells = aNode.ICells[:splitIdx]
	aNode.Header.Cells = splitIdx

	if err := t.reparentChildren(ctx, aRight, rightIdx); err != nil {
		return fmt.Errorf("internal node split: %w", err)
	}

	t.logger.Sugar().With(
		"page_index", int(aSplitPage.Index),
		"new_page_index", int(rightIdx),
	).Debug("internal node split")

	if aNode.Header.IsRoot {
		return t.splitRoot(ctx, aSplitPage, aRightPage)
	}

	return t.insertRouting(ctx, aNode.Header.Parent, aSplitPage.Index, rightIdx, aNode.MaxKey())
}

func (t *BTree) reparentChildren(ctx context.Context, aNode *InternalNode, parentIdx PageIndex) error {
	for idx := uint32(0); idx < aNode.Header.Cells; idx++ {
		aChildPage, err := t.pager.GetPage(ctx, aNode.ICells[idx].Child)
		if err != nil {
			return fmt.Errorf("reparent child page %d: %w", aNode.ICells[idx].Child, err)
		}
		aChildPage.setParent(parentIdx)
	}
	return nil
}
