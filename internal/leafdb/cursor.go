package leafdb

import (
	"context"
	"fmt"
)

// Cursor iterates leaf cells in key order by walking the singly-linked
// leaf chain, starting from the leftmost leaf.
type Cursor struct {
	tree       *BTree
	PageIdx    PageIndex
	CellIdx    uint32
	EndOfTable bool
}

// SeekFirst positions a cursor at the first cell of the leftmost leaf.
func (t *BTree) SeekFirst(ctx context.Context) (*Cursor, error) {
	pageIdx := PageIndex(0)
	aPage, err := t.pager.GetPage(ctx, pageIdx)
	if err != nil {
		return nil, fmt.Errorf("seek first: %w", err)
	}
	for aPage.InternalNode != nil {
		pageIdx = aPage.InternalNode.ICells[0].Child
		aPage, err = t.pager.GetPage(ctx, pageIdx)
		if err != nil {
			return nil, fmt.Errorf("seek first: %w", err)
		}
	}
	return &Cursor{
		tree:       t,
		PageIdx:    pageIdx,
		EndOfTable: aPage.LeafNode.Header.Cells == 0,
	}, nil
}

// FetchCell returns the cell under the cursor and advances it, setting
// EndOfTable once the leaf chain is exhausted.
func (c *Cursor) FetchCell(ctx context.Context) (Cell, error) {
	aPage, err := c.tree.pager.GetPage(ctx, c.PageIdx)
	if err != nil {
		return Cell{}, fmt.Errorf("fetch cell: %w", err)
	}
	aLeaf := aPage.LeafNode

	aCell := aLeaf.Cells[c.CellIdx]

	// More cells in this leaf, advance within the page
	if c.CellIdx < aLeaf.Header.Cells-1 {
		c.CellIdx += 1
		return aCell, nil
	}

	// No leaf to the right, the scan is done
	if aLeaf.Header.NextLeaf == 0 {
		c.EndOfTable = true
		return aCell, nil
	}

	c.PageIdx = aLeaf.Header.NextLeaf
	c.CellIdx = 0

	return aCell, nil
}
