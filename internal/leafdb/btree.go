package leafdb

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// BTree is a disk-backed B-tree keyed by uint32 with fixed-size values,
// parameterized by the value size so the same engine serves both the
// primary table and the secondary index. Unique trees reject duplicate
// keys, non-unique trees admit them.
type BTree struct {
	pager     *Pager
	valueSize uint32
	unique    bool

	maxLeafCells     uint32
	maxInternalCells uint32

	logger *zap.Logger
}

func NewBTree(ctx context.Context, logger *zap.Logger, aPager *Pager, valueSize uint32, unique bool) (*BTree, error) {
	if valueSize == 0 || MaxLeafCells(valueSize) < 2 {
		return nil, fmt.Errorf("value size %d does not fit at least two cells per page", valueSize)
	}
	aTree := &BTree{
		pager:            aPager,
		valueSize:        valueSize,
		unique:           unique,
		maxLeafCells:     MaxLeafCells(valueSize),
		maxInternalCells: MaxInternalCells(),
		logger:           logger,
	}

	// A fresh file gets page 0 initialised as an empty root leaf
	if aPager.TotalPages() == 0 {
		if _, err := aPager.GetPage(ctx, 0); err != nil {
			return nil, fmt.Errorf("initialise root page: %w", err)
		}
	}

	return aTree, nil
}

// FindLeaf descends from the root to the leaf page that would contain key,
// routing through internal nodes in stored cell order.
func (t *BTree) FindLeaf(ctx context.Context, key uint32) (PageIndex, error) {
	pageIdx := PageIndex(0)
	aPage, err := t.pager.GetPage(ctx, pageIdx)
	if err != nil {
		return 0, fmt.Errorf("find leaf: %w", err)
	}
	for aPage.InternalNode != nil {
		pageIdx = aPage.InternalNode.ChildFor(key)
		aPage, err = t.pager.GetPage(ctx, pageIdx)
		if err != nil {
			return 0, fmt.Errorf("find leaf: %w", err)
		}
	}
	return pageIdx, nil
}

// Search returns the value stored under key, or ErrKeyNotFound.
func (t *BTree) Search(ctx context.Context, key uint32) ([]byte, error) {
	leafIdx, err := t.FindLeaf(ctx, key)
	if err != nil {
		return nil, err
	}
	aPage, err := t.pager.GetPage(ctx, leafIdx)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	cellIdx, found := aPage.LeafNode.FindCell(key)
	if !found {
		return nil, fmt.Errorf("%w: %d", ErrKeyNotFound, key)
	}
	return aPage.LeafNode.Cells[cellIdx].Value, nil
}

// SearchAll returns every value stored under key in leaf chain order,
// following the next-leaf pointer across page boundaries. Needed for
// non-unique trees where a key may repeat.
func (t *BTree) SearchAll(ctx context.Context, key uint32) ([][]byte, error) {
	leafIdx, err := t.FindLeaf(ctx, key)
	if err != nil {
		return nil, err
	}

	var values [][]byte
	for {
		aPage, err := t.pager.GetPage(ctx, leafIdx)
		if err != nil {
			return nil, fmt.Errorf("search all: %w", err)
		}
		aLeaf := aPage.LeafNode

		cellIdx, found := aLeaf.FindCell(key)
		if !found && cellIdx == aLeaf.Header.Cells && aLeaf.Header.NextLeaf != 0 {
			// Key run may start on the next leaf when the split boundary
			// landed exactly on it
			leafIdx = aLeaf.Header.NextLeaf
			continue
		}
		for ; cellIdx < aLeaf.Header.Cells && aLeaf.Cells[cellIdx].Key == key; cellIdx++ {
			values = append(values, aLeaf.Cells[cellIdx].Value)
		}
		if cellIdx < aLeaf.Header.Cells || aLeaf.Header.NextLeaf == 0 {
			break
		}
		leafIdx = aLeaf.Header.NextLeaf
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrKeyNotFound, key)
	}
	return values, nil
}

// Has reports whether key is present without surfacing a lookup error.
func (t *BTree) Has(ctx context.Context, key uint32) (bool, error) {
	_, err := t.Search(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}
