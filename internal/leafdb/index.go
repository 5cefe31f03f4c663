package leafdb

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

const (
	// IndexValueSize is the size of a secondary index value, a 4 byte
	// primary key back-reference.
	IndexValueSize = 4
)

// EmailIndex is a secondary index over the email column: a non-unique
// B-tree keyed by a hash of the email, storing primary key back-references.
// Distinct emails may collide on the hash, so lookups return every
// candidate row ID and callers verify the email on the fetched row.
type EmailIndex struct {
	tree *BTree
}

func NewEmailIndex(ctx context.Context, logger *zap.Logger, aPager *Pager) (*EmailIndex, error) {
	aTree, err := NewBTree(ctx, logger, aPager, IndexValueSize, false)
	if err != nil {
		return nil, fmt.Errorf("email index: %w", err)
	}
	return &EmailIndex{tree: aTree}, nil
}

func hashEmail(email string) uint32 {
	return uint32(xxhash.Sum64String(email))
}

func (i *EmailIndex) Insert(ctx context.Context, email string, rowID uint32) error {
	value := make([]byte, IndexValueSize)
	marshalUint32(value, rowID, 0)

	if err := i.tree.Insert(ctx, hashEmail(email), value); err != nil {
		return fmt.Errorf("email index insert: %w", err)
	}
	return nil
}

// Lookup returns the row IDs of every index entry whose key matches the
// email's hash, in leaf chain order. Returns ErrKeyNotFound when no entry
// matches.
func (i *EmailIndex) Lookup(ctx context.Context, email string) ([]uint32, error) {
	values, err := i.tree.SearchAll(ctx, hashEmail(email))
	if err != nil {
		return nil, err
	}

	rowIDs := make([]uint32, 0, len(values))
	for _, value := range values {
		rowIDs = append(rowIDs, unmarshalUint32(value, 0))
	}
	return rowIDs, nil
}
