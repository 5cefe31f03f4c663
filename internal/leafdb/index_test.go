package leafdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *EmailIndex {
	t.Helper()
	aPager, err := NewPager(tempFile(t), PageSize, IndexValueSize, 0)
	require.NoError(t, err)
	anIndex, err := NewEmailIndex(context.Background(), testLogger, aPager)
	require.NoError(t, err)
	return anIndex
}

func TestEmailIndex_InsertAndLookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	anIndex := newTestIndex(t)

	rows := gen.Rows(20)
	for _, aRow := range rows {
		require.NoError(t, anIndex.Insert(ctx, aRow.Email, aRow.ID))
	}

	for _, aRow := range rows {
		rowIDs, err := anIndex.Lookup(ctx, aRow.Email)
		require.NoError(t, err)
		assert.Contains(t, rowIDs, aRow.ID)
	}
}

func TestEmailIndex_Lookup_NotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	anIndex := newTestIndex(t)

	require.NoError(t, anIndex.Insert(ctx, "present@example.com", 1))

	_, err := anIndex.Lookup(ctx, "absent@example.com")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestEmailIndex_NonUnique(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	anIndex := newTestIndex(t)

	// The same email indexed under several row IDs must surface all of
	// them as candidates
	require.NoError(t, anIndex.Insert(ctx, "dup@example.com", 10))
	require.NoError(t, anIndex.Insert(ctx, "dup@example.com", 20))
	require.NoError(t, anIndex.Insert(ctx, "dup@example.com", 30))

	rowIDs, err := anIndex.Lookup(ctx, "dup@example.com")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint32{10, 20, 30}, rowIDs)
}

func TestHashEmail_Deterministic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, hashEmail("a@example.com"), hashEmail("a@example.com"))
	assert.NotEqual(t, hashEmail("a@example.com"), hashEmail("b@example.com"))
}
