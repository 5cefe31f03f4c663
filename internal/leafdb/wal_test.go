package leafdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWAL(t *testing.T) (*WAL, string) {
	t.Helper()
	walPath := filepath.Join(t.TempDir(), "test.wal")
	aWAL, err := OpenWAL(testLogger, walPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		aWAL.Close()
	})
	return aWAL, walPath
}

func TestWAL_TxnIDsAreMonotonic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	aWAL, walPath := newTestWAL(t)

	first, err := aWAL.LogStart(ctx, gen.Row())
	require.NoError(t, err)
	require.NoError(t, aWAL.LogCommit(ctx, first))

	second, err := aWAL.LogStart(ctx, gen.Row())
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
	require.NoError(t, aWAL.Close())

	// Reopening continues after the highest logged transaction ID
	reopened, err := OpenWAL(testLogger, walPath)
	require.NoError(t, err)
	defer reopened.Close()

	third, err := reopened.LogStart(ctx, gen.Row())
	require.NoError(t, err)
	assert.Equal(t, second+1, third)
}

func TestWAL_Recover_ReplaysUncommitted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	aWAL, walPath := newTestWAL(t)

	committedRow := gen.Row()
	uncommittedRow := gen.Row()

	txnID, err := aWAL.LogStart(ctx, committedRow)
	require.NoError(t, err)
	require.NoError(t, aWAL.LogCommit(ctx, txnID))

	// Crash between START and COMMIT: intent logged, mutation lost
	_, err = aWAL.LogStart(ctx, uncommittedRow)
	require.NoError(t, err)
	require.NoError(t, aWAL.Close())

	primary, _ := newTestTree(t, RowSize, true)
	anIndex := newTestIndex(t)

	// Only the committed row made it to the tree before the crash
	committedBuf, err := committedRow.Marshal(nil)
	require.NoError(t, err)
	require.NoError(t, primary.Insert(ctx, committedRow.ID, committedBuf))
	require.NoError(t, anIndex.Insert(ctx, committedRow.Email, committedRow.ID))

	reopened, err := OpenWAL(testLogger, walPath)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Recover(ctx, primary, anIndex))

	// The interrupted transaction is replayed into both trees
	value, err := primary.Search(ctx, uncommittedRow.ID)
	require.NoError(t, err)
	var recovered Row
	require.NoError(t, UnmarshalRow(value, &recovered))
	assert.Equal(t, uncommittedRow, recovered)

	rowIDs, err := anIndex.Lookup(ctx, uncommittedRow.Email)
	require.NoError(t, err)
	assert.Contains(t, rowIDs, uncommittedRow.ID)

	// And a commit marker is appended so the next recovery skips it
	records, err := reopened.readAll()
	require.NoError(t, err)
	var commits int
	for _, aRecord := range records {
		if aRecord.Status == WALCommit {
			commits += 1
		}
	}
	assert.Equal(t, 2, commits)
}

func TestWAL_Recover_ReplaysCommittedButUnflushed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	aWAL, walPath := newTestWAL(t)

	aRow := gen.Row()
	txnID, err := aWAL.LogStart(ctx, aRow)
	require.NoError(t, err)
	require.NoError(t, aWAL.LogCommit(ctx, txnID))
	require.NoError(t, aWAL.Close())

	// Crash after commit but before any page flush: the tree is empty
	primary, _ := newTestTree(t, RowSize, true)
	anIndex := newTestIndex(t)

	reopened, err := OpenWAL(testLogger, walPath)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Recover(ctx, primary, anIndex))

	value, err := primary.Search(ctx, aRow.ID)
	require.NoError(t, err)
	var recovered Row
	require.NoError(t, UnmarshalRow(value, &recovered))
	assert.Equal(t, aRow, recovered)
}

func TestWAL_Recover_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	aWAL, _ := newTestWAL(t)

	aRow := gen.Row()
	_, err := aWAL.LogStart(ctx, aRow)
	require.NoError(t, err)

	primary, _ := newTestTree(t, RowSize, true)
	anIndex := newTestIndex(t)

	require.NoError(t, aWAL.Recover(ctx, primary, anIndex))
	require.NoError(t, aWAL.Recover(ctx, primary, anIndex))

	// A second recovery pass must not duplicate the replayed row
	rowIDs, err := anIndex.Lookup(ctx, aRow.Email)
	require.NoError(t, err)
	assert.Equal(t, []uint32{aRow.ID}, rowIDs)
}

func TestWAL_Recover_MalformedRecord(t *testing.T) {
	t.Parallel()

	walPath := filepath.Join(t.TempDir(), "bad.wal")
	require.NoError(t, os.WriteFile(walPath, []byte("{not json\n"), 0600))

	_, err := OpenWAL(testLogger, walPath)
	require.Error(t, err)
}
