package leafdb

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Database composes the primary B-tree, the email secondary index and the
// write-ahead log into transactional insert/lookup operations. A write
// records intent in the WAL, mutates both trees in memory, then records a
// commit marker; reads resolve email -> primary key -> row.
type Database struct {
	Name string

	primary      *BTree
	primaryPager *Pager
	emailIndex   *EmailIndex
	indexPager   *Pager
	wal          *WAL

	logger *zap.Logger
}

// OpenDatabase opens (creating if needed) the three backing files
// <name>.db, <name>.idx and <name>.wal and runs WAL recovery before
// returning, so interrupted work is repaired exactly once at startup.
func OpenDatabase(ctx context.Context, logger *zap.Logger, name string) (*Database, error) {
	dbFile, err := os.OpenFile(name+".db", os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("open database file: %w", err)
	}
	idxFile, err := os.OpenFile(name+".idx", os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		dbFile.Close()
		return nil, fmt.Errorf("open index file: %w", err)
	}

	aDatabase, err := NewDatabase(ctx, logger, name, dbFile, idxFile, name+".wal")
	if err != nil {
		dbFile.Close()
		idxFile.Close()
		return nil, err
	}
	return aDatabase, nil
}

// NewDatabase assembles a database from already opened backing files.
func NewDatabase(ctx context.Context, logger *zap.Logger, name string, dbFile, idxFile DBFile, walPath string) (*Database, error) {
	primaryPager, err := NewPager(dbFile, PageSize, RowSize, 0)
	if err != nil {
		return nil, fmt.Errorf("primary pager: %w", err)
	}
	primary, err := NewBTree(ctx, logger, primaryPager, RowSize, true)
	if err != nil {
		return nil, fmt.Errorf("primary tree: %w", err)
	}

	indexPager, err := NewPager(idxFile, PageSize, IndexValueSize, 0)
	if err != nil {
		return nil, fmt.Errorf("index pager: %w", err)
	}
	emailIndex, err := NewEmailIndex(ctx, logger, indexPager)
	if err != nil {
		return nil, err
	}

	aWAL, err := OpenWAL(logger, walPath)
	if err != nil {
		return nil, err
	}

	aDatabase := &Database{
		Name:         name,
		primary:      primary,
		primaryPager: primaryPager,
		emailIndex:   emailIndex,
		indexPager:   indexPager,
		wal:          aWAL,
		logger:       logger,
	}

	if err := aWAL.Recover(ctx, primary, emailIndex); err != nil {
		aWAL.Close()
		return nil, err
	}

	return aDatabase, nil
}

// Insert writes a row transactionally: WAL START forced to disk first,
// then the primary and index mutations in memory, then WAL COMMIT.
// A duplicate primary key fails before any WAL record is written.
func (d *Database) Insert(ctx context.Context, aRow Row) error {
	rowBuf, err := aRow.Marshal(nil)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	present, err := d.primary.Has(ctx, aRow.ID)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if present {
		return fmt.Errorf("%w: %d", ErrDuplicateKey, aRow.ID)
	}

	txnID, err := d.wal.LogStart(ctx, aRow)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	if err := d.primary.Insert(ctx, aRow.ID, rowBuf); err != nil {
		return fmt.Errorf("insert row %d: %w", aRow.ID, err)
	}
	if err := d.emailIndex.Insert(ctx, aRow.Email, aRow.ID); err != nil {
		return fmt.Errorf("insert row %d: %w", aRow.ID, err)
	}

	if err := d.wal.LogCommit(ctx, txnID); err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	return nil
}

// LookupByEmail resolves an email to a row through the secondary index,
// verifying the stored email against the query since distinct emails may
// share a hash. An index entry pointing at a missing primary key surfaces
// ErrCorruptIndex.
func (d *Database) LookupByEmail(ctx context.Context, email string) (Row, error) {
	rowIDs, err := d.emailIndex.Lookup(ctx, email)
	if err != nil {
		return Row{}, err
	}

	for _, rowID := range rowIDs {
		aRow, err := d.LookupByID(ctx, rowID)
		if errors.Is(err, ErrKeyNotFound) {
			return Row{}, fmt.Errorf("%w: row %d", ErrCorruptIndex, rowID)
		}
		if err != nil {
			return Row{}, err
		}
		if aRow.Email == email {
			return aRow, nil
		}
	}

	return Row{}, fmt.Errorf("%w: email %q", ErrKeyNotFound, email)
}

// LookupByID resolves a primary key to a row.
func (d *Database) LookupByID(ctx context.Context, rowID uint32) (Row, error) {
	value, err := d.primary.Search(ctx, rowID)
	if err != nil {
		return Row{}, err
	}

	var aRow Row
	if err := UnmarshalRow(value, &aRow); err != nil {
		return Row{}, fmt.Errorf("lookup row %d: %w", rowID, err)
	}
	return aRow, nil
}

// Scan walks the whole primary table in key order via the leaf chain,
// calling f for each row. f returning an error stops the scan.
func (d *Database) Scan(ctx context.Context, f func(Row) error) error {
	aCursor, err := d.primary.SeekFirst(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	for !aCursor.EndOfTable {
		aCell, err := aCursor.FetchCell(ctx)
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}

		var aRow Row
		if err := UnmarshalRow(aCell.Value, &aRow); err != nil {
			return fmt.Errorf("scan key %d: %w", aCell.Key, err)
		}
		if err := f(aRow); err != nil {
			return err
		}
	}

	return nil
}

// Close flushes all cached pages of both trees and releases every file
// handle, combining errors so each resource still gets its shot at
// cleanup.
func (d *Database) Close(ctx context.Context) error {
	return multierr.Combine(
		d.primaryPager.Close(ctx),
		d.indexPager.Close(ctx),
		d.wal.Close(),
	)
}
