package leafdb

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

type WALStatus string

const (
	WALStart  WALStatus = "START"
	WALCommit WALStatus = "COMMIT"
)

// WALRecord is a single journal entry: transaction intent (START, carrying
// the full row payload) or completion (COMMIT).
type WALRecord struct {
	TxnID  uint64    `json:"txn_id"`
	Status WALStatus `json:"status"`
	Row    *Row      `json:"row,omitempty"`
}

// WAL is an append-only, forced-durability journal of transaction intent.
// Records are newline-delimited JSON. Every append is synced to stable
// storage before returning, making the log the load-bearing durability
// path between page flushes.
//
// Durability contract: pages reach disk only at explicit flush, so recovery
// replays any START record whose row is absent from the primary tree,
// committed or not. A commit marker alone does not prove the page mutation
// reached disk.
type WAL struct {
	file      *os.File
	filepath  string
	nextTxnID uint64
	logger    *zap.Logger
}

func OpenWAL(logger *zap.Logger, filepath string) (*WAL, error) {
	file, err := os.OpenFile(filepath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("open wal file: %w", err)
	}

	aWAL := &WAL{
		file:     file,
		filepath: filepath,
		logger:   logger,
	}

	// The next transaction ID continues after the highest logged one
	records, err := aWAL.readAll()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("scan wal: %w", err)
	}
	for _, aRecord := range records {
		if aRecord.TxnID >= aWAL.nextTxnID {
			aWAL.nextTxnID = aRecord.TxnID + 1
		}
	}

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek wal end: %w", err)
	}

	return aWAL, nil
}

// LogStart assigns the next transaction ID and appends a START record with
// the full row payload, forced to stable storage before returning.
func (w *WAL) LogStart(ctx context.Context, aRow Row) (uint64, error) {
	txnID := w.nextTxnID
	if err := w.append(WALRecord{TxnID: txnID, Status: WALStart, Row: &aRow}); err != nil {
		return 0, fmt.Errorf("log start: %w", err)
	}
	w.nextTxnID = txnID + 1
	return txnID, nil
}

// LogCommit appends a COMMIT record, forced to stable storage before
// returning.
func (w *WAL) LogCommit(ctx context.Context, txnID uint64) error {
	if err := w.append(WALRecord{TxnID: txnID, Status: WALCommit}); err != nil {
		return fmt.Errorf("log commit: %w", err)
	}
	return nil
}

func (w *WAL) append(aRecord WALRecord) error {
	buf, err := json.Marshal(aRecord)
	if err != nil {
		return err
	}
	buf = append(buf, '\n')

	if _, err := w.file.Write(buf); err != nil {
		return err
	}

	// Sync is what makes the record durable across a crash
	return w.file.Sync()
}

// Recover scans the log from the beginning and replays interrupted work
// into the primary tree and the secondary index. A START without a COMMIT
// is replayed and a COMMIT appended for it; a committed START whose row is
// missing from the primary tree (crash after commit, before page flush)
// is replayed as well. Replays probe presence first, making recovery
// idempotent.
func (w *WAL) Recover(ctx context.Context, primary *BTree, emailIndex *EmailIndex) error {
	records, err := w.readAll()
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("recover: %w", err)
	}

	committed := make(map[uint64]bool)
	for _, aRecord := range records {
		if aRecord.Status == WALCommit {
			committed[aRecord.TxnID] = true
		}
	}

	var replayed, completed int
	for _, aRecord := range records {
		if aRecord.Status != WALStart {
			continue
		}
		if aRecord.Row == nil {
			return fmt.Errorf("recover: start record for txn %d has no row payload", aRecord.TxnID)
		}
		aRow := *aRecord.Row

		present, err := primary.Has(ctx, aRow.ID)
		if err != nil {
			return fmt.Errorf("recover: %w", err)
		}

		if !present {
			rowBuf, err := aRow.Marshal(nil)
			if err != nil {
				return fmt.Errorf("recover txn %d: %w", aRecord.TxnID, err)
			}
			if err := primary.Insert(ctx, aRow.ID, rowBuf); err != nil {
				return fmt.Errorf("recover txn %d: %w", aRecord.TxnID, err)
			}
			if err := emailIndex.Insert(ctx, aRow.Email, aRow.ID); err != nil {
				return fmt.Errorf("recover txn %d: %w", aRecord.TxnID, err)
			}
			replayed += 1
		}

		if !committed[aRecord.TxnID] {
			if err := w.LogCommit(ctx, aRecord.TxnID); err != nil {
				return fmt.Errorf("recover txn %d: %w", aRecord.TxnID, err)
			}
			committed[aRecord.TxnID] = true
			completed += 1
		}
	}

	if replayed > 0 || completed > 0 {
		w.logger.Sugar().With(
			"replayed", replayed,
			"completed", completed,
		).Info("wal recovery repaired interrupted transactions")
	}

	return nil
}

func (w *WAL) readAll() ([]WALRecord, error) {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var records []WALRecord
	scanner := bufio.NewScanner(w.file)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var aRecord WALRecord
		if err := json.Unmarshal(line, &aRecord); err != nil {
			return nil, fmt.Errorf("malformed wal record %q: %w", line, err)
		}
		if aRecord.Status != WALStart && aRecord.Status != WALCommit {
			return nil, fmt.Errorf("unknown wal record status %q", aRecord.Status)
		}
		records = append(records, aRecord)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (w *WAL) Close() error {
	err := w.file.Sync()
	if cerr := w.file.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		return cerr
	}
	return err
}
