package leafdb

import (
	"bytes"
	"fmt"
)

const (
	RowIDSize    = 4
	UsernameSize = 32
	EmailSize    = 255

	// RowSize is the fixed width of an encoded row: uint32 id followed by
	// zero-padded username and email fields.
	RowSize = RowIDSize + UsernameSize + EmailSize
)

// Row is the record type stored in the primary tree, keyed by ID.
type Row struct {
	ID       uint32 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (r Row) Marshal(buf []byte) ([]byte, error) {
	if len(r.Username) > UsernameSize {
		return nil, fmt.Errorf("username exceeds %d bytes", UsernameSize)
	}
	if len(r.Email) > EmailSize {
		return nil, fmt.Errorf("email exceeds %d bytes", EmailSize)
	}

	if cap(buf) >= RowSize {
		buf = buf[:RowSize]
		clear(buf)
	} else {
		buf = make([]byte, RowSize)
	}

	i := uint64(0)

	marshalUint32(buf, r.ID, i)
	i += RowIDSize

	copy(buf[i:i+UsernameSize], r.Username)
	i += UsernameSize

	copy(buf[i:i+EmailSize], r.Email)
	i += EmailSize

	return buf[:i], nil
}

func UnmarshalRow(buf []byte, aRow *Row) error {
	if len(buf) < RowSize {
		return fmt.Errorf("row buffer too short: %d", len(buf))
	}

	i := uint64(0)

	aRow.ID = unmarshalUint32(buf, i)
	i += RowIDSize

	aRow.Username = trimFixedField(buf[i : i+UsernameSize])
	i += UsernameSize

	aRow.Email = trimFixedField(buf[i : i+EmailSize])

	return nil
}

func trimFixedField(buf []byte) string {
	if idx := bytes.IndexByte(buf, 0); idx >= 0 {
		return string(buf[:idx])
	}
	return string(buf)
}
