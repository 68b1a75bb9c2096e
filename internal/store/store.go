// Package store is the row-store boundary. The engine produces logical
// reads and writes against named sheets; column positions are resolved by
// header name here, never hard-coded by callers.
package store

import "context"

// Row is one data row of a sheet. Index is the 1-based sheet row number
// (header row included in the numbering), kept so cell updates can address
// the row they came from.
type Row struct {
	Index int
	Cells map[string]string
}

// Get returns the cell under header, or "" when the column is absent.
func (r Row) Get(header string) string {
	return r.Cells[header]
}

// Table is a point-in-time snapshot of one sheet.
type Table struct {
	Sheet   string
	Headers []string
	Rows    []Row
}

// RowStore is the write/read surface the engine depends on.
//
// InsertRowsTop prepends an ordered batch below the header row; the adapter
// owns the insertion strategy (it reverses internally where needed) so that
// the final sheet order always equals the batch order.
//
// Locked runs fn while holding the store's write lock. The RowStore handed
// to fn performs its operations without re-acquiring the lock, so a
// read-scan-write sequence inside fn is atomic with respect to every other
// caller: identifier allocation cannot double-assign, and row indexes read
// inside fn cannot be shifted by a concurrent insert before they are
// written back.
type RowStore interface {
	ReadAll(ctx context.Context, sheet string) (*Table, error)
	AppendRows(ctx context.Context, sheet string, rows []map[string]string) error
	InsertRowsTop(ctx context.Context, sheet string, rows []map[string]string) error
	UpdateCell(ctx context.Context, sheet string, rowIndex int, header, value string) error
	Locked(ctx context.Context, fn func(RowStore) error) error
}
