// Package storetest provides an in-memory RowStore for engine tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/meihsieh/bookship-bot/internal/store"
)

// Mem is an in-memory RowStore with the workbook's row numbering: the
// header row is sheet row 1, data rows start at 2. Sheets may be seeded
// and inspected directly. ReadDelay, when set, stretches the
// read-scan-write window so races surface deterministically in tests.
type Mem struct {
	mu        sync.Mutex
	ReadDelay time.Duration
	Sheets    map[string][]map[string]string
}

func NewMem() *Mem {
	return &Mem{Sheets: map[string][]map[string]string{}}
}

func (m *Mem) ReadAll(ctx context.Context, sheet string) (*store.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memOps{m}.ReadAll(ctx, sheet)
}

func (m *Mem) AppendRows(ctx context.Context, sheet string, rows []map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memOps{m}.AppendRows(ctx, sheet, rows)
}

func (m *Mem) InsertRowsTop(ctx context.Context, sheet string, rows []map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memOps{m}.InsertRowsTop(ctx, sheet, rows)
}

func (m *Mem) UpdateCell(ctx context.Context, sheet string, rowIndex int, header, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memOps{m}.UpdateCell(ctx, sheet, rowIndex, header, value)
}

// Locked holds the fake's mutex for the whole callback, mirroring the
// workbook adapter.
func (m *Mem) Locked(_ context.Context, fn func(store.RowStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(memOps{m})
}

// memOps performs the operations without taking the lock; Locked callbacks
// receive it.
type memOps struct{ m *Mem }

func (o memOps) ReadAll(_ context.Context, sheet string) (*store.Table, error) {
	if o.m.ReadDelay > 0 {
		time.Sleep(o.m.ReadDelay)
	}
	t := &store.Table{Sheet: sheet}
	for i, cells := range o.m.Sheets[sheet] {
		cp := make(map[string]string, len(cells))
		for k, v := range cells {
			cp[k] = v
		}
		t.Rows = append(t.Rows, store.Row{Index: i + 2, Cells: cp})
	}
	return t, nil
}

func (o memOps) AppendRows(_ context.Context, sheet string, rows []map[string]string) error {
	o.m.Sheets[sheet] = append(o.m.Sheets[sheet], rows...)
	return nil
}

func (o memOps) InsertRowsTop(_ context.Context, sheet string, rows []map[string]string) error {
	o.m.Sheets[sheet] = append(append([]map[string]string{}, rows...), o.m.Sheets[sheet]...)
	return nil
}

func (o memOps) UpdateCell(_ context.Context, sheet string, rowIndex int, header, value string) error {
	pos := rowIndex - 2
	if pos < 0 || pos >= len(o.m.Sheets[sheet]) {
		return errors.New("row index out of range")
	}
	o.m.Sheets[sheet][pos][header] = value
	return nil
}

func (o memOps) Locked(_ context.Context, fn func(store.RowStore) error) error {
	return fn(o)
}
