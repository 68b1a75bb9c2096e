package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/meihsieh/bookship-bot/internal/common"
)

// XLSX is a RowStore backed by a workbook file on disk. Every operation
// reopens the file so edits made directly in the workbook between chat
// events are picked up; the mutex serializes access within the process and
// backs Locked for callers that need multi-operation atomicity.
type XLSX struct {
	mu  sync.Mutex
	ops xlsxOps
}

func NewXLSX(path string, logger *slog.Logger) *XLSX {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSX{ops: xlsxOps{path: path, logger: logger}}
}

// SheetNames lists the worksheets in the workbook.
func (s *XLSX) SheetNames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := excelize.OpenFile(s.ops.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func (s *XLSX) ReadAll(ctx context.Context, sheet string) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops.ReadAll(ctx, sheet)
}

func (s *XLSX) AppendRows(ctx context.Context, sheet string, rows []map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops.AppendRows(ctx, sheet, rows)
}

func (s *XLSX) InsertRowsTop(ctx context.Context, sheet string, rows []map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops.InsertRowsTop(ctx, sheet, rows)
}

func (s *XLSX) UpdateCell(ctx context.Context, sheet string, rowIndex int, header, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops.UpdateCell(ctx, sheet, rowIndex, header, value)
}

// Locked holds the store mutex for the whole callback; fn gets the bare
// operations so it does not deadlock against the lock it already owns.
func (s *XLSX) Locked(_ context.Context, fn func(RowStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.ops)
}

// xlsxOps carries the workbook operations without locking. XLSX wraps every
// call in its mutex and hands the bare ops to Locked callbacks.
type xlsxOps struct {
	path   string
	logger *slog.Logger
}

func (o *xlsxOps) ReadAll(_ context.Context, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(o.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readTable(f, sheet)
}

func (o *xlsxOps) AppendRows(_ context.Context, sheet string, rows []map[string]string) error {
	if len(rows) == 0 {
		return nil
	}
	return o.mutate(sheet, func(f *excelize.File, t *Table) error {
		next := len(t.Rows) + 2 // 1-based, after header and data
		for i, cells := range rows {
			vals := orderedValues(t.Headers, cells)
			anchor, _ := excelize.CoordinatesToCellName(1, next+i)
			if err := f.SetSheetRow(sheet, anchor, &vals); err != nil {
				return err
			}
		}
		return nil
	})
}

func (o *xlsxOps) InsertRowsTop(_ context.Context, sheet string, rows []map[string]string) error {
	if len(rows) == 0 {
		return nil
	}
	return o.mutate(sheet, func(f *excelize.File, t *Table) error {
		// One block insert below the header, then the batch is written
		// top-down, so batch order and final sheet order agree.
		if err := f.InsertRows(sheet, 2, len(rows)); err != nil {
			return err
		}
		for i, cells := range rows {
			vals := orderedValues(t.Headers, cells)
			anchor, _ := excelize.CoordinatesToCellName(1, 2+i)
			if err := f.SetSheetRow(sheet, anchor, &vals); err != nil {
				return err
			}
		}
		return nil
	})
}

func (o *xlsxOps) UpdateCell(_ context.Context, sheet string, rowIndex int, header, value string) error {
	return o.mutate(sheet, func(f *excelize.File, t *Table) error {
		col := -1
		for i, h := range t.Headers {
			if h == header {
				col = i + 1
				break
			}
		}
		if col < 0 {
			return common.NewAppError("STORE_ERROR", fmt.Sprintf("no column %q in sheet %q", header, sheet), common.ErrNotFound)
		}
		if rowIndex < 2 {
			return common.NewAppError("STORE_ERROR", fmt.Sprintf("row %d is not a data row", rowIndex), common.ErrInvalidInput)
		}
		cell, _ := excelize.CoordinatesToCellName(col, rowIndex)
		return f.SetCellValue(sheet, cell, value)
	})
}

// Locked on the bare ops is a pass-through: the caller already holds the
// store mutex.
func (o *xlsxOps) Locked(_ context.Context, fn func(RowStore) error) error {
	return fn(o)
}

// mutate opens the workbook, loads the sheet snapshot, applies fn, and
// saves. The caller owns the store mutex for the whole read-modify-write.
func (o *xlsxOps) mutate(sheet string, fn func(f *excelize.File, t *Table) error) error {
	f, err := excelize.OpenFile(o.path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	t, err := readTable(f, sheet)
	if err != nil {
		return err
	}
	if err := fn(f, t); err != nil {
		return fmt.Errorf("sheet %q: %w", sheet, err)
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func readTable(f *excelize.File, sheet string) (*Table, error) {
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, common.NewAppError("STORE_ERROR", fmt.Sprintf("read sheet %q", sheet), err)
	}
	if len(raw) == 0 {
		return nil, common.NewAppError("STORE_ERROR", fmt.Sprintf("sheet %q has no header row", sheet), common.ErrNotFound)
	}
	t := &Table{Sheet: sheet, Headers: raw[0]}
	for i, line := range raw[1:] {
		cells := make(map[string]string, len(t.Headers))
		for j, h := range t.Headers {
			if h == "" {
				continue
			}
			if j < len(line) {
				cells[h] = line[j]
			} else {
				cells[h] = ""
			}
		}
		t.Rows = append(t.Rows, Row{Index: i + 2, Cells: cells})
	}
	return t, nil
}

func orderedValues(headers []string, cells map[string]string) []interface{} {
	vals := make([]interface{}, len(headers))
	for i, h := range headers {
		vals[i] = cells[h]
	}
	return vals
}
