package tabular

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Veraticus/esparrago/internal/common"
)

// Operation names recorded by MemoryTable.
const (
	OpRows   = "rows"
	OpAppend = "append"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Call represents a single call against a MemoryTable.
type Call struct {
	Error     error
	Op        string
	Values    []string
	RowNumber int
}

// MemoryTable is an in-process Table used by tests and dry runs. It records
// every call and can be told to fail specific operations.
type MemoryTable struct {
	failures map[string]error
	name     string
	rows     [][]string
	calls    []Call
	mu       sync.Mutex
}

// NewMemoryTable creates a table with the given header and data rows.
func NewMemoryTable(name string, header []string, rows ...[]string) *MemoryTable {
	t := &MemoryTable{
		name:     name,
		failures: make(map[string]error),
	}
	if header != nil {
		t.rows = append(t.rows, slices.Clone(header))
	}
	for _, r := range rows {
		t.rows = append(t.rows, slices.Clone(r))
	}
	return t
}

// Name implements Table.
func (t *MemoryTable) Name() string {
	return t.name
}

// Rows implements Table.
func (t *MemoryTable) Rows(_ context.Context) ([][]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.record(Call{Op: OpRows}); err != nil {
		return nil, err
	}

	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = slices.Clone(r)
	}
	return out, nil
}

// AppendRow implements Table.
func (t *MemoryTable) AppendRow(_ context.Context, values []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.record(Call{Op: OpAppend, Values: slices.Clone(values)}); err != nil {
		return err
	}
	t.rows = append(t.rows, slices.Clone(values))
	return nil
}

// UpdateRow implements Table.
func (t *MemoryTable) UpdateRow(_ context.Context, rowNumber int, values []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.record(Call{Op: OpUpdate, RowNumber: rowNumber, Values: slices.Clone(values)}); err != nil {
		return err
	}
	if rowNumber < 1 || rowNumber > len(t.rows) {
		return fmt.Errorf("row %d out of range: %w", rowNumber, common.ErrNotFound)
	}

	row := t.rows[rowNumber-1]
	for len(row) < len(values) {
		row = append(row, "")
	}
	copy(row, values)
	t.rows[rowNumber-1] = row
	return nil
}

// DeleteRow implements Table.
func (t *MemoryTable) DeleteRow(_ context.Context, rowNumber int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.record(Call{Op: OpDelete, RowNumber: rowNumber}); err != nil {
		return err
	}
	if rowNumber < 1 || rowNumber > len(t.rows) {
		return fmt.Errorf("row %d out of range: %w", rowNumber, common.ErrNotFound)
	}
	t.rows = slices.Delete(t.rows, rowNumber-1, rowNumber)
	return nil
}

// FailOn makes every subsequent op fail with err, wrapped as an upstream failure.
// A nil err clears the failure.
func (t *MemoryTable) FailOn(op string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err == nil {
		delete(t.failures, op)
		return
	}
	t.failures[op] = err
}

// Calls returns a copy of all recorded calls.
func (t *MemoryTable) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()

	calls := make([]Call, len(t.calls))
	copy(calls, t.calls)
	return calls
}

// Writes returns the recorded append, update and delete calls.
func (t *MemoryTable) Writes() []Call {
	var writes []Call
	for _, c := range t.Calls() {
		if c.Op != OpRows {
			writes = append(writes, c)
		}
	}
	return writes
}

// Snapshot returns a copy of the stored rows including the header.
func (t *MemoryTable) Snapshot() [][]string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = slices.Clone(r)
	}
	return out
}

// Reset clears recorded calls and configured failures.
func (t *MemoryTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls = nil
	t.failures = make(map[string]error)
}

func (t *MemoryTable) record(c Call) error {
	if err, ok := t.failures[c.Op]; ok {
		c.Error = common.Upstream(fmt.Sprintf("%s %s", c.Op, t.name), err)
	}
	t.calls = append(t.calls, c)
	return c.Error
}

// MemoryWorkbook is a Workbook of MemoryTables.
type MemoryWorkbook struct {
	tables map[string]*MemoryTable
	mu     sync.Mutex
}

// NewMemoryWorkbook creates an empty workbook.
func NewMemoryWorkbook() *MemoryWorkbook {
	return &MemoryWorkbook{tables: make(map[string]*MemoryTable)}
}

// Add registers a table, replacing any table with the same name.
func (w *MemoryWorkbook) Add(t *MemoryTable) *MemoryTable {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tables[t.Name()] = t
	return t
}

// Get returns the named table or nil.
func (w *MemoryWorkbook) Get(name string) *MemoryTable {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.tables[name]
}

// Table implements Workbook.
func (w *MemoryWorkbook) Table(_ context.Context, name string) (Table, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t, ok := w.tables[name]
	if !ok {
		return nil, fmt.Errorf("worksheet %q: %w", name, common.ErrNotFound)
	}
	return t, nil
}

// EnsureTable implements Ensurer. An existing table keeps its rows.
func (w *MemoryWorkbook) EnsureTable(_ context.Context, name string, header []string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.tables[name]; ok {
		return false, nil
	}
	w.tables[name] = NewMemoryTable(name, header)
	return true, nil
}
