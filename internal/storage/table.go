package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/tabular"
)

// Workbook groups worksheets under one name, the local stand-in for a spreadsheet id.
type Workbook struct {
	storage *SQLiteStorage
	name    string
}

// Name returns the workbook name.
func (w *Workbook) Name() string { return w.name }

// Table opens an existing worksheet.
func (w *Workbook) Table(ctx context.Context, name string) (tabular.Table, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateSheetName(name); err != nil {
		return nil, err
	}

	var found int
	err := w.storage.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM worksheets WHERE workbook = ? AND name = ?`,
		w.name, name).Scan(&found)
	if err != nil {
		return nil, common.Upstream("open worksheet "+name, err)
	}
	if found == 0 {
		return nil, fmt.Errorf("worksheet %q: %w", name, common.ErrNotFound)
	}
	return &Table{workbook: w, name: name}, nil
}

// EnsureTable creates the worksheet when missing and writes header into row 1
// when that row is blank. It reports whether anything was written.
func (w *Workbook) EnsureTable(ctx context.Context, name string, header []string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateSheetName(name); err != nil {
		return false, err
	}
	if err := validateHeader(header); err != nil {
		return false, err
	}

	changed := false
	err := w.storage.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO worksheets (workbook, name) VALUES (?, ?)`, w.name, name)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			changed = true
		}

		t := &Table{workbook: w, name: name}
		first, err := t.row(ctx, tx, 1)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if slices.ContainsFunc(first, func(c string) bool { return c != "" }) {
			return nil
		}
		changed = true
		return t.put(ctx, tx, 1, header)
	})
	if err != nil {
		return false, common.Upstream("ensure worksheet "+name, err)
	}
	if changed {
		w.storage.logger.Info("worksheet header written", "workbook", w.name, "worksheet", name, "columns", len(header))
	}
	return changed, nil
}

// Tables lists worksheet names in creation order.
func (w *Workbook) Tables(ctx context.Context) ([]string, error) {
	rows, err := w.storage.db.QueryContext(ctx,
		`SELECT name FROM worksheets WHERE workbook = ? ORDER BY created_at, rowid`, w.name)
	if err != nil {
		return nil, common.Upstream("list worksheets", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, common.Upstream("list worksheets", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Upstream("list worksheets", err)
	}
	return names, nil
}

// Table is one worksheet. Row positions are contiguous from 1.
type Table struct {
	workbook *Workbook
	name     string
}

// Name returns the worksheet name.
func (t *Table) Name() string { return t.name }

// Rows returns every row, header first.
func (t *Table) Rows(ctx context.Context) ([][]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := t.workbook.storage.db.QueryContext(ctx,
		`SELECT cells FROM sheet_rows WHERE workbook = ? AND worksheet = ? ORDER BY position`,
		t.workbook.name, t.name)
	if err != nil {
		return nil, common.Upstream("read "+t.name, err)
	}
	defer func() { _ = rows.Close() }()

	var out [][]string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, common.Upstream("read "+t.name, err)
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return nil, common.Upstream("read "+t.name, err)
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Upstream("read "+t.name, err)
	}
	return out, nil
}

// AppendRow writes values after the last row.
func (t *Table) AppendRow(ctx context.Context, values []string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	err := t.workbook.storage.withTx(ctx, func(tx *sql.Tx) error {
		last, err := t.last(ctx, tx)
		if err != nil {
			return err
		}
		return t.put(ctx, tx, last+1, values)
	})
	return common.Upstream("append "+t.name, err)
}

// UpdateRow overwrites cells A..len(values) of rowNumber, keeping any cells to
// the right. Writing past the end fills the gap with empty rows.
func (t *Table) UpdateRow(ctx context.Context, rowNumber int, values []string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRowNumber(rowNumber); err != nil {
		return err
	}

	err := t.workbook.storage.withTx(ctx, func(tx *sql.Tx) error {
		last, err := t.last(ctx, tx)
		if err != nil {
			return err
		}
		for p := last + 1; p < rowNumber; p++ {
			if err := t.put(ctx, tx, p, nil); err != nil {
				return err
			}
		}

		current, err := t.row(ctx, tx, rowNumber)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		merged := slices.Clone(values)
		if len(current) > len(values) {
			merged = append(merged, current[len(values):]...)
		}
		return t.put(ctx, tx, rowNumber, merged)
	})
	return common.Upstream(fmt.Sprintf("update %s row %d", t.name, rowNumber), err)
}

// DeleteRow removes rowNumber and shifts later rows up by one.
func (t *Table) DeleteRow(ctx context.Context, rowNumber int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRowNumber(rowNumber); err != nil {
		return err
	}

	err := t.workbook.storage.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM sheet_rows WHERE workbook = ? AND worksheet = ? AND position = ?`,
			t.workbook.name, t.name, rowNumber); err != nil {
			return err
		}
		// Two passes through negative positions keep the primary key unique
		// while rows move.
		if _, err := tx.ExecContext(ctx,
			`UPDATE sheet_rows SET position = -position WHERE workbook = ? AND worksheet = ? AND position > ?`,
			t.workbook.name, t.name, rowNumber); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE sheet_rows SET position = -position - 1 WHERE workbook = ? AND worksheet = ? AND position < 0`,
			t.workbook.name, t.name)
		return err
	})
	return common.Upstream(fmt.Sprintf("delete %s row %d", t.name, rowNumber), err)
}

func (t *Table) last(ctx context.Context, tx *sql.Tx) (int, error) {
	var last sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT MAX(position) FROM sheet_rows WHERE workbook = ? AND worksheet = ?`,
		t.workbook.name, t.name).Scan(&last)
	if err != nil {
		return 0, err
	}
	return int(last.Int64), nil
}

func (t *Table) row(ctx context.Context, tx *sql.Tx, position int) ([]string, error) {
	var raw string
	err := tx.QueryRowContext(ctx,
		`SELECT cells FROM sheet_rows WHERE workbook = ? AND worksheet = ? AND position = ?`,
		t.workbook.name, t.name, position).Scan(&raw)
	if err != nil {
		return nil, err
	}
	return decodeCells(raw)
}

func (t *Table) put(ctx context.Context, tx *sql.Tx, position int, values []string) error {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sheet_rows (workbook, worksheet, position, cells, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(workbook, worksheet, position) DO UPDATE SET cells = excluded.cells, updated_at = excluded.updated_at`,
		t.workbook.name, t.name, position, string(raw))
	return err
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("failed to decode row: %w", err)
	}
	return cells, nil
}
