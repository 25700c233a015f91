package sheets

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Veraticus/esparrago/internal/common"
	"google.golang.org/api/sheets/v4"
)

// EnsureTable creates the tab when it is missing and writes header into row 1
// when that row is empty. An existing header is left alone, even if it differs.
// It reports whether anything was created.
func (w *Workbook) EnsureTable(ctx context.Context, name string, header []string) (bool, error) {
	sheetID, err := w.sheetID(ctx, name, false)
	created := false
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return false, err
		}
		if sheetID, err = w.addSheet(ctx, name); err != nil {
			return false, err
		}
		created = true
	}

	tbl := &Table{workbook: w, name: name, sheetID: sheetID}
	rows, err := tbl.Rows(ctx)
	if err != nil {
		return created, err
	}
	if len(rows) > 0 && slices.ContainsFunc(rows[0], func(c string) bool { return c != "" }) {
		return created, nil
	}

	if err := tbl.UpdateRow(ctx, 1, header); err != nil {
		return created, err
	}

	if w.service.config.EnableFormatting {
		req := &sheets.BatchUpdateSpreadsheetRequest{Requests: headerFormat(sheetID, len(header))}
		if _, err := w.service.api.Spreadsheets.BatchUpdate(w.id, req).Context(ctx).Do(); err != nil {
			// Formatting is cosmetic; the header itself is written.
			w.service.logger.Warn("failed to format header", "worksheet", name, "error", err)
		}
	}

	w.service.logger.Info("worksheet header written", "worksheet", name, "columns", len(header))
	return true, nil
}

func (w *Workbook) addSheet(ctx context.Context, name string) (int64, error) {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: name},
			},
		}},
	}
	resp, err := w.service.api.Spreadsheets.BatchUpdate(w.id, req).Context(ctx).Do()
	if err != nil {
		return 0, apiError(fmt.Sprintf("add worksheet %s", name), err)
	}
	w.service.logger.Info("worksheet created", "worksheet", name, "spreadsheet", w.id)

	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
		id := resp.Replies[0].AddSheet.Properties.SheetId
		w.mu.Lock()
		if w.sheetIDs == nil {
			w.sheetIDs = make(map[string]int64)
		}
		w.sheetIDs[name] = id
		w.mu.Unlock()
		return id, nil
	}
	return w.sheetID(ctx, name, true)
}

// headerFormat bolds and shades the header row, freezes it, and sizes the columns.
func headerFormat(sheetID int64, columns int) []*sheets.Request {
	return []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(columns),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold: true,
						},
						BackgroundColor: &sheets.Color{
							Red:   0.9,
							Green: 0.9,
							Blue:  0.9,
							Alpha: 1.0,
						},
					},
				},
				Fields: "userEnteredFormat.textFormat,userEnteredFormat.backgroundColor",
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: sheetID,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 1,
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   int64(columns),
				},
			},
		},
	}
}
