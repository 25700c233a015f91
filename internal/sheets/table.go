package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/records"
	"github.com/Veraticus/esparrago/internal/tabular"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Service is an authorized Sheets API client shared by every workbook.
type Service struct {
	api    *sheets.Service
	http   *http.Client
	logger *slog.Logger
	config Config
}

// NewService authenticates and creates the Sheets service.
func NewService(ctx context.Context, config Config, logger *slog.Logger) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	httpClient, err := NewHTTPClient(ctx, config)
	if err != nil {
		return nil, err
	}

	s, err := NewServiceWithOptions(ctx, config, logger, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	s.http = httpClient
	return s, nil
}

// NewServiceWithOptions creates the service with explicit client options, for
// example an endpoint override in tests.
func NewServiceWithOptions(ctx context.Context, config Config, logger *slog.Logger, opts ...option.ClientOption) (*Service, error) {
	api, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.ValueInputOption == "" {
		config.ValueInputOption = InputRaw
	}

	return &Service{api: api, logger: logger, config: config}, nil
}

// HTTPClient returns the authorized client so Drive can share the credentials.
func (s *Service) HTTPClient() *http.Client {
	return s.http
}

// RetryOptions returns the read retry policy from the config.
func (s *Service) RetryOptions() common.RetryOptions {
	return common.RetryOptions{
		MaxAttempts:  s.config.RetryAttempts,
		InitialDelay: s.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Workbook returns the spreadsheet with the given id.
func (s *Service) Workbook(spreadsheetID string) *Workbook {
	return &Workbook{service: s, id: spreadsheetID}
}

// Workbook is one spreadsheet. Tab ids are looked up once and cached.
type Workbook struct {
	service  *Service
	sheetIDs map[string]int64
	id       string
	mu       sync.Mutex
}

// ID returns the spreadsheet id.
func (w *Workbook) ID() string {
	return w.id
}

// Table implements tabular.Workbook. It fails with common.ErrNotFound when the
// spreadsheet has no tab with that name.
func (w *Workbook) Table(ctx context.Context, name string) (tabular.Table, error) {
	sheetID, err := w.sheetID(ctx, name, false)
	if err != nil {
		return nil, err
	}
	return &Table{workbook: w, name: name, sheetID: sheetID}, nil
}

func (w *Workbook) sheetID(ctx context.Context, name string, refresh bool) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sheetIDs == nil || refresh {
		spreadsheet, err := w.service.api.Spreadsheets.Get(w.id).
			Fields("sheets.properties(sheetId,title)").
			Context(ctx).
			Do()
		if err != nil {
			return 0, apiError("get spreadsheet "+w.id, err)
		}
		w.sheetIDs = make(map[string]int64, len(spreadsheet.Sheets))
		for _, sh := range spreadsheet.Sheets {
			w.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}

	id, ok := w.sheetIDs[name]
	if !ok {
		return 0, fmt.Errorf("worksheet %q in %s: %w", name, w.id, common.ErrNotFound)
	}
	return id, nil
}

// Table is one tab of a spreadsheet.
type Table struct {
	workbook *Workbook
	name     string
	sheetID  int64
}

// Name implements tabular.Table.
func (t *Table) Name() string {
	return t.name
}

// Rows implements tabular.Table.
func (t *Table) Rows(ctx context.Context) ([][]string, error) {
	resp, err := t.api().Spreadsheets.Values.Get(t.workbook.id, quote(t.name)).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, apiError("read "+t.name, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = cellString(cell)
		}
	}
	t.workbook.service.logger.Debug("read worksheet", "worksheet", t.name, "rows", len(rows))
	return rows, nil
}

// AppendRow implements tabular.Table.
func (t *Table) AppendRow(ctx context.Context, values []string) error {
	_, err := t.api().Spreadsheets.Values.Append(t.workbook.id, quote(t.name)+"!A1", valueRange(values)).
		ValueInputOption(t.workbook.service.config.ValueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return apiError("append to "+t.name, err)
	}
	return nil
}

// UpdateRow implements tabular.Table. The range runs from column A to the last value.
func (t *Table) UpdateRow(ctx context.Context, rowNumber int, values []string) error {
	_, err := t.api().Spreadsheets.Values.Update(t.workbook.id, rowRange(t.name, rowNumber, len(values)), valueRange(values)).
		ValueInputOption(t.workbook.service.config.ValueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return apiError(fmt.Sprintf("update %s row %d", t.name, rowNumber), err)
	}
	return nil
}

// DeleteRow implements tabular.Table.
func (t *Table) DeleteRow(ctx context.Context, rowNumber int) error {
	if rowNumber < 1 {
		return fmt.Errorf("row %d out of range: %w", rowNumber, common.ErrNotFound)
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    t.sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowNumber - 1),
					EndIndex:   int64(rowNumber),
				},
			},
		}},
	}
	if _, err := t.api().Spreadsheets.BatchUpdate(t.workbook.id, req).Context(ctx).Do(); err != nil {
		return apiError(fmt.Sprintf("delete %s row %d", t.name, rowNumber), err)
	}
	return nil
}

func (t *Table) api() *sheets.Service {
	return t.workbook.service.api
}

// quote wraps a tab name for A1 notation: 'Tab''s name'.
func quote(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func rowRange(name string, rowNumber, width int) string {
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("%s!A%d:%s%d", quote(name), rowNumber, records.ColumnLetter(width), rowNumber)
}

func valueRange(values []string) *sheets.ValueRange {
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	return &sheets.ValueRange{MajorDimension: "ROWS", Values: [][]any{row}}
}

// cellString renders a JSON-decoded cell: numbers without trailing zeros,
// booleans as TRUE/FALSE.
func cellString(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(v)
	}
}

// apiError marks rate limits and server errors as retryable and wraps every
// failure as common.ErrUpstream.
func apiError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusTooManyRequests:
			err = &common.RetryableError{Err: fmt.Errorf("%w: %w", common.ErrRateLimit, err), Retryable: true}
		case gerr.Code >= 500:
			err = &common.RetryableError{Err: err, Retryable: true}
		}
	}
	return common.Upstream(op, err)
}
