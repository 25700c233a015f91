// Package facturas records invoices: one HeaderFactura row per invoice and one
// DetalleFactura row per product line.
package facturas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/esparrago/internal/blob"
	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/model"
	"github.com/Veraticus/esparrago/internal/records"
	"github.com/Veraticus/esparrago/internal/session"
	"github.com/Veraticus/esparrago/internal/tabular"
	"github.com/Veraticus/esparrago/internal/validate"
)

// Reference is a master-data sheet the invoice flow reads from.
type Reference interface {
	Snapshot(ctx context.Context) (records.Snapshot, error)
}

// ProgressFunc is told how many detail rows have been written so far.
type ProgressFunc func(done, total int)

// Service writes invoices to the invoice workbook.
type Service struct {
	workbook   tabular.Workbook
	store      *records.Store
	docs       blob.Store
	clientes   Reference
	productos  Reference
	logger     *slog.Logger
	now        func() time.Time
	progress   ProgressFunc
	docsFolder string
	compensate bool
}

// Option configures a Service.
type Option func(*Service)

// WithDocuments sets where invoice attachments are uploaded.
func WithDocuments(store blob.Store, folder string) Option {
	return func(s *Service) {
		s.docs = store
		s.docsFolder = folder
	}
}

// WithReferences sets the client and product sheets used during entry.
func WithReferences(clientes, productos Reference) Option {
	return func(s *Service) {
		s.clientes = clientes
		s.productos = productos
	}
}

// WithCompensation removes the header and any detail rows of an invoice whose
// detail save failed, so it can be submitted again.
func WithCompensation(on bool) Option {
	return func(s *Service) { s.compensate = on }
}

// WithProgress reports detail-row progress.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Service) { s.progress = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates the service. A nil store gets an unlocked default.
func New(workbook tabular.Workbook, store *records.Store, opts ...Option) *Service {
	s := &Service{workbook: workbook, store: store, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = records.NewStore(records.WithLogger(s.logger))
	}
	return s
}

// Headers returns the default header of the invoice worksheets.
func Headers() map[string][]string {
	return map[string][]string{
		tabular.SheetHeaderFactura:  model.HeaderColumns,
		tabular.SheetDetalleFactura: model.DetalleColumns,
	}
}

// SaveHeader appends the invoice header. The invoice number must be new.
func (s *Service) SaveHeader(ctx context.Context, h model.HeaderFactura) error {
	if err := validate.Struct(&h); err != nil {
		return err
	}
	fields, err := records.Encode(&h)
	if err != nil {
		return err
	}

	tbl, err := s.workbook.Table(ctx, tabular.SheetHeaderFactura)
	if err != nil {
		return err
	}
	snap, err := s.store.Load(ctx, tbl)
	if err != nil {
		return err
	}
	return s.store.Add(ctx, snap, tbl, fields, model.KeyFactura)
}

// SaveDetails appends one row per line with a positive quantity and returns
// how many were written. Totals are recomputed; the sales columns stay blank
// for later processing.
func (s *Service) SaveDetails(ctx context.Context, noFactura string, lines []model.Line) (int, error) {
	details := Details(noFactura, lines)
	rows := make([]records.Record, 0, len(details))
	for i := range details {
		if err := validate.Struct(&details[i]); err != nil {
			return 0, err
		}
		fields, err := records.Encode(&details[i])
		if err != nil {
			return 0, err
		}
		rows = append(rows, fields)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tbl, err := s.workbook.Table(ctx, tabular.SheetDetalleFactura)
	if err != nil {
		return 0, err
	}
	snap, err := s.store.Load(ctx, tbl)
	if err != nil {
		return 0, err
	}

	for i, fields := range rows {
		if err := s.store.Add(ctx, snap, tbl, fields, ""); err != nil {
			return i, err
		}
		if s.progress != nil {
			s.progress(i+1, len(rows))
		}
	}
	return len(rows), nil
}

// Details builds the detail rows for the lines with Cantidad > 0.
func Details(noFactura string, lines []model.Line) []model.DetalleFactura {
	var out []model.DetalleFactura
	for _, l := range lines {
		if !l.Cantidad.IsPositive() {
			continue
		}
		out = append(out, model.DetalleFactura{
			NoFactura: noFactura,
			Codigo:    l.Codigo,
			Cantidad:  l.Cantidad,
			Precio:    l.Precio,
			Total:     l.Total(),
		})
	}
	return out
}

// Input is what the operator enters for an invoice besides its lines.
type Input struct {
	Fecha         time.Time
	Documento     *blob.Object
	NoFactura     string
	Cliente       string
	Observaciones string
}

// Result describes a submitted invoice.
type Result struct {
	Documento blob.File
	Header    model.HeaderFactura
	Details   int
}

// Submit saves the session's lines as an invoice: upload the attachment if
// any, then the header, then the details. The session lines are cleared only
// when everything succeeded.
func (s *Service) Submit(ctx context.Context, sess *session.Session, in Input) (Result, error) {
	var res Result
	if !validate.Required(in.NoFactura) {
		return res, &common.FieldError{Kind: common.ErrMissingField, Field: model.KeyFactura}
	}
	lines := sess.Lines()
	if len(lines) == 0 {
		return res, &common.FieldError{Kind: common.ErrMissingField, Field: "Detalles", Detail: "agrega al menos un producto"}
	}

	if in.Documento != nil {
		if s.docs == nil {
			return res, fmt.Errorf("invoice documents: %w", common.ErrMissingConfig)
		}
		obj := *in.Documento
		if obj.Folder == "" {
			obj.Folder = s.docsFolder
		}
		file, err := s.docs.Upload(ctx, obj)
		if err != nil {
			return res, fmt.Errorf("upload %s: %w", in.Documento.Name, err)
		}
		res.Documento = file
	}

	fecha := in.Fecha
	if fecha.IsZero() {
		fecha = s.now()
	}
	total := sess.RunningTotal()

	res.Header = model.HeaderFactura{
		Fecha:          fecha,
		Semana:         model.Week(fecha),
		NoFactura:      in.NoFactura,
		Cliente:        in.Cliente,
		Total:          total,
		DocumentoURL:   res.Documento.WebViewLink,
		IngresadoPor:   sess.IngresadoPor(),
		FechaIngresado: s.now(),
		Observaciones:  in.Observaciones,
	}
	if err := s.SaveHeader(ctx, res.Header); err != nil {
		return res, err
	}

	n, err := s.SaveDetails(ctx, in.NoFactura, lines)
	res.Details = n
	if err != nil {
		s.logger.Error("invoice details failed after header was saved",
			"factura", in.NoFactura, "written", n, "error", err)
		if s.compensate {
			if cerr := s.rollback(ctx, in.NoFactura); cerr != nil {
				return res, errors.Join(err, cerr)
			}
		}
		return res, err
	}

	sess.ClearLines()
	s.logger.Info("invoice saved", "factura", in.NoFactura, "details", n, "total", total.String())
	return res, nil
}

// rollback removes what was written for noFactura.
func (s *Service) rollback(ctx context.Context, noFactura string) error {
	var errs []error
	for _, sheet := range []string{tabular.SheetDetalleFactura, tabular.SheetHeaderFactura} {
		tbl, err := s.workbook.Table(ctx, sheet)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n, err := s.store.DeleteByColumn(ctx, tbl, model.KeyFactura, noFactura)
		if err != nil {
			errs = append(errs, fmt.Errorf("rollback %s: %w", sheet, err))
			continue
		}
		s.logger.Warn("rolled back invoice rows", "worksheet", sheet, "factura", noFactura, "count", n)
	}
	return errors.Join(errs...)
}
