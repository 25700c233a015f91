package facturas

import (
	"context"
	"fmt"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/maestros"
	"github.com/Veraticus/esparrago/internal/model"
	"github.com/Veraticus/esparrago/internal/records"
	"github.com/Veraticus/esparrago/internal/session"
	"github.com/Veraticus/esparrago/internal/tabular"
	"github.com/shopspring/decimal"
)

// ListHeaders decodes every invoice header.
func (s *Service) ListHeaders(ctx context.Context) ([]model.HeaderFactura, error) {
	snap, err := s.load(ctx, tabular.SheetHeaderFactura)
	if err != nil {
		return nil, err
	}
	return records.DecodeAll[model.HeaderFactura](snap)
}

// ListDetails decodes the detail rows, all of them when noFactura is empty.
func (s *Service) ListDetails(ctx context.Context, noFactura string) ([]model.DetalleFactura, error) {
	snap, err := s.load(ctx, tabular.SheetDetalleFactura)
	if err != nil {
		return nil, err
	}
	all, err := records.DecodeAll[model.DetalleFactura](snap)
	if err != nil {
		return nil, err
	}
	if noFactura == "" {
		return all, nil
	}

	var out []model.DetalleFactura
	for _, d := range all {
		if d.NoFactura == noFactura {
			out = append(out, d)
		}
	}
	return out, nil
}

// DeleteDetails removes every detail row of an invoice.
func (s *Service) DeleteDetails(ctx context.Context, noFactura string) (int, error) {
	tbl, err := s.workbook.Table(ctx, tabular.SheetDetalleFactura)
	if err != nil {
		return 0, err
	}
	return s.store.DeleteByColumn(ctx, tbl, model.KeyFactura, noFactura)
}

// Clientes returns the client names offered during entry, read through the
// session cache.
func (s *Service) Clientes(ctx context.Context, sess *session.Session) ([]string, error) {
	snap, err := s.reference(ctx, sess, tabular.SheetClientes, s.clientes)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, n := range snap.Column(model.ColumnNombreCliente) {
		if n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}

// Productos returns the product codes offered during entry.
func (s *Service) Productos(ctx context.Context, sess *session.Session) ([]string, error) {
	snap, err := s.reference(ctx, sess, tabular.SheetProductos, s.productos)
	if err != nil {
		return nil, err
	}
	var codes []string
	for _, c := range snap.Column(model.KeyProducto) {
		if c != "" {
			codes = append(codes, c)
		}
	}
	return codes, nil
}

// DefaultPrice is the base invoice price of a product, the starting unit
// price for a new line.
func (s *Service) DefaultPrice(ctx context.Context, sess *session.Session, codigo string) (decimal.Decimal, error) {
	snap, err := s.reference(ctx, sess, tabular.SheetProductos, s.productos)
	if err != nil {
		return decimal.Zero, err
	}
	return maestros.BasePrice(snap, codigo)
}

func (s *Service) reference(ctx context.Context, sess *session.Session, sheet string, ref Reference) (records.Snapshot, error) {
	if ref == nil {
		return records.Snapshot{}, fmt.Errorf("%s reference: %w", sheet, common.ErrMissingConfig)
	}
	return sess.Cached(ctx, sheet, ref.Snapshot)
}

func (s *Service) load(ctx context.Context, sheet string) (records.Snapshot, error) {
	tbl, err := s.workbook.Table(ctx, sheet)
	if err != nil {
		return records.Snapshot{}, err
	}
	return s.store.Load(ctx, tbl)
}
