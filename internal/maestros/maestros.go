// Package maestros manages the master-data worksheets: farmers, clients,
// products, commissions and box-cost templates.
package maestros

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/esparrago/internal/blob"
	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/model"
	"github.com/Veraticus/esparrago/internal/records"
	"github.com/Veraticus/esparrago/internal/tabular"
)

// Entity names accepted by Service.Manager.
const (
	NameAgricultores = "agricultores"
	NameClientes     = "clientes"
	NameProductos    = "productos"
	NameComisiones   = "comisiones"
	NameCajas        = "cajas"
)

// Manager is the untyped view of an entity used by the CLI and the API,
// which work with raw column → value forms.
type Manager interface {
	Name() string
	Sheet() string
	KeyColumn() string
	Columns() []string
	Snapshot(ctx context.Context) (records.Snapshot, error)
	AddForm(ctx context.Context, form records.Record) error
	EditForm(ctx context.Context, key string, form records.Record) error
	Delete(ctx context.Context, key, confirm string) error
}

// Service groups the entity repositories over one workbook.
type Service struct {
	Agricultores *Repo[model.Agricultor]
	Clientes     *Clientes
	Productos    *Productos
	Comisiones   *Repo[model.Comision]
	Cajas        *Repo[model.Caja]

	workbook    tabular.Workbook
	store       *records.Store
	logos       blob.Store
	logger      *slog.Logger
	logosFolder string
}

// Option configures a Service.
type Option func(*Service)

// WithLogos sets where client logos are uploaded.
func WithLogos(store blob.Store, folder string) Option {
	return func(s *Service) {
		s.logos = store
		s.logosFolder = folder
	}
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
	s := &Service{workbook: workbook, store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = records.NewStore(records.WithLogger(s.logger))
	}

	s.Agricultores = newRepo(s, agricultorEntity)
	s.Clientes = &Clientes{Repo: newRepo(s, clienteEntity)}
	s.Productos = &Productos{Repo: newRepo(s, productoEntity)}
	s.Comisiones = newRepo(s, comisionEntity)
	s.Cajas = newRepo(s, cajaEntity)
	return s
}

// Managers lists every entity in menu order.
func (s *Service) Managers() []Manager {
	return []Manager{s.Agricultores, s.Clientes, s.Productos, s.Comisiones, s.Cajas}
}

// Manager looks an entity up by name or worksheet name.
func (s *Service) Manager(name string) (Manager, error) {
	for _, m := range s.Managers() {
		if strings.EqualFold(m.Name(), name) || strings.EqualFold(m.Sheet(), name) {
			return m, nil
		}
	}
	return nil, fmt.Errorf("entity %q: %w", name, common.ErrNotFound)
}

// Headers returns the default header of every master-data worksheet.
func Headers() map[string][]string {
	return map[string][]string{
		tabular.SheetAgricultores: model.AgricultorColumns,
		tabular.SheetClientes:     model.ClienteColumns,
		tabular.SheetProductos:    model.ProductoColumns,
		tabular.SheetComisiones:   model.ComisionColumns,
		tabular.SheetCajas:        model.CajaColumns,
	}
}
