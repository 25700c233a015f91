// Package service assembles the application from its configuration: the
// worksheet backend, attachment storage, write locking and the master-data
// and invoice services built on them.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/esparrago/internal/sheets"
	"github.com/Veraticus/esparrago/internal/storage"
	"github.com/Veraticus/esparrago/internal/tabular"
)

// Workbook is a workbook that can also create missing worksheets.
type Workbook interface {
	tabular.Workbook
	tabular.Ensurer
}

// Backend holds the two workbooks the application works with.
type Backend interface {
	Maestros() Workbook
	Facturas() Workbook
	Close() error
}

// Migrator is implemented by backends with a schema of their own.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// SheetsBackend keeps the workbooks in Google Sheets.
type SheetsBackend struct {
	Service  *sheets.Service
	maestros *sheets.Workbook
	facturas *sheets.Workbook
}

// NewSheetsBackend authorizes against Google and opens both spreadsheets.
func NewSheetsBackend(ctx context.Context, cfg sheets.Config, maestrosID, facturasID string, logger *slog.Logger) (*SheetsBackend, error) {
	svc, err := sheets.NewService(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &SheetsBackend{
		Service:  svc,
		maestros: svc.Workbook(maestrosID),
		facturas: svc.Workbook(facturasID),
	}, nil
}

// Maestros implements Backend.
func (b *SheetsBackend) Maestros() Workbook { return b.maestros }

// Facturas implements Backend.
func (b *SheetsBackend) Facturas() Workbook { return b.facturas }

// Close implements Backend.
func (b *SheetsBackend) Close() error { return nil }

// Workbook names inside the SQLite database.
const (
	WorkbookMaestros = "maestros"
	WorkbookFacturas = "facturas"
)

// SQLiteBackend keeps both workbooks in one local database.
type SQLiteBackend struct {
	db *storage.SQLiteStorage
}

// NewSQLiteBackend opens the database at path.
func NewSQLiteBackend(path string, logger *slog.Logger) (*SQLiteBackend, error) {
	db, err := storage.NewSQLiteStorage(path, logger)
	if err != nil {
		return nil, err
	}
	return &SQLiteBackend{db: db}, nil
}

// Maestros implements Backend.
func (b *SQLiteBackend) Maestros() Workbook { return b.db.Workbook(WorkbookMaestros) }

// Facturas implements Backend.
func (b *SQLiteBackend) Facturas() Workbook { return b.db.Workbook(WorkbookFacturas) }

// Migrate implements Migrator.
func (b *SQLiteBackend) Migrate(ctx context.Context) error { return b.db.Migrate(ctx) }

// Close implements Backend.
func (b *SQLiteBackend) Close() error { return b.db.Close() }

// MemoryBackend keeps everything in process.
type MemoryBackend struct {
	maestros *tabular.MemoryWorkbook
	facturas *tabular.MemoryWorkbook
}

// NewMemoryBackend creates two empty workbooks.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		maestros: tabular.NewMemoryWorkbook(),
		facturas: tabular.NewMemoryWorkbook(),
	}
}

// Maestros implements Backend.
func (b *MemoryBackend) Maestros() Workbook { return b.maestros }

// Facturas implements Backend.
func (b *MemoryBackend) Facturas() Workbook { return b.facturas }

// MaestrosTables exposes the master-data tables for inspection.
func (b *MemoryBackend) MaestrosTables() *tabular.MemoryWorkbook { return b.maestros }

// FacturasTables exposes the invoice tables for inspection.
func (b *MemoryBackend) FacturasTables() *tabular.MemoryWorkbook { return b.facturas }

// Close implements Backend.
func (b *MemoryBackend) Close() error { return nil }

// Prepare migrates the backend when it has a schema, then creates every
// missing worksheet with its default header. It returns the worksheets it
// created.
func Prepare(ctx context.Context, b Backend, maestros, facturas map[string][]string, logger *slog.Logger) ([]string, error) {
	if m, ok := b.(Migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	var created []string
	var errs []error
	ensure := func(wb Workbook, headers map[string][]string) {
		for _, name := range sortedKeys(headers) {
			ok, err := wb.EnsureTable(ctx, name, headers[name])
			if err != nil {
				errs = append(errs, fmt.Errorf("ensure %s: %w", name, err))
				continue
			}
			if ok {
				logger.Info("Created worksheet", "worksheet", name)
				created = append(created, name)
			}
		}
	}
	ensure(b.Maestros(), maestros)
	ensure(b.Facturas(), facturas)
	return created, errors.Join(errs...)
}
