package service

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/esparrago/internal/blob"
	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/config"
	"github.com/Veraticus/esparrago/internal/facturas"
	"github.com/Veraticus/esparrago/internal/lock"
	"github.com/Veraticus/esparrago/internal/model"
	"github.com/Veraticus/esparrago/internal/records"
	"github.com/Veraticus/esparrago/internal/storage"
	"github.com/Veraticus/esparrago/internal/tabular"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*App, *MemoryBackend, *blob.Memory) {
	t.Helper()
	backend := NewMemoryBackend()
	docs := blob.NewMemory()
	cfg := &config.App{Password: "secreto", CacheTTL: time.Hour, FolderFacturas: "folder-facturas"}
	app := Assemble(cfg, Parts{Backend: backend, Docs: docs, Locker: lock.NewLocal()}, nil)
	t.Cleanup(func() { _ = app.Close() })
	return app, backend, docs
}

func TestMigrate_CreatesEveryWorksheet(t *testing.T) {
	ctx := context.Background()
	app, backend, _ := newTestApp(t)

	created, err := app.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		tabular.SheetAgricultores, tabular.SheetCajas, tabular.SheetClientes,
		tabular.SheetComisiones, tabular.SheetProductos,
		tabular.SheetDetalleFactura, tabular.SheetHeaderFactura,
	}, created)

	assert.Equal(t, [][]string{model.ClienteColumns}, backend.MaestrosTables().Get(tabular.SheetClientes).Snapshot())
	assert.Equal(t, [][]string{model.HeaderColumns}, backend.FacturasTables().Get(tabular.SheetHeaderFactura).Snapshot())

	created, err = app.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestApp_MaestrosThenFactura(t *testing.T) {
	ctx := context.Background()
	app, backend, docs := newTestApp(t)
	_, err := app.Migrate(ctx)
	require.NoError(t, err)

	sess := app.Sessions.Create("ana@campo.mx")
	assert.ErrorIs(t, sess.Unlock(app.Gate, "otra"), common.ErrAccessDenied)
	require.NoError(t, sess.Unlock(app.Gate, "secreto"))

	require.NoError(t, app.Maestros.Clientes.AddForm(ctx, records.Record{"ID": "7", "Nombre Cliente": "Mercado Central"}))
	require.NoError(t, app.Maestros.Productos.AddForm(ctx, records.Record{
		"Codigo_Esparrago":    "V28",
		"Nombre":              "Espárrago verde",
		"TipoCaja":            "Fresh 28",
		"Primeras/Segundas":   "Primeras",
		"Cajas":               "28 Lbs",
		"Precio Factura Base": "$25.00",
		"Avance":              "0",
		"Costo Cajas":         "0",
		"Avance Cajas":        "0",
		"Avance Empaque":      "0",
		"Multiplicativo":      "1",
	}))

	clientes, err := app.Facturas.Clientes(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mercado Central"}, clientes)

	precio, err := app.Facturas.DefaultPrice(ctx, sess, "V28")
	require.NoError(t, err)
	require.NoError(t, sess.AddLine(model.Line{Codigo: "V28", Cantidad: decimal.NewFromInt(4), Precio: precio}))

	res, err := app.Facturas.Submit(ctx, sess, facturas.Input{
		NoFactura: "F-9",
		Cliente:   "Mercado Central",
		Documento: &blob.Object{Name: "f9.pdf", Data: []byte("%PDF-1.4 factura")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Details)
	assert.Equal(t, "https://example.invalid/view/mem-1", res.Header.DocumentoURL)
	assert.Equal(t, "folder-facturas", docs.Uploads()[0].Folder)

	headers := backend.FacturasTables().Get(tabular.SheetHeaderFactura).Snapshot()
	require.Len(t, headers, 2)
	assert.Contains(t, headers[1], "100")
	assert.Contains(t, headers[1], "ana@campo.mx")
}

func TestApp_Table(t *testing.T) {
	ctx := context.Background()
	app, _, _ := newTestApp(t)
	_, err := app.Migrate(ctx)
	require.NoError(t, err)

	tbl, err := app.Table(ctx, tabular.SheetProductos)
	require.NoError(t, err)
	assert.Equal(t, tabular.SheetProductos, tbl.Name())

	tbl, err = app.Table(ctx, tabular.SheetDetalleFactura)
	require.NoError(t, err)
	assert.Equal(t, tabular.SheetDetalleFactura, tbl.Name())

	_, err = app.Table(ctx, "Inexistente")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPrepare_SQLite(t *testing.T) {
	ctx := context.Background()
	backend, err := NewSQLiteBackend(storage.MemoryPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	app := Assemble(&config.App{}, Parts{Backend: backend, Locker: lock.Nop{}}, nil)
	created, err := app.Migrate(ctx)
	require.NoError(t, err)
	assert.Len(t, created, 7)

	require.NoError(t, app.Maestros.Comisiones.AddForm(ctx, records.Record{"Concepto": "Flete", "Porcentaje": "5"}))
	list, err := app.Maestros.Comisiones.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Flete", list[0].Concepto)

	// Master data and invoices live in separate workbooks.
	_, err = backend.Facturas().Table(ctx, tabular.SheetComisiones)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestNew_RejectsUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), &config.App{Backend: "excel"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestNew_SQLite(t *testing.T) {
	cfg := &config.App{
		Backend:    config.BackendSQLite,
		SQLitePath: storage.MemoryPath,
		Blob:       config.BlobMemory,
		Lock:       config.LockLocal,
	}
	app, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteBackend{}, app.Backend)
	assert.IsType(t, &lock.Local{}, app.Locker)
	require.NoError(t, app.Close())
}
