// Package tabular defines the remote tabular store the application persists to:
// a workbook of named worksheets whose first row is the header and whose rows are
// addressed by 1-based row number.
package tabular

import "context"

// Table is one named worksheet. Row numbers are 1-based and row 1 is the header.
type Table interface {
	// Name returns the worksheet (tab) name.
	Name() string
	// Rows returns every row including the header, in sheet order.
	Rows(ctx context.Context) ([][]string, error)
	// AppendRow writes values after the last row.
	AppendRow(ctx context.Context, values []string) error
	// UpdateRow overwrites row rowNumber from column A through len(values).
	UpdateRow(ctx context.Context, rowNumber int, values []string) error
	// DeleteRow removes row rowNumber; subsequent rows shift up by one.
	DeleteRow(ctx context.Context, rowNumber int) error
}

// Workbook opens worksheets by name.
type Workbook interface {
	Table(ctx context.Context, name string) (Table, error)
}

// Ensurer creates a worksheet with the given header when it is missing and
// reports whether it did.
type Ensurer interface {
	EnsureTable(ctx context.Context, name string, header []string) (bool, error)
}

// Worksheet names used by the application.
const (
	SheetAgricultores   = "Agricultores"
	SheetClientes       = "Clientes"
	SheetProductos      = "Producto_Esparrago"
	SheetComisiones     = "Comisiones"
	SheetCajas          = "Cajas"
	SheetHeaderFactura  = "HeaderFactura"
	SheetDetalleFactura = "DetalleFactura"
)
