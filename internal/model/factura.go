package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// IngresadoPorDefault is recorded when the entering user is unknown.
const IngresadoPorDefault = "Desconocido"

// HeaderFactura is the invoice header row.
type HeaderFactura struct {
	Fecha          time.Time       `col:"Fecha,date" json:"fecha"`
	FechaIngresado time.Time       `col:"Fecha Ingresado,date" json:"fecha_ingresado"`
	NoFactura      string          `col:"No. Factura" json:"no_factura" validate:"notblank"`
	Cliente        string          `col:"Cliente" json:"cliente"`
	DocumentoURL   string          `col:"DocumentoFactura" json:"documento" validate:"omitempty,url"`
	IngresadoPor   string          `col:"Ingresado Por" json:"ingresado_por"`
	Observaciones  string          `col:"Observaciones" json:"observaciones"`
	Total          decimal.Decimal `col:"Total" json:"total"`
	Semana         int             `col:"Semana" json:"semana"`
	Procesado      bool            `col:"Procesado_Flag" json:"procesado"`
}

// HeaderColumns is the HeaderFactura column order.
var HeaderColumns = []string{
	"Fecha", "Semana", "No. Factura", "Cliente", "Total", "DocumentoFactura",
	"Ingresado Por", "Fecha Ingresado", "Observaciones", "Procesado_Flag",
}

// DetalleFactura is one invoice line row. The three sales fields are filled in
// later by processing and are written blank.
type DetalleFactura struct {
	NoFactura             string          `col:"No. Factura" json:"no_factura"`
	Codigo                string          `col:"Codigo_Esparrago" json:"codigo" validate:"notblank"`
	PrecioVentaAgricultor string          `col:"Precio de Venta Agricultor" json:"precio_venta_agricultor"`
	PrecioVenta           string          `col:"Precio de Venta" json:"precio_venta"`
	TotalFinal            string          `col:"Total Final" json:"total_final"`
	Cantidad              decimal.Decimal `col:"Cantidad" json:"cantidad"`
	Precio                decimal.Decimal `col:"Precio" json:"precio"`
	Total                 decimal.Decimal `col:"Total" json:"total"`
	Procesado             bool            `col:"Procesado" json:"procesado"`
}

// DetalleColumns is the DetalleFactura column order.
var DetalleColumns = []string{
	"No. Factura", "Codigo_Esparrago", "Cantidad", "Precio", "Total",
	"Precio de Venta Agricultor", "Precio de Venta", "Total Final", "Procesado",
}

// Line is an invoice line collected during entry, before it is saved.
type Line struct {
	Codigo   string          `json:"codigo" binding:"required"`
	Cantidad decimal.Decimal `json:"cantidad"`
	Precio   decimal.Decimal `json:"precio"`
}

// Total returns Cantidad × Precio.
func (l Line) Total() decimal.Decimal {
	return l.Cantidad.Mul(l.Precio)
}

// Week returns the ISO week number of t.
func Week(t time.Time) int {
	_, w := t.ISOWeek()
	return w
}
