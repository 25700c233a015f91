// Package model holds the typed records stored in the worksheets. The `col`
// tag names the worksheet column (optionally with a cell format) and the
// `validate` tag carries the field rules checked before any write.
package model

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Key columns.
const (
	KeyAgricultor = "Clave"
	KeyCliente    = "ID"
	KeyProducto   = "Codigo_Esparrago"
	KeyComision   = "Concepto"
	KeyCaja       = "Concepto"
	KeyFactura    = "No. Factura"

	ColumnNombreCliente = "Nombre Cliente"
)

// Agricultor is a farmer supplying product.
type Agricultor struct {
	Clave     string `col:"Clave" validate:"notblank"`
	Nombre    string `col:"Agricultor" validate:"notblank"`
	Zona      string `col:"Zona"`
	Email     string `col:"Email" validate:"omitempty,email_loose"`
	Telefono  string `col:"Telefono" validate:"omitempty,phone"`
	Direccion string `col:"Direccion"`
	Orden     string `col:"Orden"`
}

// Cliente is a buyer. ID is numeric and stored without leading zeros.
type Cliente struct {
	Nombre    string `col:"Nombre Cliente" validate:"notblank"`
	Telefono  string `col:"Telefono" validate:"omitempty,phone"`
	Icono     string `col:"Icono"`
	Direccion string `col:"Dirección"`
	ID        int    `col:"ID" validate:"gte=0"`
}

// Default worksheet headers, in sheet order.
var (
	AgricultorColumns = []string{"Clave", "Agricultor", "Zona", "Email", "Telefono", "Direccion", "Orden"}
	ClienteColumns    = []string{"ID", "Nombre Cliente", "Telefono", "Icono", "Dirección"}
	ProductoColumns   = []string{
		"Codigo_Esparrago", "Nombre", "TipoCaja", "Primeras/Segundas", "Cajas", "Avance",
		"Costo Cajas", "Precio Factura Base", "Avance Cajas", "Avance Empaque", "Multiplicativo",
	}
	ComisionColumns = []string{"Concepto", "Porcentaje"}
	CajaColumns     = slices.Concat([]string{"Concepto", "Multiplicativo"}, CajaComponentes, []string{"Totales"})
)

// Product option lists offered on entry.
var (
	TiposCaja       = []string{"Made+Cart", "Fresh 28", "Costco 28", "Costco 36", "Cajas Segunda 28"}
	PrimerasSegunda = []string{"Primeras", "Segundas"}
	Cajas           = []string{"11 Lbs", "Walmart", "28 Lbs", "Costco", "36 Lbs", "Small 28", "Tips"}
)

// Producto is an asparagus product with its cost and base invoice price.
type Producto struct {
	Codigo            string          `col:"Codigo_Esparrago" validate:"notblank"`
	Nombre            string          `col:"Nombre" validate:"notblank"`
	TipoCaja          string          `col:"TipoCaja" validate:"oneof='Made+Cart' 'Fresh 28' 'Costco 28' 'Costco 36' 'Cajas Segunda 28'"`
	PrimerasSegundas  string          `col:"Primeras/Segundas" validate:"oneof=Primeras Segundas"`
	Cajas             string          `col:"Cajas" validate:"oneof='11 Lbs' Walmart '28 Lbs' Costco '36 Lbs' 'Small 28' Tips"`
	Multiplicativo    string          `col:"Multiplicativo" validate:"numeric_str"`
	Avance            decimal.Decimal `col:"Avance,currency"`
	CostoCajas        decimal.Decimal `col:"Costo Cajas,currency"`
	PrecioFacturaBase decimal.Decimal `col:"Precio Factura Base,currency"`
	AvanceCajas       decimal.Decimal `col:"Avance Cajas,currency"`
	AvanceEmpaque     decimal.Decimal `col:"Avance Empaque,currency"`
}

// Comision is a named commission percentage.
type Comision struct {
	Concepto   string          `col:"Concepto" validate:"notblank"`
	Porcentaje decimal.Decimal `col:"Porcentaje,percent"`
}

// Caja is a box-cost template. Totales is derived from the ten components.
type Caja struct {
	Concepto       string          `col:"Concepto" validate:"notblank"`
	Multiplicativo string          `col:"Multiplicativo" validate:"numeric_str"`
	Caja           decimal.Decimal `col:"Caja,currency"`
	Panal          decimal.Decimal `col:"Panal,currency"`
	Liga           decimal.Decimal `col:"Liga,currency"`
	FleteImporta   decimal.Decimal `col:"Flete Importa,currency"`
	Sueldos        decimal.Decimal `col:"Sueldos,currency"`
	Renta          decimal.Decimal `col:"Renta,currency"`
	Ryan           decimal.Decimal `col:"Ryan,currency"`
	Empaque        decimal.Decimal `col:"Empaque,currency"`
	TagsBags       decimal.Decimal `col:"Tags/Bags,currency"`
	FleteLocales   decimal.Decimal `col:"Flete Locales,currency"`
	Totales        decimal.Decimal `col:"Totales,float"`
}

// CajaComponentes lists the ten cost component columns in sheet order.
var CajaComponentes = []string{
	"Caja", "Panal", "Liga", "Flete Importa", "Sueldos",
	"Renta", "Ryan", "Empaque", "Tags/Bags", "Flete Locales",
}

// Components returns pointers to the ten cost components in sheet order.
func (c *Caja) Components() []*decimal.Decimal {
	return []*decimal.Decimal{
		&c.Caja, &c.Panal, &c.Liga, &c.FleteImporta, &c.Sueldos,
		&c.Renta, &c.Ryan, &c.Empaque, &c.TagsBags, &c.FleteLocales,
	}
}

// ComputeTotales sets Totales to the sum of the components as stored, that is
// each rounded to cents first.
func (c *Caja) ComputeTotales() decimal.Decimal {
	total := decimal.Zero
	for _, d := range c.Components() {
		total = total.Add(d.Round(2))
	}
	c.Totales = total
	return total
}
