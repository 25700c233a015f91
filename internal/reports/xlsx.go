package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Worksheet names in the exported workbook.
const (
	SheetClientes  = "Por cliente"
	SheetSemanas   = "Por semana"
	SheetProductos = "Por producto"
)

const currencyFormat = `"$"#,##0.00`

// WriteXLSX writes the reports as a workbook, one worksheet per summary.
// Either report may be nil.
func WriteXLSX(w io.Writer, inv *InvoiceReport, prod *ProductReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	x := &xlsx{f: f}
	numFmt := currencyFormat
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("currency style: %w", err)
	}
	x.currency = style

	first := true
	sheet := func(name string) error {
		if first {
			first = false
			return f.SetSheetName("Sheet1", name)
		}
		_, err := f.NewSheet(name)
		return err
	}

	if inv != nil {
		for _, part := range []struct {
			name   string
			key    string
			groups []Group
		}{
			{SheetClientes, "Cliente", inv.ByCliente},
			{SheetSemanas, "Semana", inv.ByWeek},
		} {
			if err := sheet(part.name); err != nil {
				return err
			}
			x.header(part.name, part.key, "Facturas", "Total")
			row := 2
			for _, g := range part.groups {
				x.row(part.name, row, g.Key, g.Count, g.Total.InexactFloat64())
				row++
			}
			x.row(part.name, row, "Total", inv.Count, inv.Total.InexactFloat64())
			x.money(part.name, "C", row)
		}
	}

	if prod != nil {
		if err := sheet(SheetProductos); err != nil {
			return err
		}
		x.header(SheetProductos, "Codigo_Esparrago", "Lineas", "Cantidad", "Total")
		row := 2
		for _, p := range prod.Products {
			x.row(SheetProductos, row, p.Codigo, p.Lines, p.Cantidad.InexactFloat64(), p.Total.InexactFloat64())
			row++
		}
		x.row(SheetProductos, row, "Total", "", prod.Cantidad.InexactFloat64(), prod.Total.InexactFloat64())
		x.money(SheetProductos, "D", row)
	}

	if x.err != nil {
		return x.err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// xlsx keeps the first cell error so the writers above stay linear.
type xlsx struct {
	f        *excelize.File
	err      error
	currency int
}

func (x *xlsx) header(sheet string, titles ...string) {
	values := make([]any, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	x.row(sheet, 1, values...)
	if x.err == nil {
		last, _ := excelize.ColumnNumberToName(len(titles))
		x.err = x.f.SetColWidth(sheet, "A", last, 18)
	}
}

func (x *xlsx) row(sheet string, row int, values ...any) {
	if x.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		x.err = err
		return
	}
	if err := x.f.SetSheetRow(sheet, cell, &values); err != nil {
		x.err = fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
}

// money applies the currency format to column col, rows 2 through last.
func (x *xlsx) money(sheet, col string, last int) {
	if x.err != nil || last < 2 {
		return
	}
	x.err = x.f.SetCellStyle(sheet, fmt.Sprintf("%s2", col), fmt.Sprintf("%s%d", col, last), x.currency)
}
