// Package reports summarizes saved invoices for the terminal and for XLSX
// export.
package reports

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/Veraticus/esparrago/internal/model"
	"github.com/shopspring/decimal"
)

// SinCliente labels invoices saved without a client.
const SinCliente = "(sin cliente)"

// Group is an aggregate over invoices sharing a key.
type Group struct {
	Key   string          `json:"key"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// InvoiceReport totals invoice headers.
type InvoiceReport struct {
	Total     decimal.Decimal `json:"total"`
	ByCliente []Group         `json:"por_cliente"`
	ByWeek    []Group         `json:"por_semana"`
	Count     int             `json:"facturas"`
}

// InvoiceSummary totals headers by client and by ISO week. Clients are
// ordered by total, highest first; weeks chronologically.
func InvoiceSummary(headers []model.HeaderFactura) InvoiceReport {
	r := InvoiceReport{Total: decimal.Zero}
	clientes := map[string]*Group{}
	weeks := map[string]*Group{}

	for _, h := range headers {
		r.Count++
		r.Total = r.Total.Add(h.Total)

		cliente := h.Cliente
		if cliente == "" {
			cliente = SinCliente
		}
		add(clientes, cliente, h.Total)
		add(weeks, weekKey(h), h.Total)
	}

	r.ByCliente = flatten(clientes)
	slices.SortFunc(r.ByCliente, func(a, b Group) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	r.ByWeek = flatten(weeks)
	slices.SortFunc(r.ByWeek, func(a, b Group) int { return cmp.Compare(a.Key, b.Key) })
	return r
}

// weekKey is "2026-W42". Headers without a date fall back to their stored
// Semana.
func weekKey(h model.HeaderFactura) string {
	if h.Fecha.IsZero() {
		return fmt.Sprintf("W%02d", h.Semana)
	}
	year, week := h.Fecha.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func add(groups map[string]*Group, key string, total decimal.Decimal) {
	g, ok := groups[key]
	if !ok {
		g = &Group{Key: key, Total: decimal.Zero}
		groups[key] = g
	}
	g.Count++
	g.Total = g.Total.Add(total)
}

func flatten(groups map[string]*Group) []Group {
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	return out
}

// ProductLine aggregates the detail rows of one product.
type ProductLine struct {
	Codigo   string          `json:"codigo"`
	Cantidad decimal.Decimal `json:"cantidad"`
	Total    decimal.Decimal `json:"total"`
	Lines    int             `json:"lineas"`
}

// ProductReport totals invoice details per product.
type ProductReport struct {
	Cantidad decimal.Decimal `json:"cantidad"`
	Total    decimal.Decimal `json:"total"`
	Products []ProductLine   `json:"productos"`
}

// ProductSummary sums quantity and total per Codigo_Esparrago, ordered by
// code.
func ProductSummary(details []model.DetalleFactura) ProductReport {
	r := ProductReport{Cantidad: decimal.Zero, Total: decimal.Zero}
	index := map[string]int{}

	for _, d := range details {
		i, ok := index[d.Codigo]
		if !ok {
			i = len(r.Products)
			index[d.Codigo] = i
			r.Products = append(r.Products, ProductLine{Codigo: d.Codigo, Cantidad: decimal.Zero, Total: decimal.Zero})
		}
		p := &r.Products[i]
		p.Lines++
		p.Cantidad = p.Cantidad.Add(d.Cantidad)
		p.Total = p.Total.Add(d.Total)

		r.Cantidad = r.Cantidad.Add(d.Cantidad)
		r.Total = r.Total.Add(d.Total)
	}

	slices.SortFunc(r.Products, func(a, b ProductLine) int { return cmp.Compare(a.Codigo, b.Codigo) })
	return r
}
