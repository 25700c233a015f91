package reports

import (
	"strconv"
	"strings"

	"github.com/Veraticus/esparrago/internal/validate"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4")).MarginTop(1)
	totalStyle = lipgloss.NewStyle().Bold(true)
	borderGray = lipgloss.Color("#333")
)

// Table renders a static, unfocused table sized to its content.
func Table(headers []string, rows [][]string) string {
	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		width := len([]rune(h))
		for _, r := range rows {
			if i < len(r) {
				width = max(width, len([]rune(r[i])))
			}
		}
		columns[i] = table.Column{Title: h, Width: width + 1}
	}

	tableRows := make([]table.Row, len(rows))
	for i, r := range rows {
		tableRows[i] = table.Row(r)
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(tableRows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+3),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(borderGray).
		BorderBottom(true).
		Bold(true)
	s.Selected = lipgloss.NewStyle()
	t.SetStyles(s)
	return t.View()
}

// Render formats the invoice report for the terminal.
func (r InvoiceReport) Render() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Facturas por cliente"))
	b.WriteString("\n")
	b.WriteString(Table([]string{"Cliente", "Facturas", "Total"}, groupRows(r.ByCliente)))
	b.WriteString("\n")

	b.WriteString(titleStyle.Render("Facturas por semana"))
	b.WriteString("\n")
	b.WriteString(Table([]string{"Semana", "Facturas", "Total"}, groupRows(r.ByWeek)))
	b.WriteString("\n\n")

	b.WriteString(totalStyle.Render("Facturas: " + strconv.Itoa(r.Count) + "   Total: " + validate.FormatCurrency(r.Total)))
	b.WriteString("\n")
	return b.String()
}

// Render formats the product report for the terminal.
func (r ProductReport) Render() string {
	rows := make([][]string, len(r.Products))
	for i, p := range r.Products {
		rows[i] = []string{p.Codigo, strconv.Itoa(p.Lines), p.Cantidad.String(), validate.FormatCurrency(p.Total)}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Ventas por producto"))
	b.WriteString("\n")
	b.WriteString(Table([]string{"Codigo_Esparrago", "Lineas", "Cantidad", "Total"}, rows))
	b.WriteString("\n\n")
	b.WriteString(totalStyle.Render("Cantidad: " + r.Cantidad.String() + "   Total: " + validate.FormatCurrency(r.Total)))
	b.WriteString("\n")
	return b.String()
}

func groupRows(groups []Group) [][]string {
	rows := make([][]string, len(groups))
	for i, g := range groups {
		rows[i] = []string{g.Key, strconv.Itoa(g.Count), validate.FormatCurrency(g.Total)}
	}
	return rows
}
