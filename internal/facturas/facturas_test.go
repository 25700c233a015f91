package facturas

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/esparrago/internal/blob"
	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/model"
	"github.com/Veraticus/esparrago/internal/records"
	"github.com/Veraticus/esparrago/internal/session"
	"github.com/Veraticus/esparrago/internal/tabular"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*Service, *tabular.MemoryWorkbook) {
	t.Helper()
	wb := tabular.NewMemoryWorkbook()
	wb.Add(tabular.NewMemoryTable(tabular.SheetHeaderFactura, model.HeaderColumns))
	wb.Add(tabular.NewMemoryTable(tabular.SheetDetalleFactura, model.DetalleColumns))
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(wb, nil, opts...), wb
}

func line(codigo string, cantidad, precio string) model.Line {
	return model.Line{
		Codigo:   codigo,
		Cantidad: decimal.RequireFromString(cantidad),
		Precio:   decimal.RequireFromString(precio),
	}
}

func sessionWith(t *testing.T, email string, lines ...model.Line) *session.Session {
	t.Helper()
	sess := session.New(email, time.Hour)
	for _, l := range lines {
		require.NoError(t, sess.AddLine(l))
	}
	return sess
}

func dataRows(wb *tabular.MemoryWorkbook, sheet string) []records.Record {
	return records.FromRows(wb.Get(sheet).Snapshot()).Records
}

func TestSaveDetails_SkipsNonPositiveQuantities(t *testing.T) {
	svc, wb := newTestService(t)

	lines := []model.Line{
		line("V28", "0", "25"),
		line("V28", "2", "25"),
		line("B11", "-1", "10"),
		line("C36", "5", "12.5"),
	}
	n, err := svc.SaveDetails(context.Background(), "F-100", lines)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows := dataRows(wb, tabular.SheetDetalleFactura)
	require.Len(t, rows, 2)

	assert.Equal(t, "F-100", rows[0]["No. Factura"])
	assert.Equal(t, "V28", rows[0]["Codigo_Esparrago"])
	assert.Equal(t, "2", rows[0]["Cantidad"])
	assert.Equal(t, "50", rows[0]["Total"])
	assert.Equal(t, "62.5", rows[1]["Total"])
	for _, r := range rows {
		assert.Empty(t, r["Precio de Venta Agricultor"])
		assert.Empty(t, r["Precio de Venta"])
		assert.Empty(t, r["Total Final"])
		assert.Equal(t, "FALSE", r["Procesado"])
	}
}

func TestSaveDetails_NothingToWrite(t *testing.T) {
	svc, wb := newTestService(t)

	n, err := svc.SaveDetails(context.Background(), "F-1", []model.Line{line("V28", "0", "1")})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, wb.Get(tabular.SheetDetalleFactura).Calls())
}

func TestSaveDetails_Progress(t *testing.T) {
	var seen []int
	svc, _ := newTestService(t, WithProgress(func(done, total int) {
		assert.Equal(t, 3, total)
		seen = append(seen, done)
	}))

	_, err := svc.SaveDetails(context.Background(), "F-1", []model.Line{
		line("A", "1", "1"), line("B", "1", "1"), line("C", "1", "1"),
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestSubmit(t *testing.T) {
	svc, wb := newTestService(t)
	sess := sessionWith(t, "", line("V28", "2", "25"), line("B11", "3", "10.5"))
	fecha := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

	res, err := svc.Submit(context.Background(), sess, Input{
		Fecha:         fecha,
		NoFactura:     "F-200",
		Cliente:       "Mercado Central",
		Observaciones: "entrega parcial",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Details)
	assert.Empty(t, sess.Lines(), "lines are cleared after a successful save")

	headers := dataRows(wb, tabular.SheetHeaderFactura)
	require.Len(t, headers, 1)
	h := headers[0]
	_, week := fecha.ISOWeek()
	assert.Equal(t, "2026-10-12", h["Fecha"])
	assert.Equal(t, "2026-10-14", h["Fecha Ingresado"])
	assert.Equal(t, "F-200", h["No. Factura"])
	assert.Equal(t, "Mercado Central", h["Cliente"])
	assert.Equal(t, "81.5", h["Total"])
	assert.Equal(t, model.IngresadoPorDefault, h["Ingresado Por"])
	assert.Equal(t, "entrega parcial", h["Observaciones"])
	assert.Empty(t, h["DocumentoFactura"])
	assert.Equal(t, week, res.Header.Semana)

	assert.Len(t, dataRows(wb, tabular.SheetDetalleFactura), 2)
}

func TestSubmit_RecordsUser(t *testing.T) {
	svc, wb := newTestService(t)
	sess := sessionWith(t, "ana@campo.mx", line("V28", "1", "25"))

	_, err := svc.Submit(context.Background(), sess, Input{NoFactura: "F-1"})
	require.NoError(t, err)

	h := dataRows(wb, tabular.SheetHeaderFactura)[0]
	assert.Equal(t, "ana@campo.mx", h["Ingresado Por"])
	assert.Equal(t, "2026-10-14", h["Fecha"], "blank date defaults to today")
}

func TestSubmit_RejectsIncompleteInput(t *testing.T) {
	tests := []struct {
		name  string
		no    string
		lines []model.Line
	}{
		{name: "blank number", no: "  ", lines: []model.Line{line("V28", "1", "1")}},
		{name: "no lines", no: "F-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, wb := newTestService(t)
			sess := sessionWith(t, "", tt.lines...)

			_, err := svc.Submit(context.Background(), sess, Input{NoFactura: tt.no})
			assert.ErrorIs(t, err, common.ErrMissingField)
			assert.Empty(t, wb.Get(tabular.SheetHeaderFactura).Calls())
		})
	}
}

func TestSubmit_DuplicateNumber(t *testing.T) {
	svc, wb := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, sessionWith(t, "", line("V28", "1", "1")), Input{NoFactura: "F-1"})
	require.NoError(t, err)

	sess := sessionWith(t, "", line("V28", "4", "1"))
	_, err = svc.Submit(ctx, sess, Input{NoFactura: "F-1"})
	assert.ErrorIs(t, err, common.ErrDuplicateKey)
	assert.Len(t, sess.Lines(), 1)
	assert.Len(t, dataRows(wb, tabular.SheetDetalleFactura), 1)
}

func TestSubmit_DetailFailureLeavesHeader(t *testing.T) {
	svc, wb := newTestService(t)
	ctx := context.Background()
	detalle := wb.Get(tabular.SheetDetalleFactura)
	detalle.FailOn(tabular.OpAppend, common.Upstream("append", errors.New("503 backend error")))

	sess := sessionWith(t, "", line("V28", "2", "25"), line("B11", "1", "10"))
	_, err := svc.Submit(ctx, sess, Input{NoFactura: "F-300"})
	require.ErrorIs(t, err, common.ErrUpstream)

	assert.Len(t, dataRows(wb, tabular.SheetHeaderFactura), 1)
	assert.Empty(t, dataRows(wb, tabular.SheetDetalleFactura))
	assert.Len(t, sess.Lines(), 2, "lines are kept for a retry")

	// Without compensation the orphan header blocks a resubmit.
	detalle.FailOn(tabular.OpAppend, nil)
	_, err = svc.Submit(ctx, sess, Input{NoFactura: "F-300"})
	assert.ErrorIs(t, err, common.ErrDuplicateKey)
}

func TestSubmit_DetailFailureCompensates(t *testing.T) {
	svc, wb := newTestService(t, WithCompensation(true))
	ctx := context.Background()
	detalle := wb.Get(tabular.SheetDetalleFactura)
	detalle.FailOn(tabular.OpAppend, common.Upstream("append", errors.New("503 backend error")))

	sess := sessionWith(t, "", line("V28", "2", "25"))
	_, err := svc.Submit(ctx, sess, Input{NoFactura: "F-300"})
	require.ErrorIs(t, err, common.ErrUpstream)
	assert.Empty(t, dataRows(wb, tabular.SheetHeaderFactura))

	detalle.FailOn(tabular.OpAppend, nil)
	res, err := svc.Submit(ctx, sess, Input{NoFactura: "F-300"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Details)
	assert.Len(t, dataRows(wb, tabular.SheetHeaderFactura), 1)
}

func TestSubmit_Document(t *testing.T) {
	docs := blob.NewMemory()
	svc, wb := newTestService(t, WithDocuments(docs, "carpeta-facturas"))
	sess := sessionWith(t, "", line("V28", "1", "25"))

	res, err := svc.Submit(context.Background(), sess, Input{
		NoFactura: "F-400",
		Documento: &blob.Object{Name: "F-400.pdf", Data: []byte("%PDF-1.4\n%fake")},
	})
	require.NoError(t, err)

	uploads := docs.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "carpeta-facturas", uploads[0].Folder)
	assert.Equal(t, "application/pdf", uploads[0].MimeType)

	h := dataRows(wb, tabular.SheetHeaderFactura)[0]
	assert.Equal(t, res.Documento.WebViewLink, h["DocumentoFactura"])
	assert.NotEmpty(t, h["DocumentoFactura"])
}

func TestSubmit_DocumentErrors(t *testing.T) {
	doc := &blob.Object{Name: "F.pdf", Data: []byte("%PDF-1.4")}

	t.Run("no document store", func(t *testing.T) {
		svc, wb := newTestService(t)
		_, err := svc.Submit(context.Background(), sessionWith(t, "", line("V28", "1", "1")),
			Input{NoFactura: "F-1", Documento: doc})
		assert.ErrorIs(t, err, common.ErrMissingConfig)
		assert.Empty(t, wb.Get(tabular.SheetHeaderFactura).Calls())
	})

	t.Run("upload fails", func(t *testing.T) {
		docs := blob.NewMemory()
		docs.FailWith(common.Upstream("upload", errors.New("quota")))
		svc, wb := newTestService(t, WithDocuments(docs, ""))
		_, err := svc.Submit(context.Background(), sessionWith(t, "", line("V28", "1", "1")),
			Input{NoFactura: "F-1", Documento: doc})
		assert.ErrorIs(t, err, common.ErrUpstream)
		assert.Empty(t, wb.Get(tabular.SheetHeaderFactura).Calls())
	})
}

func TestListAndDeleteDetails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, sessionWith(t, "", line("V28", "2", "25"), line("B11", "1", "10")), Input{NoFactura: "F-1"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, sessionWith(t, "", line("C36", "3", "5")), Input{NoFactura: "F-2", Cliente: "Costco"})
	require.NoError(t, err)

	headers, err := svc.ListHeaders(ctx)
	require.NoError(t, err)
	require.Len(t, headers, 2)
	assert.Equal(t, "Costco", headers[1].Cliente)
	assert.True(t, decimal.RequireFromString("15").Equal(headers[1].Total))
	assert.False(t, headers[1].Procesado)

	all, err := svc.ListDetails(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	f1, err := svc.ListDetails(ctx, "F-1")
	require.NoError(t, err)
	require.Len(t, f1, 2)
	assert.True(t, decimal.RequireFromString("50").Equal(f1[0].Total))

	n, err := svc.DeleteDetails(ctx, "F-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err = svc.ListDetails(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "F-2", all[0].NoFactura)
}

type countingRef struct {
	snap  records.Snapshot
	loads int
}

func (r *countingRef) Snapshot(context.Context) (records.Snapshot, error) {
	r.loads++
	return r.snap, nil
}

func TestReferences(t *testing.T) {
	clientes := &countingRef{snap: records.FromRows([][]string{
		model.ClienteColumns,
		{"1", "Mercado Central", "", "", ""},
		{"2", "", "", "", ""},
		{"3", "Costco", "", "", ""},
	})}
	productos := &countingRef{snap: records.FromRows([][]string{
		{"Codigo_Esparrago", "Precio Factura Base"},
		{"V28", "$25.50"},
		{"B11", "caro"},
	})}
	svc, _ := newTestService(t, WithReferences(clientes, productos))
	sess := session.New("", time.Hour)
	ctx := context.Background()

	names, err := svc.Clientes(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mercado Central", "Costco"}, names)
	_, err = svc.Clientes(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 1, clientes.loads)

	codes, err := svc.Productos(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, []string{"V28", "B11"}, codes)

	price, err := svc.DefaultPrice(ctx, sess, "V28")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("25.50").Equal(price))
	assert.Equal(t, 1, productos.loads)

	_, err = svc.DefaultPrice(ctx, sess, "B11")
	assert.ErrorIs(t, err, common.ErrInvalidFormat)
	_, err = svc.DefaultPrice(ctx, sess, "ZZZ")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestReferences_Unconfigured(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Clientes(context.Background(), session.New("", 0))
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
