package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/esparrago/internal/blob"
	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/config"
	"github.com/Veraticus/esparrago/internal/lock"
	"github.com/Veraticus/esparrago/internal/records"
	"github.com/Veraticus/esparrago/internal/service"
	"github.com/Veraticus/esparrago/internal/session"
	"github.com/Veraticus/esparrago/internal/tabular"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *service.App, *blob.Memory) {
	t.Helper()
	docs := blob.NewMemory()
	app := service.Assemble(
		&config.App{Password: "secreto", CacheTTL: time.Hour},
		service.Parts{Backend: service.NewMemoryBackend(), Docs: docs, Locker: lock.NewLocal()},
		nil,
	)
	_, err := app.Migrate(context.Background())
	require.NoError(t, err)
	return New(app, nil), app, docs
}

func unlocked(t *testing.T, app *service.App) *session.Session {
	t.Helper()
	sess := app.Sessions.Create("")
	require.NoError(t, sess.Unlock(app.Gate, "secreto"))
	return sess
}

func do(t *testing.T, s *Server, method, path, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestSession_CookieAndUnlock(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{"email":"ana@campo.mx"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ana@campo.mx", decode(t, w)["ingresado_por"])

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	withCookie := func(method, path, body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
		r.AddCookie(cookies[0])
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, r)
		return rec
	}

	w = withCookie(http.MethodGet, "/api/maestros/clientes", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Acceso denegado.", decode(t, w)["error"])

	assert.Equal(t, http.StatusUnauthorized, withCookie(http.MethodPost, "/api/session/unlock", `{"password":"otra"}`).Code)
	assert.Equal(t, http.StatusBadRequest, withCookie(http.MethodPost, "/api/session/unlock", `{}`).Code)
	assert.Equal(t, http.StatusOK, withCookie(http.MethodPost, "/api/session/unlock", `{"password":"secreto"}`).Code)
	assert.Equal(t, http.StatusOK, withCookie(http.MethodGet, "/api/maestros/clientes", "").Code)

	assert.Equal(t, http.StatusNoContent, withCookie(http.MethodDelete, "/api/session", "").Code)
	assert.Equal(t, http.StatusUnauthorized, withCookie(http.MethodGet, "/api/facturas/lines", "").Code)
}

func TestSession_Required(t *testing.T) {
	s, _, _ := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/api/facturas/lines", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/api/facturas/lines", "caducada", nil).Code)

	w := do(t, s, http.MethodPost, "/api/session", "", map[string]string{"email": "no es correo"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/session", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id, _ := decode(t, w)["id"].(string)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/facturas/lines", id, nil).Code)
}

func TestMaestros_CRUD(t *testing.T) {
	s, app, _ := newTestServer(t)
	id := unlocked(t, app).ID
	path := "/api/maestros/comisiones"

	assert.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, path, id, records.Record{"Concepto": "Flete", "Porcentaje": "5"}).Code)
	assert.Equal(t, http.StatusConflict, do(t, s, http.MethodPost, path, id, records.Record{"Concepto": "Flete", "Porcentaje": "7"}).Code)

	w := do(t, s, http.MethodPost, path, id, records.Record{"Concepto": "Broker", "Porcentaje": "doce"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "El campo 'Porcentaje' no es válido.", decode(t, w)["error"])

	w = do(t, s, http.MethodGet, path, id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list entityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, "Concepto", list.Key)
	assert.Equal(t, []records.Record{{"Concepto": "Flete", "Porcentaje": "5.00%"}}, list.Records)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPut, path+"/Flete", id, records.Record{"Concepto": "Flete", "Porcentaje": "6"}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPut, path+"/Nada", id, records.Record{"Concepto": "Nada", "Porcentaje": "6"}).Code)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodDelete, path+"/Flete", id, nil).Code)
	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, path+"/Flete?confirm=delete", id, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, path+"/Flete?confirm=delete", id, nil).Code)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/maestros/vacas", id, nil).Code)
}

func TestMaestros_EditRefreshesReferences(t *testing.T) {
	s, app, _ := newTestServer(t)
	id := unlocked(t, app).ID

	assert.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/maestros/clientes", id, records.Record{"ID": "1", "Nombre Cliente": "Mercado Norte"}).Code)
	w := do(t, s, http.MethodGet, "/api/facturas/referencias", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"Mercado Norte"}, decode(t, w)["clientes"])

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPut, "/api/maestros/clientes/1", id, records.Record{"Nombre Cliente": "Mercado Sur"}).Code)
	w = do(t, s, http.MethodGet, "/api/facturas/referencias", id, nil)
	assert.Equal(t, []any{"Mercado Sur"}, decode(t, w)["clientes"])
}

func addProducto(t *testing.T, app *service.App) {
	t.Helper()
	require.NoError(t, app.Maestros.Productos.AddForm(context.Background(), records.Record{
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
}

func multipartFactura(t *testing.T, fields map[string]string, doc []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if doc != nil {
		fw, err := mw.CreateFormFile("documento", "factura.pdf")
		require.NoError(t, err)
		_, err = fw.Write(doc)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestFacturas_Flow(t *testing.T) {
	s, app, docs := newTestServer(t)
	addProducto(t, app)
	id := app.Sessions.Create("ana@campo.mx").ID

	w := do(t, s, http.MethodPost, "/api/facturas/lines", id, map[string]any{"codigo": "V28", "cantidad": "2"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "50", decode(t, w)["total"])

	w = do(t, s, http.MethodPost, "/api/facturas/lines", id, map[string]any{"codigo": "V28", "cantidad": 1, "precio": "30"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "80", decode(t, w)["total"])

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, s, http.MethodPost, "/api/facturas/lines", id, map[string]any{"codigo": "V28", "cantidad": "0"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/facturas/lines", id, map[string]any{"cantidad": "1"}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/api/facturas/lines/9", id, nil).Code)

	body, contentType := multipartFactura(t, map[string]string{
		"no_factura": "F-10",
		"cliente":    "Mercado Central",
		"fecha":      "2026-10-12",
	}, []byte("%PDF-1.4 factura"))
	req := httptest.NewRequest(http.MethodPost, "/api/facturas", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(SessionHeader, id)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res facturaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Detalles)
	assert.Equal(t, "F-10", res.Header.NoFactura)
	assert.Equal(t, 42, res.Header.Semana)
	assert.Equal(t, "ana@campo.mx", res.Header.IngresadoPor)
	assert.Equal(t, "https://example.invalid/view/mem-1", res.Documento)
	require.Len(t, docs.Uploads(), 1)
	assert.Equal(t, "application/pdf", docs.Uploads()[0].MimeType)

	w = do(t, s, http.MethodGet, "/api/facturas/lines", id, nil)
	assert.Equal(t, []any{}, decode(t, w)["lines"])

	w = do(t, s, http.MethodGet, "/api/facturas/detalles?no=F-10", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["detalles"], 2)

	w = do(t, s, http.MethodGet, "/api/reportes/facturas", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode(t, w)
	assert.Equal(t, "80", report["total"])
	assert.EqualValues(t, 1, report["facturas"])

	w = do(t, s, http.MethodGet, "/api/reportes/productos", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", decode(t, w)["cantidad"])

	w = do(t, s, http.MethodGet, "/api/reportes/facturas?format=xlsx", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxMime, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "facturas.xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestFacturas_LineWithoutBasePrice(t *testing.T) {
	s, app, _ := newTestServer(t)
	ctx := context.Background()
	tbl, err := app.Table(ctx, tabular.SheetProductos)
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow(ctx, []string{"B11", "Espárrago blanco", "Fresh 28", "Segundas", "11 Lbs", "", "", "", "", "", "1"}))
	require.NoError(t, tbl.AppendRow(ctx, []string{"N28", "Espárrago morado", "Fresh 28", "Primeras", "28 Lbs", "", "", "NaN", "", "", "1"}))
	id := app.Sessions.Create("").ID

	tests := []struct {
		name   string
		codigo string
	}{
		{name: "blank base price", codigo: "B11"},
		{name: "non-finite base price", codigo: "N28"},
		{name: "unknown product", codigo: "ZZ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/facturas/lines", id, map[string]any{"codigo": tt.codigo, "cantidad": "3"})
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			assert.Equal(t, "0", decode(t, w)["total"])
		})
	}

	w := do(t, s, http.MethodPost, "/api/facturas/lines", id, map[string]any{"codigo": "B11", "cantidad": "2", "precio": "10"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "20", decode(t, w)["total"])
}

func TestFacturas_SubmitErrors(t *testing.T) {
	s, app, _ := newTestServer(t)
	addProducto(t, app)
	id := app.Sessions.Create("").ID

	submit := func(fields map[string]string) *httptest.ResponseRecorder {
		body, contentType := multipartFactura(t, fields, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/facturas", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set(SessionHeader, id)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		return w
	}

	w := submit(map[string]string{"no_factura": "F-1"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "no lines yet")

	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/facturas/lines", id, map[string]any{"codigo": "V28", "cantidad": "1"}).Code)

	w = submit(map[string]string{"cliente": "Mercado"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "El campo 'No. Factura' es obligatorio.", decode(t, w)["error"])

	assert.Equal(t, http.StatusUnprocessableEntity, submit(map[string]string{"no_factura": "F-1", "fecha": "12/10/2026"}).Code)

	require.Equal(t, http.StatusCreated, submit(map[string]string{"no_factura": "F-1"}).Code)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/facturas/lines", id, map[string]any{"codigo": "V28", "cantidad": "1"}).Code)
	assert.Equal(t, http.StatusConflict, submit(map[string]string{"no_factura": "F-1"}).Code)

	w = do(t, s, http.MethodGet, "/api/facturas", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["facturas"], 1)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", common.ErrDuplicateKey), http.StatusConflict},
		{common.ErrNotFound, http.StatusNotFound},
		{&common.FieldError{Kind: common.ErrInvalidFormat, Field: "Precio"}, http.StatusUnprocessableEntity},
		{&common.FieldError{Kind: common.ErrMissingField, Field: "Nombre"}, http.StatusUnprocessableEntity},
		{common.ErrAccessDenied, http.StatusUnauthorized},
		{common.ErrNotConfirmed, http.StatusBadRequest},
		{common.Upstream("append", errors.New("quota")), http.StatusBadGateway},
		{common.ErrMissingConfig, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
