package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/esparrago/internal/blob"
	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/facturas"
	"github.com/Veraticus/esparrago/internal/model"
	"github.com/Veraticus/esparrago/internal/reports"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	dateLayout = "2006-01-02"
	xlsxMime   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// lineRequest adds one product line. A missing price takes the product's
// base invoice price.
type lineRequest struct {
	Precio   *decimal.Decimal `json:"precio"`
	Codigo   string           `json:"codigo" binding:"required"`
	Cantidad decimal.Decimal  `json:"cantidad"`
}

type linesResponse struct {
	Lines []model.Line    `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

type facturaResponse struct {
	Header    model.HeaderFactura `json:"header"`
	Documento string              `json:"documento,omitempty"`
	Detalles  int                 `json:"detalles"`
}

func (s *Server) lines(c *gin.Context, status int) {
	sess := currentSession(c)
	lines := sess.Lines()
	if lines == nil {
		lines = []model.Line{}
	}
	c.JSON(status, linesResponse{Lines: lines, Total: sess.RunningTotal()})
}

func (s *Server) listLines(c *gin.Context) {
	s.lines(c, http.StatusOK)
}

func (s *Server) addLine(c *gin.Context) {
	var req lineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess := currentSession(c)

	var precio decimal.Decimal
	if req.Precio != nil {
		precio = *req.Precio
	} else {
		base, err := s.app.Facturas.DefaultPrice(c.Request.Context(), sess, req.Codigo)
		if err != nil && !missingPrice(err) {
			s.fail(c, err)
			return
		}
		if err != nil {
			s.logger.Warn("No base price, using zero", "codigo", req.Codigo, "error", err)
		}
		precio = base
	}

	if err := sess.AddLine(model.Line{Codigo: req.Codigo, Cantidad: req.Cantidad, Precio: precio}); err != nil {
		s.fail(c, err)
		return
	}
	s.lines(c, http.StatusCreated)
}

// missingPrice reports lookups that fall back to a zero price: an unknown
// product or an unreadable Precio Factura Base.
func missingPrice(err error) bool {
	var fe *common.FieldError
	return errors.Is(err, common.ErrNotFound) || errors.As(err, &fe)
}

// removeLine takes the 1-based position shown to the operator.
func (s *Server) removeLine(c *gin.Context) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		s.fail(c, &common.FieldError{Kind: common.ErrInvalidFormat, Field: "index", Detail: c.Param("index")})
		return
	}
	if err := currentSession(c).RemoveLine(i - 1); err != nil {
		s.fail(c, err)
		return
	}
	s.lines(c, http.StatusOK)
}

func (s *Server) references(c *gin.Context) {
	ctx := c.Request.Context()
	sess := currentSession(c)
	clientes, err := s.app.Facturas.Clientes(ctx, sess)
	if err != nil {
		s.fail(c, err)
		return
	}
	productos, err := s.app.Facturas.Productos(ctx, sess)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clientes": clientes, "productos": productos})
}

// submitFactura reads a multipart or urlencoded form: no_factura, cliente,
// fecha (YYYY-MM-DD), observaciones and an optional documento file.
func (s *Server) submitFactura(c *gin.Context) {
	in := facturas.Input{
		NoFactura:     strings.TrimSpace(c.PostForm("no_factura")),
		Cliente:       strings.TrimSpace(c.PostForm("cliente")),
		Observaciones: c.PostForm("observaciones"),
	}
	if raw := strings.TrimSpace(c.PostForm("fecha")); raw != "" {
		fecha, err := time.Parse(dateLayout, raw)
		if err != nil {
			s.fail(c, &common.FieldError{Kind: common.ErrInvalidFormat, Field: "Fecha", Detail: raw})
			return
		}
		in.Fecha = fecha
	}

	fh, err := c.FormFile("documento")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		badRequest(c, err)
		return
	default:
		data, err := readUpload(fh)
		if err != nil {
			badRequest(c, err)
			return
		}
		obj := &blob.Object{Name: fh.Filename, Data: data}
		if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
			obj.MimeType = ct
		}
		in.Documento = obj
	}

	res, err := s.app.Facturas.Submit(c.Request.Context(), currentSession(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, facturaResponse{
		Header:    res.Header,
		Documento: res.Documento.WebViewLink,
		Detalles:  res.Details,
	})
}

func (s *Server) listFacturas(c *gin.Context) {
	headers, err := s.app.Facturas.ListHeaders(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if headers == nil {
		headers = []model.HeaderFactura{}
	}
	c.JSON(http.StatusOK, gin.H{"facturas": headers})
}

// listDetalles filters by ?no=; without it every detail row is returned.
func (s *Server) listDetalles(c *gin.Context) {
	details, err := s.app.Facturas.ListDetails(c.Request.Context(), c.Query("no"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if details == nil {
		details = []model.DetalleFactura{}
	}
	c.JSON(http.StatusOK, gin.H{"detalles": details})
}

func (s *Server) invoiceReport(c *gin.Context) {
	headers, err := s.app.Facturas.ListHeaders(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	report := reports.InvoiceSummary(headers)
	if c.Query("format") == "xlsx" {
		s.xlsx(c, "facturas.xlsx", &report, nil)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) productReport(c *gin.Context) {
	details, err := s.app.Facturas.ListDetails(c.Request.Context(), c.Query("no"))
	if err != nil {
		s.fail(c, err)
		return
	}
	report := reports.ProductSummary(details)
	if c.Query("format") == "xlsx" {
		s.xlsx(c, "productos.xlsx", nil, &report)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) xlsx(c *gin.Context, name string, inv *reports.InvoiceReport, prod *reports.ProductReport) {
	var buf bytes.Buffer
	if err := reports.WriteXLSX(&buf, inv, prod); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxMime, buf.Bytes())
}
