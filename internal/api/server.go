// Package api serves the master-data and invoice operations over HTTP.
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/service"
	"github.com/gin-gonic/gin"
)

// Session transport. Browsers get the cookie; scripts may send the header.
const (
	SessionCookie = "esparrago_session"
	SessionHeader = "X-Session-ID"
)

const (
	sessionKey      = "session"
	maxUploadMemory = 10 << 20
	shutdownTimeout = 10 * time.Second
)

// Server exposes an assembled application.
type Server struct {
	app    *service.App
	logger *slog.Logger
	router *gin.Engine
	tls    *tls.Config
}

// New builds the router.
func New(app *service.App, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{app: app, logger: logger}

	r := gin.New()
	r.MaxMultipartMemory = maxUploadMemory
	r.Use(gin.Recovery(), requestLogger(logger))

	api := r.Group("/api")
	api.POST("/session", s.createSession)

	withSession := api.Group("", s.withSession)
	{
		withSession.DELETE("/session", s.endSession)
		withSession.POST("/session/unlock", s.unlock)
	}

	maestros := withSession.Group("/maestros", s.requireAccess)
	{
		maestros.GET("/:entity", s.listEntity)
		maestros.POST("/:entity", s.addEntity)
		maestros.PUT("/:entity/:key", s.editEntity)
		maestros.DELETE("/:entity/:key", s.deleteEntity)
	}
	withSession.POST("/clientes/logo", s.requireAccess, s.uploadLogo)

	facturas := withSession.Group("/facturas")
	{
		facturas.GET("", s.listFacturas)
		facturas.POST("", s.submitFactura)
		facturas.GET("/referencias", s.references)
		facturas.GET("/detalles", s.listDetalles)
		facturas.GET("/lines", s.listLines)
		facturas.POST("/lines", s.addLine)
		facturas.DELETE("/lines/:index", s.removeLine)
	}

	reportes := withSession.Group("/reportes")
	{
		reportes.GET("/facturas", s.invoiceReport)
		reportes.GET("/productos", s.productReport)
	}

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// UseTLS makes Run serve HTTPS with cert.
func (s *Server) UseTLS(cert tls.Certificate) {
	s.tls = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         s.tls,
	}

	errCh := make(chan error, 1)
	go func() {
		if s.tls != nil {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("API listening", "addr", addr, "tls", s.tls != nil)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidFormat), errors.Is(err, common.ErrMissingField):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrAccessDenied):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrNotConfirmed):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, common.ErrMissingConfig):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "route", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": common.UserMessage(err)})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Solicitud no válida.", "detail": err.Error()})
}
