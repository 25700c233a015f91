package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/Veraticus/esparrago/internal/maestros"
	"github.com/Veraticus/esparrago/internal/records"
	"github.com/gin-gonic/gin"
)

type entityResponse struct {
	Entity  string           `json:"entity"`
	Key     string           `json:"key"`
	Columns []string         `json:"columns"`
	Records []records.Record `json:"records"`
}

func (s *Server) manager(c *gin.Context) (maestros.Manager, bool) {
	m, err := s.app.Maestros.Manager(c.Param("entity"))
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return m, true
}

func (s *Server) listEntity(c *gin.Context) {
	m, ok := s.manager(c)
	if !ok {
		return
	}
	snap, err := m.Snapshot(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	rows := snap.Records
	if rows == nil {
		rows = []records.Record{}
	}
	c.JSON(http.StatusOK, entityResponse{
		Entity:  m.Name(),
		Key:     m.KeyColumn(),
		Columns: m.Columns(),
		Records: rows,
	})
}

func (s *Server) addEntity(c *gin.Context) {
	m, ok := s.manager(c)
	if !ok {
		return
	}
	var form records.Record
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err)
		return
	}
	if err := m.AddForm(c.Request.Context(), form); err != nil {
		s.fail(c, err)
		return
	}
	currentSession(c).Invalidate(m.Sheet())
	c.JSON(http.StatusCreated, gin.H{"key": form[m.KeyColumn()]})
}

func (s *Server) editEntity(c *gin.Context) {
	m, ok := s.manager(c)
	if !ok {
		return
	}
	var form records.Record
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err)
		return
	}
	if err := m.EditForm(c.Request.Context(), c.Param("key"), form); err != nil {
		s.fail(c, err)
		return
	}
	currentSession(c).Invalidate(m.Sheet())
	c.JSON(http.StatusOK, gin.H{"key": c.Param("key")})
}

// deleteEntity needs ?confirm=delete.
func (s *Server) deleteEntity(c *gin.Context) {
	m, ok := s.manager(c)
	if !ok {
		return
	}
	if err := m.Delete(c.Request.Context(), c.Param("key"), c.Query("confirm")); err != nil {
		s.fail(c, err)
		return
	}
	currentSession(c).Invalidate(m.Sheet())
	c.Status(http.StatusNoContent)
}

func (s *Server) uploadLogo(c *gin.Context) {
	fh, err := c.FormFile("logo")
	if err != nil {
		badRequest(c, err)
		return
	}
	data, err := readUpload(fh)
	if err != nil {
		badRequest(c, err)
		return
	}
	url, err := s.app.Maestros.Clientes.UploadLogo(c.Request.Context(), maestros.Logo{Name: fh.Filename, Data: data})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"icono": url})
}

var errUploadTooLarge = errors.New("upload exceeds the size limit")

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadMemory+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxUploadMemory {
		return nil, errUploadTooLarge
	}
	return data, nil
}
