package api

import (
	"net/http"

	"github.com/Veraticus/esparrago/internal/session"
	"github.com/gin-gonic/gin"
)

type createSessionRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
}

type unlockRequest struct {
	Password string `json:"password" binding:"required"`
}

func (s *Server) createSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	sess := s.app.Sessions.Create(req.Email)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, sess.ID, 0, "/", "", false, true)
	c.JSON(http.StatusCreated, gin.H{"id": sess.ID, "ingresado_por": sess.IngresadoPor()})
}

func (s *Server) endSession(c *gin.Context) {
	s.app.Sessions.End(currentSession(c).ID)
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (s *Server) unlock(c *gin.Context) {
	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := currentSession(c).Unlock(s.app.Gate, req.Password); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"granted": true})
}

// withSession resolves the caller's session from the cookie or header.
func (s *Server) withSession(c *gin.Context) {
	id, err := c.Cookie(SessionCookie)
	if err != nil || id == "" {
		id = c.GetHeader(SessionHeader)
	}
	if id == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Inicia una sesión primero."})
		return
	}
	sess, err := s.app.Sessions.Get(id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "La sesión expiró. Inicia una nueva."})
		return
	}
	c.Set(sessionKey, sess)
	c.Next()
}

// requireAccess lets through sessions that passed the password gate.
func (s *Server) requireAccess(c *gin.Context) {
	if err := currentSession(c).RequireAccess(); err != nil {
		s.fail(c, err)
		return
	}
	c.Next()
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}
