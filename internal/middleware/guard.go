package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicdesk/internal/guard"
	"clinicdesk/internal/models"
	"clinicdesk/internal/session"
)

const sessionKey = "current_session"

// Guard performs the route guard's decision for screens that declare role.
func Guard(g *guard.Guard, role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		follow(c, g.Authorize(c.Request.Context(), role))
	}
}

// PatientGuard protects screens scoped to the patient named by the param path segment.
func PatientGuard(g *guard.Guard, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		follow(c, g.AuthorizePatient(c.Request.Context(), c.Param(param)))
	}
}

func follow(c *gin.Context, d guard.Decision) {
	if !d.Allowed() {
		c.Redirect(http.StatusFound, d.Redirect)
		c.Abort()
		return
	}
	c.Next()
}

// Session exposes the in-memory session to handlers. It never redirects; guarding is
// Guard's job.
func Session(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess, ok := m.Current(); ok {
			c.Set(sessionKey, sess)
		}
		c.Next()
	}
}

func CurrentSession(c *gin.Context) (models.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return models.Session{}, false
	}
	sess, ok := v.(models.Session)
	return sess, ok
}
