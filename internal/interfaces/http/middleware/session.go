// internal/interfaces/http/middleware/session.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/session"
)

const sessionKey = "session"

// Session resolves the shopper session from its cookie, starting a new
// one when the cookie is missing or stale. The cookie is written on every
// request so its lifetime slides with the server-side session.
func Session(manager *session.Manager, cfg config.SessionConfig, secure bool) gin.HandlerFunc {
	maxAge := int(cfg.TTL.Seconds())

	return func(c *gin.Context) {
		id, _ := c.Cookie(cfg.CookieName)

		s, _ := manager.GetOrCreate(id)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.CookieName, s.ID, maxAge, "/", "", secure, true)

		c.Set(sessionKey, s)
		c.Next()
	}
}

// CurrentSession returns the session attached by Session
func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}
