package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionCookie issues the session cookie that keys the last-diagnosis cache.
// An existing cookie is kept when it holds a valid UUID; anything else is replaced.
func SessionCookie(name string, ttl time.Duration, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(name)
		if err == nil {
			_, err = uuid.Parse(sessionID)
		}
		if err != nil {
			sessionID = uuid.New().String()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     name,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   int(ttl.Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		c.Set(SessionIDKey, sessionID)
		c.Next()
	}
}

// SessionID returns the session id set by SessionCookie, or "".
func SessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}
