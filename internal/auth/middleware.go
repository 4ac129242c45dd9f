package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"order-desk/internal/logging"
)

// ContextKeySession holds the *Session of an authenticated request
const ContextKeySession = "operator_session"

// Middleware requires a session token from the Authorization header or the
// session cookie.
func Middleware(sessions *SessionManager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c, cookieName)
		if token == "" {
			abort(c, ErrAuthenticationRequired)
			return
		}

		session, err := sessions.Authenticate(c.Request.Context(), token)
		if err != nil {
			var authErr AuthError
			if !errors.As(err, &authErr) {
				logging.FromContext(c.Request.Context()).WithComponent("auth").Error("session check failed", "error", err)
			}
			abort(c, ErrAuthenticationRequired)
			return
		}

		c.Set(ContextKeySession, session)
		c.Next()
	}
}

// TokenFromRequest reads a Bearer token, falling back to the session cookie
func TokenFromRequest(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

// GetSession extracts the session set by Middleware
func GetSession(c *gin.Context) *Session {
	if v, exists := c.Get(ContextKeySession); exists {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	return nil
}

func abort(c *gin.Context, err AuthError) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   err.Code,
		"message": err.Message,
	})
}
