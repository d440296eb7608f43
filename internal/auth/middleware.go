package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taxdesk/compliance/compliance-backend/internal/apperr"
	"taxdesk/compliance/compliance-backend/internal/httpx"
)

const sessionContextKey = "auth.session"

// RequireSession validates the bearer token or session cookie and stores the
// session on the gin context.
func RequireSession(validator Validator, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" && cookieName != "" {
			token, _ = c.Cookie(cookieName)
		}

		session, err := validator.Validate(c.Request.Context(), token)
		if err != nil {
			httpx.WriteError(c, logger, err)
			c.Abort()
			return
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// SessionFrom returns the session stored by RequireSession
func SessionFrom(c *gin.Context) (*Session, error) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, apperr.ErrUnauthorized
	}
	session, ok := v.(*Session)
	if !ok || session == nil {
		return nil, apperr.ErrUnauthorized
	}
	return session, nil
}

// WithSession stores a session directly. Used by tests and internal routing.
func WithSession(c *gin.Context, session *Session) {
	c.Set(sessionContextKey, session)
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
