package compliance

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taxdesk/compliance/compliance-backend/internal/auth"
)

// SuspendedRoutes is what a suspended customer can still reach: the settings
// page and everything under compliance, so a new document can be submitted.
var SuspendedRoutes = []string{"/api/v1/settings", "/api/v1/compliance/"}

// SuspensionGate returns 403 compliance_suspended for suspended users on any
// path outside allowed. An entry ending in "/" matches as a prefix, any other
// entry only as the exact path. It does nothing when disabled, leaving the
// settings banner as the only effect of the flag.
func SuspensionGate(enabled bool, allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		session, err := auth.SessionFrom(c)
		if err != nil || !session.ComplianceSuspended {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		for _, route := range allowed {
			if path == route || (strings.HasSuffix(route, "/") && strings.HasPrefix(path, route)) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "compliance_suspended",
			"message": "your account is restricted until a compliance document is approved",
		})
	}
}
