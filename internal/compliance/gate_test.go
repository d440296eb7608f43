package compliance

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"taxdesk/compliance/compliance-backend/internal/auth"
)

func TestSuspensionGate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	build := func(enabled, suspended bool) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			auth.WithSession(c, &auth.Session{UserID: uuid.New(), Role: auth.RoleUser, ComplianceSuspended: suspended})
			c.Next()
		}, SuspensionGate(enabled, SuspendedRoutes...))
		ok := func(c *gin.Context) { c.Status(http.StatusOK) }
		r.GET("/api/v1/settings", ok)
		r.PUT("/api/v1/settings/profile", ok)
		r.GET("/api/v1/settingsx", ok)
		r.POST("/api/v1/compliance/requests", ok)
		r.GET("/api/v1/compliance/requests", ok)
		r.GET("/api/v1/invoices", ok)
		return r
	}

	for _, tt := range []struct {
		name      string
		enabled   bool
		suspended bool
		method    string
		path      string
		status    int
	}{
		{"disabled lets suspended through", false, true, http.MethodGet, "/api/v1/invoices", http.StatusOK},
		{"enabled blocks suspended", true, true, http.MethodGet, "/api/v1/invoices", http.StatusForbidden},
		{"enabled allows settings", true, true, http.MethodGet, "/api/v1/settings", http.StatusOK},
		{"enabled allows resubmission", true, true, http.MethodPost, "/api/v1/compliance/requests", http.StatusOK},
		{"enabled allows own history", true, true, http.MethodGet, "/api/v1/compliance/requests", http.StatusOK},
		{"enabled blocks profile edits", true, true, http.MethodPut, "/api/v1/settings/profile", http.StatusForbidden},
		{"enabled matches settings exactly", true, true, http.MethodGet, "/api/v1/settingsx", http.StatusForbidden},
		{"disabled allows profile edits", false, true, http.MethodPut, "/api/v1/settings/profile", http.StatusOK},
		{"enabled ignores unsuspended", true, false, http.MethodGet, "/api/v1/invoices", http.StatusOK},
	} {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			build(tt.enabled, tt.suspended).ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), "compliance_suspended")
			}
		})
	}
}
