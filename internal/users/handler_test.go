package users_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taxdesk/compliance/compliance-backend/internal/auth"
	"taxdesk/compliance/compliance-backend/internal/authz"
	"taxdesk/compliance/compliance-backend/internal/users"
)

func newRouter(f *fixture, session *auth.Session) *gin.Engine {
	gin.SetMode(gin.TestMode)
	authorizer := authz.NewAuthorizer(authz.ModeEnforced, authz.NewStore(f.db), zap.NewNop())

	r := gin.New()
	api := r.Group("/api/v1/admin")
	api.Use(func(c *gin.Context) {
		if session != nil {
			auth.WithSession(c, session)
		}
		c.Next()
	})
	users.NewHandler(f.service, authorizer, zap.NewNop()).RegisterRoutes(api)
	return r
}

func TestHandlerListRequiresStaff(t *testing.T) {
	f := newFixture(t)
	_, staff := f.user(t, "staff@example.com", auth.RoleStaff)
	_, customer := f.user(t, "customer@example.com", auth.RoleUser)

	w := httptest.NewRecorder()
	newRouter(f, staff).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/users?role=user", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp users.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Total)

	w = httptest.NewRecorder()
	newRouter(f, customer).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"unauthorized"`)

	w = httptest.NewRecorder()
	newRouter(f, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlerChangeRole(t *testing.T) {
	f := newFixture(t)
	_, admin := f.user(t, "admin@example.com", auth.RoleAdmin)
	target, _ := f.user(t, "customer@example.com", auth.RoleUser)
	router := newRouter(f, admin)

	for _, tt := range []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"ok", "/api/v1/admin/users/" + target.ID.String() + "/role", `{"role":"staff"}`, http.StatusOK},
		{"bad role", "/api/v1/admin/users/" + target.ID.String() + "/role", `{"role":"root"}`, http.StatusBadRequest},
		{"missing body", "/api/v1/admin/users/" + target.ID.String() + "/role", `{}`, http.StatusBadRequest},
		{"bad id", "/api/v1/admin/users/not-a-uuid/role", `{"role":"staff"}`, http.StatusBadRequest},
		{"unknown id", "/api/v1/admin/users/00000000-0000-0000-0000-000000000001/role", `{"role":"staff"}`, http.StatusNotFound},
	} {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestHandlerDeleteRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	_, staff := f.user(t, "staff@example.com", auth.RoleStaff)
	target, _ := f.user(t, "customer@example.com", auth.RoleUser)

	w := httptest.NewRecorder()
	newRouter(f, staff).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/"+target.ID.String(), nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
