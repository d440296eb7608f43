package audit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"taxdesk/compliance/compliance-backend/internal/audit"
	"taxdesk/compliance/compliance-backend/internal/auth"
	"taxdesk/compliance/compliance-backend/internal/authz"
	"taxdesk/compliance/compliance-backend/internal/testutil"
)

func TestListForResource(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	repo := audit.NewRepository(db)
	authorizer := authz.NewAuthorizer(authz.ModeEnforced, authz.NewStore(db), zap.NewNop())

	target := uuid.New()
	actor := uuid.New()
	for _, action := range []audit.Action{audit.ActionUserSuspend, audit.ActionUserUnsuspend} {
		require.NoError(t, repo.Append(context.Background(), &audit.Log{
			ActorUserID: actor,
			Action:      action,
			Resource:    audit.ResourceUser,
			ResourceID:  target,
			Details:     datatypes.JSONMap{"reason": "test"},
		}))
	}
	require.NoError(t, repo.Append(context.Background(), &audit.Log{
		ActorUserID: actor,
		Action:      audit.ActionUserDelete,
		Resource:    audit.ResourceUser,
		ResourceID:  uuid.New(),
	}))

	router := func(role auth.Role) *gin.Engine {
		r := gin.New()
		admin := r.Group("/api/v1/admin")
		admin.Use(func(c *gin.Context) {
			auth.WithSession(c, &auth.Session{UserID: actor, Role: role})
			c.Next()
		})
		audit.NewHandler(repo, authorizer, zap.NewNop()).RegisterRoutes(admin)
		return r
	}
	get := func(r *gin.Engine, query string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit?"+query, nil))
		return w
	}

	w := get(router(auth.RoleStaff), "resource=user&resource_id="+target.String())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Logs []audit.Log `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Logs, 2)
	assert.Equal(t, audit.ActionUserSuspend, body.Logs[0].Action)
	assert.Equal(t, audit.ActionUserUnsuspend, body.Logs[1].Action)

	assert.Equal(t, http.StatusBadRequest, get(router(auth.RoleStaff), "resource=invoice&resource_id="+target.String()).Code)
	assert.Equal(t, http.StatusBadRequest, get(router(auth.RoleStaff), "resource=user&resource_id=x").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router(auth.RoleUser), "resource=user&resource_id="+target.String()).Code)
}
