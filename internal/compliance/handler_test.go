package compliance_test

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
	"taxdesk/compliance/compliance-backend/internal/compliance"
)

func (f *fixture) router(session *auth.Session) *gin.Engine {
	gin.SetMode(gin.TestMode)
	authorizer := authz.NewAuthorizer(authz.ModeEnforced, authz.NewStore(f.db), zap.NewNop())

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		if session != nil {
			auth.WithSession(c, session)
		}
		c.Next()
	})
	compliance.NewHandler(f.service, zap.NewNop()).RegisterRoutes(api)
	compliance.NewAdminHandler(f.service, authorizer, f.store, zap.NewNop()).RegisterRoutes(api.Group("/admin"))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	code, _ := body["error"].(string)
	return code
}

func TestSubmitHandler(t *testing.T) {
	f := newFixture(t)
	_, customer := f.user(t, auth.RoleUser)
	r := f.router(customer)

	w := do(r, http.MethodPost, "/api/v1/compliance/requests", `{"request_type":"tax_document","document":"data:,scan"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created compliance.ComplianceRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, compliance.StatusPending, created.Status)

	w = do(r, http.MethodPost, "/api/v1/compliance/requests", `{"request_type":"tax_document","document":"data:,again"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "review_pending", errorCode(t, w))

	w = do(r, http.MethodPost, "/api/v1/compliance/requests", `{"request_type":"selfie","document":"data:,x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", errorCode(t, w))

	w = do(r, http.MethodPost, "/api/v1/compliance/requests", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/compliance/requests", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ID.String())

	w = do(f.router(nil), http.MethodPost, "/api/v1/compliance/requests", `{"request_type":"tax_document","document":"data:,x"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", errorCode(t, w))
}

func TestReviewHandlers(t *testing.T) {
	f := newFixture(t)
	_, customer := f.user(t, auth.RoleUser)
	req := f.submit(t, customer, compliance.RequestTypeIdentityDocument)
	approvePath := "/api/v1/admin/compliance/requests/" + req.ID.String() + "/approve"
	rejectPath := "/api/v1/admin/compliance/requests/" + req.ID.String() + "/reject"

	// Customers cannot review, and get the same error as a missing session.
	w := do(f.router(customer), http.MethodPost, approvePath, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", errorCode(t, w))

	staff := f.router(f.reviewer)

	w = do(staff, http.MethodPost, rejectPath, `{"reason":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(staff, http.MethodPost, approvePath, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(staff, http.MethodPost, rejectPath, `{"reason":"late"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_reviewed", errorCode(t, w))

	w = do(staff, http.MethodPost, "/api/v1/admin/compliance/requests/00000000-0000-0000-0000-000000000001/approve", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(staff, http.MethodPost, "/api/v1/admin/compliance/requests/nope/approve", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminQueueIsCachedUntilRevalidated(t *testing.T) {
	f := newFixture(t)
	_, customer := f.user(t, auth.RoleUser)
	staff := f.router(f.reviewer)
	path := "/api/v1/admin/compliance/requests?status=pending"

	total := func() int64 {
		w := do(staff, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var list compliance.RequestList
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		return list.Total
	}

	assert.Equal(t, int64(0), total())
	f.submit(t, customer, compliance.RequestTypeTaxDocument)
	assert.Equal(t, int64(1), total())

	w := do(staff, http.MethodGet, "/api/v1/admin/compliance/requests?status=archived", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(f.router(customer), http.MethodGet, path, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExportHandler(t *testing.T) {
	f := newFixture(t)
	_, customer := f.user(t, auth.RoleUser)
	req := f.submit(t, customer, compliance.RequestTypeTaxDocument)
	staff := f.router(f.reviewer)

	w := do(staff, http.MethodGet, "/api/v1/admin/compliance/export?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "compliance_requests_")
	assert.Contains(t, w.Body.String(), req.ID.String())

	w = do(staff, http.MethodGet, "/api/v1/admin/compliance/export?format=xlsx&status=pending", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))

	w = do(staff, http.MethodGet, "/api/v1/admin/compliance/export?format=pdf", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".pdf")
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))

	w = do(staff, http.MethodGet, "/api/v1/admin/compliance/export?format=doc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentLinkHandler(t *testing.T) {
	f := newFixture(t)
	_, customer := f.user(t, auth.RoleUser)
	req := f.submit(t, customer, compliance.RequestTypeTaxDocument)

	w := do(f.router(f.reviewer), http.MethodGet, "/api/v1/admin/compliance/requests/"+req.ID.String()+"/document", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "data:application/pdf;base64")
}
