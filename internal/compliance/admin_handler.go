package compliance

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"taxdesk/compliance/compliance-backend/internal/apperr"
	"taxdesk/compliance/compliance-backend/internal/audit"
	"taxdesk/compliance/compliance-backend/internal/auth"
	"taxdesk/compliance/compliance-backend/internal/authz"
	"taxdesk/compliance/compliance-backend/internal/exports"
	"taxdesk/compliance/compliance-backend/internal/httpx"
	"taxdesk/compliance/compliance-backend/pkg/cache"
)

const exportPageSize = 500

// AdminHandler serves the review queue for the admin console
type AdminHandler struct {
	service    *Service
	authorizer *authz.Authorizer
	cache      cache.Store
	logger     *zap.Logger
}

func NewAdminHandler(service *Service, authorizer *authz.Authorizer, store cache.Store, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		service:    service,
		authorizer: authorizer,
		cache:      store,
		logger:     logger,
	}
}

// RegisterRoutes registers review queue routes
func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	view := h.authorizer.Require(authz.PermComplianceView)

	compliance := router.Group("/compliance")
	{
		compliance.GET("/requests", view, h.listRequests)
		compliance.GET("/requests/:id", view, h.getRequest)
		compliance.GET("/requests/:id/document", view, h.documentLink)
		compliance.POST("/requests/:id/approve", h.approve)
		compliance.POST("/requests/:id/reject", h.reject)
		compliance.GET("/export", view, h.export)
	}
}

// listRequests handles GET /api/v1/admin/compliance/requests
func (h *AdminHandler) listRequests(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	filter.Page = httpx.IntQuery(c, "page", 1)
	filter.PageSize = httpx.IntQuery(c, "page_size", 50)

	key := cache.AdminQueueKey + "?" + c.Request.URL.RawQuery
	list, err := cache.Remember(c.Request.Context(), h.cache, h.logger, key, func() (*RequestList, error) {
		return h.service.ListRequests(c.Request.Context(), filter)
	})
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// getRequest handles GET /api/v1/admin/compliance/requests/:id
func (h *AdminHandler) getRequest(c *gin.Context) {
	id, err := httpx.UUIDParam(c, "id")
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	req, err := h.service.GetRequest(c.Request.Context(), id)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// documentLink handles GET /api/v1/admin/compliance/requests/:id/document
func (h *AdminHandler) documentLink(c *gin.Context) {
	id, err := httpx.UUIDParam(c, "id")
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	link, err := h.service.DocumentLink(c.Request.Context(), id)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link})
}

// approve handles POST /api/v1/admin/compliance/requests/:id/approve
func (h *AdminHandler) approve(c *gin.Context) {
	session, id, ok := h.reviewTarget(c)
	if !ok {
		return
	}
	req, err := h.service.Approve(audit.WithIP(c.Request.Context(), c.ClientIP()), session, id)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// reject handles POST /api/v1/admin/compliance/requests/:id/reject
func (h *AdminHandler) reject(c *gin.Context) {
	session, id, ok := h.reviewTarget(c)
	if !ok {
		return
	}
	var body RejectRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		httpx.WriteError(c, h.logger, apperr.Validation("reason", "is required"))
		return
	}
	req, err := h.service.Reject(audit.WithIP(c.Request.Context(), c.ClientIP()), session, id, body.Reason)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// export handles GET /api/v1/admin/compliance/export?format=csv|xlsx|pdf
func (h *AdminHandler) export(c *gin.Context) {
	exporter, err := exports.ForFormat(exports.Format(c.Query("format")))
	if err != nil {
		httpx.WriteError(c, h.logger, apperr.Validation("format", "must be csv, xlsx or pdf"))
		return
	}
	filter, err := h.parseFilter(c)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}

	var rows []ComplianceRequest
	for page := 1; ; page++ {
		filter.Page = page
		filter.PageSize = exportPageSize
		list, err := h.service.ListRequests(c.Request.Context(), filter)
		if err != nil {
			httpx.WriteError(c, h.logger, err)
			return
		}
		rows = append(rows, list.Requests...)
		if int64(len(rows)) >= list.Total || len(list.Requests) == 0 {
			break
		}
	}

	now := time.Now()
	var buf bytes.Buffer
	if err := exporter.Export(&buf, queueTable(rows, now)); err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exports.Filename("compliance_requests", exporter, now)+`"`)
	c.Data(http.StatusOK, exporter.ContentType(), buf.Bytes())
}

func (h *AdminHandler) parseFilter(c *gin.Context) (RequestFilter, error) {
	var filter RequestFilter
	if status := c.Query("status"); status != "" {
		st := Status(status)
		filter.Status = &st
	}
	if requestType := c.Query("request_type"); requestType != "" {
		rt := RequestType(requestType)
		filter.RequestType = &rt
	}
	if userID := c.Query("user_id"); userID != "" {
		id, err := uuid.Parse(userID)
		if err != nil {
			return filter, apperr.Validation("user_id", "must be a valid UUID")
		}
		filter.UserID = &id
	}
	return filter, nil
}

func (h *AdminHandler) reviewTarget(c *gin.Context) (*auth.Session, uuid.UUID, bool) {
	session, err := auth.SessionFrom(c)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return nil, uuid.Nil, false
	}
	id, err := httpx.UUIDParam(c, "id")
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return nil, uuid.Nil, false
	}
	return session, id, true
}

func queueTable(requests []ComplianceRequest, at time.Time) *exports.Table {
	table := &exports.Table{
		Title: "Compliance requests",
		Columns: []string{
			"id", "user_id", "request_type", "status", "document_name",
			"created_at", "reviewed_by", "reviewed_at", "admin_notes",
		},
		GeneratedAt: at,
	}
	for _, r := range requests {
		var reviewedBy, reviewedAt string
		if r.ReviewedBy != nil {
			reviewedBy = r.ReviewedBy.String()
		}
		if r.ReviewedAt != nil {
			reviewedAt = r.ReviewedAt.UTC().Format(time.RFC3339)
		}
		table.Rows = append(table.Rows, []string{
			r.ID.String(),
			r.UserID.String(),
			string(r.RequestType),
			string(r.Status),
			r.DocumentName,
			r.CreatedAt.UTC().Format(time.RFC3339),
			reviewedBy,
			reviewedAt,
			r.AdminNotes,
		})
	}
	return table
}
