package audit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"taxdesk/compliance/compliance-backend/internal/apperr"
	"taxdesk/compliance/compliance-backend/internal/authz"
	"taxdesk/compliance/compliance-backend/internal/httpx"
)

// Handler exposes the audit trail of a single resource to staff
type Handler struct {
	repo       Repository
	authorizer *authz.Authorizer
	logger     *zap.Logger
}

func NewHandler(repo Repository, authorizer *authz.Authorizer, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, authorizer: authorizer, logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/audit", h.authorizer.Require(authz.PermUsersView), h.listForResource)
}

// listForResource handles GET /api/v1/admin/audit?resource=&resource_id=
func (h *Handler) listForResource(c *gin.Context) {
	resource := c.Query("resource")
	if resource != ResourceUser && resource != ResourceComplianceRequest {
		httpx.WriteError(c, h.logger, apperr.Validation("resource", "must be user or compliance_request"))
		return
	}
	id, err := uuid.Parse(c.Query("resource_id"))
	if err != nil {
		httpx.WriteError(c, h.logger, apperr.Validation("resource_id", "must be a valid UUID"))
		return
	}

	logs, err := h.repo.ListForResource(c.Request.Context(), resource, id)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
