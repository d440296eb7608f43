package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taxdesk/compliance/compliance-backend/internal/authz"
	"taxdesk/compliance/compliance-backend/internal/httpx"
)

type Handler struct {
	service    *Service
	authorizer *authz.Authorizer
	logger     *zap.Logger
}

func NewHandler(service *Service, authorizer *authz.Authorizer, logger *zap.Logger) *Handler {
	return &Handler{service: service, authorizer: authorizer, logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/dashboard/compliance", h.authorizer.Require(authz.PermComplianceView), h.getComplianceStats)
}

// getComplianceStats handles GET /api/v1/admin/dashboard/compliance
func (h *Handler) getComplianceStats(c *gin.Context) {
	stats, err := h.service.ComplianceStats(c.Request.Context())
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
