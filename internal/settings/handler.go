package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taxdesk/compliance/compliance-backend/internal/apperr"
	"taxdesk/compliance/compliance-backend/internal/auth"
	"taxdesk/compliance/compliance-backend/internal/httpx"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/settings", h.GetSettings)
	r.PUT("/settings/profile", h.UpdateProfile)
}

func (h *Handler) GetSettings(c *gin.Context) {
	session, err := auth.SessionFrom(c)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	view, err := h.service.GetView(c.Request.Context(), session.UserID)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	session, err := auth.SessionFrom(c)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	var payload UpdateProfileRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpx.WriteError(c, h.logger, apperr.Validation("name", "is required"))
		return
	}
	view, err := h.service.UpdateProfile(c.Request.Context(), session.UserID, payload)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
