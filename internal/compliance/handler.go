package compliance

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taxdesk/compliance/compliance-backend/internal/apperr"
	"taxdesk/compliance/compliance-backend/internal/audit"
	"taxdesk/compliance/compliance-backend/internal/auth"
	"taxdesk/compliance/compliance-backend/internal/httpx"
)

// bodyOverhead allows for the JSON envelope around the document field
const bodyOverhead = 64 << 10

// Handler serves the customer compliance endpoints
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers customer compliance routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/compliance/requests")
	{
		requests.POST("", h.submit)
		requests.GET("", h.listOwn)
	}
}

// submit handles POST /api/v1/compliance/requests
func (h *Handler) submit(c *gin.Context) {
	session, err := auth.SessionFrom(c)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(h.service.MaxDocumentBytes())+bodyOverhead)

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(c, h.logger, apperr.Validation("document", "is too large"))
			return
		}
		httpx.WriteError(c, h.logger, apperr.Validation("body", "must be a JSON object with request_type and document"))
		return
	}

	ctx := audit.WithIP(c.Request.Context(), c.ClientIP())
	created, err := h.service.Submit(ctx, session, req)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// listOwn handles GET /api/v1/compliance/requests
func (h *Handler) listOwn(c *gin.Context) {
	session, err := auth.SessionFrom(c)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}

	requests, err := h.service.ListForUser(c.Request.Context(), session.UserID)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}
