package users

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"taxdesk/compliance/compliance-backend/internal/apperr"
	"taxdesk/compliance/compliance-backend/internal/audit"
	"taxdesk/compliance/compliance-backend/internal/auth"
	"taxdesk/compliance/compliance-backend/internal/authz"
	"taxdesk/compliance/compliance-backend/internal/httpx"
)

// Handler serves the admin console user endpoints
type Handler struct {
	service    *Service
	authorizer *authz.Authorizer
	logger     *zap.Logger
}

func NewHandler(service *Service, authorizer *authz.Authorizer, logger *zap.Logger) *Handler {
	return &Handler{
		service:    service,
		authorizer: authorizer,
		logger:     logger,
	}
}

// RegisterRoutes registers user administration routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("", h.authorizer.Require(authz.PermUsersView), h.listUsers)
		users.GET("/:id", h.authorizer.Require(authz.PermUsersView), h.getUser)

		users.PUT("/:id/role", h.changeRole)
		users.POST("/:id/suspend", h.suspendUser)
		users.POST("/:id/unsuspend", h.unsuspendUser)
		users.DELETE("/:id", h.deleteUser)
		users.POST("/:id/impersonate", h.impersonateUser)
	}
}

type changeRoleRequest struct {
	Role auth.Role `json:"role" binding:"required"`
}

// listUsers handles GET /admin/users
func (h *Handler) listUsers(c *gin.Context) {
	filter := ListFilter{
		Search:   c.Query("search"),
		Page:     httpx.IntQuery(c, "page", 1),
		PageSize: httpx.IntQuery(c, "page_size", 20),
	}
	if role := c.Query("role"); role != "" {
		r := auth.Role(role)
		filter.Role = &r
	}
	if suspended := c.Query("compliance_suspended"); suspended != "" {
		b, err := strconv.ParseBool(suspended)
		if err != nil {
			httpx.WriteError(c, h.logger, apperr.Validation("compliance_suspended", "must be true or false"))
			return
		}
		filter.ComplianceSuspended = &b
	}

	resp, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getUser handles GET /admin/users/:id
func (h *Handler) getUser(c *gin.Context) {
	id, err := httpx.UUIDParam(c, "id")
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	user, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// changeRole handles PUT /admin/users/:id/role
func (h *Handler) changeRole(c *gin.Context) {
	var req changeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.WriteError(c, h.logger, apperr.Validation("role", "is required"))
		return
	}
	h.withTarget(c, func(session *auth.Session, id uuid.UUID) (interface{}, error) {
		return h.service.ChangeRole(h.ctx(c), session, id, req.Role)
	})
}

func (h *Handler) suspendUser(c *gin.Context) {
	h.withTarget(c, func(session *auth.Session, id uuid.UUID) (interface{}, error) {
		return h.service.Suspend(h.ctx(c), session, id)
	})
}

func (h *Handler) unsuspendUser(c *gin.Context) {
	h.withTarget(c, func(session *auth.Session, id uuid.UUID) (interface{}, error) {
		return h.service.Unsuspend(h.ctx(c), session, id)
	})
}

func (h *Handler) deleteUser(c *gin.Context) {
	h.withTarget(c, func(session *auth.Session, id uuid.UUID) (interface{}, error) {
		if err := h.service.Delete(h.ctx(c), session, id); err != nil {
			return nil, err
		}
		return gin.H{"status": "deleted"}, nil
	})
}

// impersonateUser handles POST /admin/users/:id/impersonate
func (h *Handler) impersonateUser(c *gin.Context) {
	h.withTarget(c, func(session *auth.Session, id uuid.UUID) (interface{}, error) {
		return h.service.Impersonate(h.ctx(c), session, id)
	})
}

// withTarget resolves the session and :id, runs fn and writes its result
func (h *Handler) withTarget(c *gin.Context, fn func(session *auth.Session, id uuid.UUID) (interface{}, error)) {
	session, err := auth.SessionFrom(c)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	id, err := httpx.UUIDParam(c, "id")
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}

	result, err := fn(session, id)
	if err != nil {
		httpx.WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ctx(c *gin.Context) context.Context {
	return audit.WithIP(c.Request.Context(), c.ClientIP())
}
