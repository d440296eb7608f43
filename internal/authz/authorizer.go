package authz

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taxdesk/compliance/compliance-backend/internal/apperr"
	"taxdesk/compliance/compliance-backend/internal/auth"
	"taxdesk/compliance/compliance-backend/internal/httpx"
)

type Mode string

const (
	// ModeEnforced requires a role_permissions row on top of the role matrix.
	// An empty table denies everything.
	ModeEnforced Mode = "enforced"
	// ModePermissive applies the role matrix only.
	ModePermissive Mode = "permissive"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeEnforced, ModePermissive:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown authorization mode %q", s)
}

// PermissionStore looks up granted permissions
type PermissionStore interface {
	HasPermission(ctx context.Context, role auth.Role, perm Permission) (bool, error)
}

type Authorizer struct {
	mode   Mode
	store  PermissionStore
	logger *zap.Logger
}

func NewAuthorizer(mode Mode, store PermissionStore, logger *zap.Logger) *Authorizer {
	return &Authorizer{mode: mode, store: store, logger: logger}
}

// Authorize returns apperr.ErrUnauthorized when the session may not perform perm
func (a *Authorizer) Authorize(ctx context.Context, session *auth.Session, perm Permission) error {
	if session == nil {
		return apperr.ErrUnauthorized
	}
	if !allowedByMatrix(session.Role, perm) {
		return apperr.ErrUnauthorized
	}
	if a.mode == ModePermissive {
		return nil
	}

	ok, err := a.store.HasPermission(ctx, session.Role, perm)
	if err != nil {
		return fmt.Errorf("failed to check permission: %w", err)
	}
	if !ok {
		a.logger.Warn("Permission denied by grant table",
			zap.String("user_id", session.UserID.String()),
			zap.String("role", string(session.Role)),
			zap.String("permission", string(perm)))
		return apperr.ErrUnauthorized
	}
	return nil
}

// Require is gin middleware for routes behind auth.RequireSession
func (a *Authorizer) Require(perm Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := auth.SessionFrom(c)
		if err == nil {
			err = a.Authorize(c.Request.Context(), session, perm)
		}
		if err != nil {
			httpx.WriteError(c, a.logger, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) PermissionStore {
	return &gormStore{db: db}
}

func (s *gormStore) HasPermission(ctx context.Context, role auth.Role, perm Permission) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&RolePermission{}).
		Where("role = ? AND permission = ?", role, perm).
		Count(&count).Error
	return count > 0, err
}

// SeedDefaults inserts the default grants, leaving existing rows alone
func SeedDefaults(ctx context.Context, db *gorm.DB) error {
	grants := DefaultGrants()
	if len(grants) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&grants).Error; err != nil {
		return fmt.Errorf("failed to seed role permissions: %w", err)
	}
	return nil
}
