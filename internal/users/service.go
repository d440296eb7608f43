package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"taxdesk/compliance/compliance-backend/internal/apperr"
	"taxdesk/compliance/compliance-backend/internal/audit"
	"taxdesk/compliance/compliance-backend/internal/auth"
	"taxdesk/compliance/compliance-backend/internal/authz"
	"taxdesk/compliance/compliance-backend/pkg/cache"
)

// Authorizer checks a session against a permission
type Authorizer interface {
	Authorize(ctx context.Context, session *auth.Session, perm authz.Permission) error
}

// TokenIssuer signs session tokens for impersonation
type TokenIssuer interface {
	Issue(session auth.Session, ttl time.Duration) (string, error)
}

// Revalidator drops cached views after a committed write
type Revalidator interface {
	Revalidate(ctx context.Context, paths ...string)
}

// Service implements user administration for the admin console
type Service struct {
	repo             Repository
	authorizer       Authorizer
	tokens           TokenIssuer
	revalidator      Revalidator
	impersonationTTL time.Duration
	logger           *zap.Logger
	now              func() time.Time
}

func NewService(repo Repository, authorizer Authorizer, tokens TokenIssuer, revalidator Revalidator, impersonationTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		repo:             repo,
		authorizer:       authorizer,
		tokens:           tokens,
		revalidator:      revalidator,
		impersonationTTL: impersonationTTL,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	result, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListResponse{
		Users:    result,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.ErrNotFound
	}
	return user, nil
}

// ChangeRole sets the target's role. Admins cannot change their own role.
func (s *Service) ChangeRole(ctx context.Context, actor *auth.Session, id uuid.UUID, role auth.Role) (*User, error) {
	if err := s.authorizer.Authorize(ctx, actor, authz.PermUsersManage); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, apperr.Validation("role", "must be one of user, staff, admin")
	}
	if actor.UserID == id {
		return nil, apperr.Validation("id", "cannot change your own role")
	}

	return s.mutate(ctx, actor, id, audit.ActionUserRoleChange, func(user *User) (map[string]interface{}, datatypes.JSONMap) {
		details := datatypes.JSONMap{"from": string(user.Role), "to": string(role)}
		user.Role = role
		return map[string]interface{}{"role": role}, details
	})
}

// Suspend blocks the account from signing in
func (s *Service) Suspend(ctx context.Context, actor *auth.Session, id uuid.UUID) (*User, error) {
	return s.setAccountSuspended(ctx, actor, id, true)
}

func (s *Service) Unsuspend(ctx context.Context, actor *auth.Session, id uuid.UUID) (*User, error) {
	return s.setAccountSuspended(ctx, actor, id, false)
}

func (s *Service) setAccountSuspended(ctx context.Context, actor *auth.Session, id uuid.UUID, suspended bool) (*User, error) {
	if err := s.authorizer.Authorize(ctx, actor, authz.PermUsersManage); err != nil {
		return nil, err
	}
	if actor.UserID == id {
		return nil, apperr.Validation("id", "cannot suspend your own account")
	}

	action := audit.ActionUserUnsuspend
	if suspended {
		action = audit.ActionUserSuspend
	}
	return s.mutate(ctx, actor, id, action, func(user *User) (map[string]interface{}, datatypes.JSONMap) {
		details := datatypes.JSONMap{"was_suspended": user.AccountSuspended}
		user.AccountSuspended = suspended
		return map[string]interface{}{"account_suspended": suspended}, details
	})
}

// Delete soft-deletes the user. Their compliance history is kept.
func (s *Service) Delete(ctx context.Context, actor *auth.Session, id uuid.UUID) error {
	if err := s.authorizer.Authorize(ctx, actor, authz.PermUsersManage); err != nil {
		return err
	}
	if actor.UserID == id {
		return apperr.Validation("id", "cannot delete your own account")
	}

	err := s.repo.Transaction(ctx, func(repo Repository) error {
		user, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return apperr.ErrNotFound
		}
		if err := repo.SoftDelete(ctx, id); err != nil {
			return err
		}
		return repo.AppendAudit(ctx, s.auditEntry(ctx, actor, audit.ActionUserDelete, id, datatypes.JSONMap{
			"email": user.Email,
			"role":  string(user.Role),
		}))
	})
	if err != nil {
		return err
	}
	s.revalidate(ctx, id)

	s.logger.Info("User deleted",
		zap.String("user_id", id.String()),
		zap.String("actor_id", actor.UserID.String()))
	return nil
}

// Impersonate issues a short-lived session for the target carrying the
// actor's id. Only users of a lower role can be impersonated.
func (s *Service) Impersonate(ctx context.Context, actor *auth.Session, id uuid.UUID) (*ImpersonationResponse, error) {
	if err := s.authorizer.Authorize(ctx, actor, authz.PermUsersImpersonate); err != nil {
		return nil, err
	}
	if actor.UserID == id {
		return nil, apperr.Validation("id", "cannot impersonate yourself")
	}
	if actor.ImpersonatorID != nil {
		return nil, apperr.Validation("id", "cannot impersonate from an impersonated session")
	}

	target, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if roleRank(target.Role) >= roleRank(actor.Role) {
		return nil, apperr.ErrUnauthorized
	}

	expiresAt := s.now().Add(s.impersonationTTL)
	token, err := s.tokens.Issue(auth.Session{
		UserID:         target.ID,
		Email:          target.Email,
		Role:           target.Role,
		ImpersonatorID: &actor.UserID,
	}, s.impersonationTTL)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AppendAudit(ctx, s.auditEntry(ctx, actor, audit.ActionUserImpersonate, id, datatypes.JSONMap{
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})); err != nil {
		return nil, err
	}

	s.logger.Info("Impersonation session issued",
		zap.String("user_id", id.String()),
		zap.String("actor_id", actor.UserID.String()),
		zap.Time("expires_at", expiresAt))

	return &ImpersonationResponse{Token: token, ExpiresAt: expiresAt, UserID: id}, nil
}

// mutate loads the user, applies change and records the audit row in one transaction
func (s *Service) mutate(ctx context.Context, actor *auth.Session, id uuid.UUID, action audit.Action, change func(*User) (map[string]interface{}, datatypes.JSONMap)) (*User, error) {
	var updated *User
	err := s.repo.Transaction(ctx, func(repo Repository) error {
		user, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return apperr.ErrNotFound
		}

		fields, details := change(user)
		if err := repo.UpdateFields(ctx, id, fields); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return err
		}
		if err := repo.AppendAudit(ctx, s.auditEntry(ctx, actor, action, id, details)); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.revalidate(ctx, id)

	s.logger.Info("User updated",
		zap.String("user_id", id.String()),
		zap.String("action", string(action)),
		zap.String("actor_id", actor.UserID.String()))
	return updated, nil
}

// revalidate drops the user's settings view and the dashboard, whose
// suspended-user count skips deleted users
func (s *Service) revalidate(ctx context.Context, id uuid.UUID) {
	s.revalidator.Revalidate(ctx, cache.SettingsKey(id), cache.AdminDashboardKey)
}

func (s *Service) auditEntry(ctx context.Context, actor *auth.Session, action audit.Action, id uuid.UUID, details datatypes.JSONMap) *audit.Log {
	if actor.ImpersonatorID != nil {
		details["impersonator_id"] = actor.ImpersonatorID.String()
	}
	return &audit.Log{
		ActorUserID: actor.UserID,
		Action:      action,
		Resource:    audit.ResourceUser,
		ResourceID:  id,
		Details:     details,
		IPAddress:   audit.IPFrom(ctx),
		CreatedAt:   s.now().UTC(),
	}
}

func roleRank(r auth.Role) int {
	switch r {
	case auth.RoleAdmin:
		return 3
	case auth.RoleStaff:
		return 2
	case auth.RoleUser:
		return 1
	}
	return 0
}

