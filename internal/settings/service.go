package settings

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taxdesk/compliance/compliance-backend/internal/apperr"
	"taxdesk/compliance/compliance-backend/internal/compliance"
	"taxdesk/compliance/compliance-backend/internal/users"
	"taxdesk/compliance/compliance-backend/pkg/cache"
)

type Service struct {
	users    users.Repository
	requests compliance.Repository
	cache    cache.Store
	logger   *zap.Logger
}

func NewService(userRepo users.Repository, requests compliance.Repository, store cache.Store, logger *zap.Logger) *Service {
	return &Service{
		users:    userRepo,
		requests: requests,
		cache:    store,
		logger:   logger,
	}
}

// GetView builds the settings page for userID, served from the route cache
// until a compliance write revalidates it.
func (s *Service) GetView(ctx context.Context, userID uuid.UUID) (*View, error) {
	return cache.Remember(ctx, s.cache, s.logger, cache.SettingsKey(userID), func() (*View, error) {
		return s.buildView(ctx, userID)
	})
}

func (s *Service) buildView(ctx context.Context, userID uuid.UUID) (*View, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.ErrNotFound
	}

	requests, err := s.requests.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &View{
		Profile: UserProfile{
			UserID:    user.ID,
			Email:     user.Email,
			Name:      user.Name,
			Role:      user.Role,
			CreatedAt: user.CreatedAt,
		},
		ComplianceSuspended: user.ComplianceSuspended,
		Compliance:          compliance.Summarize(requests),
		History:             compliance.VisibleHistory(requests),
	}
	if user.ComplianceSuspended {
		view.SuspensionNotice = suspensionNotice
	}
	return view, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*View, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name", "is required")
	}
	if len(name) > 255 {
		return nil, apperr.Validation("name", "must be at most 255 characters")
	}

	if err := s.users.UpdateFields(ctx, userID, map[string]interface{}{"name": name}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if err := s.cache.DeleteByPrefix(ctx, cache.SettingsKey(userID)); err != nil {
		s.logger.Warn("Failed to revalidate settings view", zap.String("user_id", userID.String()), zap.Error(err))
	}

	s.logger.Info("Profile updated", zap.String("user_id", userID.String()))
	return s.GetView(ctx, userID)
}
