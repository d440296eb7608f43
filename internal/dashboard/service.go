package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"taxdesk/compliance/compliance-backend/internal/compliance"
	"taxdesk/compliance/compliance-backend/pkg/cache"
)

// Service computes dashboard stats and keeps them in the route cache
type Service struct {
	repo   Repository
	cache  cache.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, store cache.Store, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  store,
		logger: logger,
		now:    time.Now,
	}
}

// ComplianceStats returns the cached stats, computing them on a miss
func (s *Service) ComplianceStats(ctx context.Context) (*ComplianceStats, error) {
	return cache.Remember(ctx, s.cache, s.logger, cache.AdminDashboardKey, func() (*ComplianceStats, error) {
		return s.compute(ctx)
	})
}

// Refresh recomputes the stats and overwrites the cached copy
func (s *Service) Refresh(ctx context.Context) error {
	stats, err := s.compute(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode dashboard stats: %w", err)
	}
	return s.cache.Set(ctx, cache.AdminDashboardKey, raw)
}

func (s *Service) compute(ctx context.Context) (*ComplianceStats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	suspended, err := s.repo.CountSuspendedUsers(ctx)
	if err != nil {
		return nil, err
	}
	oldest, err := s.repo.OldestPending(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	stats := &ComplianceStats{
		Pending:         counts[compliance.StatusPending],
		Approved:        counts[compliance.StatusApproved],
		Rejected:        counts[compliance.StatusRejected],
		SuspendedUsers:  suspended,
		OldestPendingAt: oldest,
		GeneratedAt:     now,
	}
	if oldest != nil && now.After(*oldest) {
		stats.OldestPendingSeconds = int64(now.Sub(*oldest).Seconds())
	}
	return stats, nil
}
