package compliance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taxdesk/compliance/compliance-backend/internal/audit"
	"taxdesk/compliance/compliance-backend/internal/users"
)

// Repository handles compliance request persistence. Review operations run
// inside Transaction on the repository passed to fn.
type Repository interface {
	Transaction(ctx context.Context, fn func(repo Repository) error) error

	CreateRequest(ctx context.Context, req *ComplianceRequest) error
	GetRequest(ctx context.Context, id uuid.UUID) (*ComplianceRequest, error)
	FindOpenRequest(ctx context.Context, userID uuid.UUID, requestType RequestType) (*ComplianceRequest, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]ComplianceRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]ComplianceRequest, int64, error)

	// ResolveRequest moves a pending request to status. It reports false when
	// the request was no longer pending.
	ResolveRequest(ctx context.Context, id uuid.UUID, status Status, reviewer uuid.UUID, notes string, at time.Time) (bool, error)
	CountRejected(ctx context.Context, userID uuid.UUID) (int64, error)

	LockUser(ctx context.Context, userID uuid.UUID) (*users.User, error)
	SetComplianceSuspended(ctx context.Context, userID uuid.UUID, suspended bool) error

	AppendAudit(ctx context.Context, entry *audit.Log) error
}

type gormRepository struct {
	db    *gorm.DB
	audit audit.Repository
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db, audit: audit.NewRepository(db)}
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(repo Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx, audit: audit.NewRepository(tx)})
	})
}

func (r *gormRepository) CreateRequest(ctx context.Context, req *ComplianceRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to create compliance request: %w", err)
	}
	return nil
}

// GetRequest returns nil without error when the request does not exist
func (r *gormRepository) GetRequest(ctx context.Context, id uuid.UUID) (*ComplianceRequest, error) {
	var req ComplianceRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get compliance request: %w", err)
	}
	return &req, nil
}

func (r *gormRepository) FindOpenRequest(ctx context.Context, userID uuid.UUID, requestType RequestType) (*ComplianceRequest, error) {
	var req ComplianceRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND request_type = ? AND status IN ?", userID, requestType, []Status{StatusPending, StatusApproved}).
		Order("created_at DESC").
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open compliance request: %w", err)
	}
	return &req, nil
}

// ListByUser returns the user's requests newest first
func (r *gormRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]ComplianceRequest, error) {
	var result []ComplianceRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list compliance requests: %w", err)
	}
	return result, nil
}

func (r *gormRepository) ListRequests(ctx context.Context, filter RequestFilter) ([]ComplianceRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&ComplianceRequest{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.RequestType != nil {
		query = query.Where("request_type = ?", *filter.RequestType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count compliance requests: %w", err)
	}

	var result []ComplianceRequest
	err := query.Order("created_at ASC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&result).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list compliance requests: %w", err)
	}
	return result, total, nil
}

func (r *gormRepository) ResolveRequest(ctx context.Context, id uuid.UUID, status Status, reviewer uuid.UUID, notes string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&ComplianceRequest{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewer,
			"reviewed_at": at,
			"admin_notes": notes,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to resolve compliance request: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *gormRepository) CountRejected(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ComplianceRequest{}).
		Where("user_id = ? AND status = ?", userID, StatusRejected).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count rejected requests: %w", err)
	}
	return count, nil
}

// LockUser reads the user row with SELECT ... FOR UPDATE. Deleted users are
// included so their pending requests can still be resolved.
func (r *gormRepository) LockUser(ctx context.Context, userID uuid.UUID) (*users.User, error) {
	var user users.User
	err := r.db.WithContext(ctx).Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	return &user, nil
}

func (r *gormRepository) SetComplianceSuspended(ctx context.Context, userID uuid.UUID, suspended bool) error {
	err := r.db.WithContext(ctx).Unscoped().Model(&users.User{}).
		Where("id = ?", userID).
		Update("compliance_suspended", suspended).Error
	if err != nil {
		return fmt.Errorf("failed to set compliance suspension: %w", err)
	}
	return nil
}

func (r *gormRepository) AppendAudit(ctx context.Context, entry *audit.Log) error {
	return r.audit.Append(ctx, entry)
}
