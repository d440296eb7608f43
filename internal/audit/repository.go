package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository appends audit records. Pass a transaction handle to make the
// record part of the surrounding unit of work.
type Repository interface {
	Append(ctx context.Context, entry *Log) error
	ListForResource(ctx context.Context, resource string, resourceID uuid.UUID) ([]Log, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Append(ctx context.Context, entry *Log) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append audit log: %w", err)
	}
	return nil
}

func (r *gormRepository) ListForResource(ctx context.Context, resource string, resourceID uuid.UUID) ([]Log, error) {
	var logs []Log
	err := r.db.WithContext(ctx).
		Where("resource = ? AND resource_id = ?", resource, resourceID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
