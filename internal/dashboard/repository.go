package dashboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"taxdesk/compliance/compliance-backend/internal/compliance"
)

// Repository reads dashboard aggregates, usually from a reporting replica
type Repository interface {
	CountByStatus(ctx context.Context) (map[compliance.Status]int64, error)
	CountSuspendedUsers(ctx context.Context) (int64, error)
	OldestPending(ctx context.Context) (*time.Time, error)
}

type sqlxRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &sqlxRepository{db: db}
}

func (r *sqlxRepository) CountByStatus(ctx context.Context) (map[compliance.Status]int64, error) {
	var rows []statusCount
	query := `SELECT status, COUNT(*) AS count FROM compliance_requests GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count compliance requests: %w", err)
	}

	counts := make(map[compliance.Status]int64, len(rows))
	for _, row := range rows {
		counts[compliance.Status(row.Status)] = row.Count
	}
	return counts, nil
}

func (r *sqlxRepository) CountSuspendedUsers(ctx context.Context) (int64, error) {
	var count int64
	query := r.db.Rebind(`SELECT COUNT(*) FROM users WHERE compliance_suspended = ? AND deleted_at IS NULL`)
	if err := r.db.GetContext(ctx, &count, query, true); err != nil {
		return 0, fmt.Errorf("failed to count suspended users: %w", err)
	}
	return count, nil
}

// OldestPending returns nil when the queue is empty
func (r *sqlxRepository) OldestPending(ctx context.Context) (*time.Time, error) {
	var createdAt time.Time
	query := r.db.Rebind(`SELECT created_at FROM compliance_requests WHERE status = ? ORDER BY created_at ASC LIMIT 1`)
	err := r.db.GetContext(ctx, &createdAt, query, string(compliance.StatusPending))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get oldest pending request: %w", err)
	}
	return &createdAt, nil
}
