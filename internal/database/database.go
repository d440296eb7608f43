package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"taxdesk/compliance/compliance-backend/internal/audit"
	"taxdesk/compliance/compliance-backend/internal/authz"
	"taxdesk/compliance/compliance-backend/internal/compliance"
	"taxdesk/compliance/compliance-backend/internal/config"
	"taxdesk/compliance/compliance-backend/internal/users"
)

// Open connects to the primary Postgres database
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	logger.Info("Connecting to database",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("db_name", cfg.DBName))

	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseURL()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)

	return db, nil
}

// Migrate creates the tables, the open-request partial unique index and the
// default permission grants.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&users.User{},
		&compliance.ComplianceRequest{},
		&audit.Log{},
		&authz.RolePermission{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// At most one pending or approved request per user and document type.
	if err := db.WithContext(ctx).Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_compliance_requests_open
		ON compliance_requests (user_id, request_type)
		WHERE status IN ('pending', 'approved')`).Error; err != nil {
		return fmt.Errorf("failed to create open request index: %w", err)
	}

	return authz.SeedDefaults(ctx, db)
}
