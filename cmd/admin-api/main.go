// Command admin-api serves the staff review queue, user administration and
// the dashboard.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"taxdesk/compliance/compliance-backend/internal/audit"
	"taxdesk/compliance/compliance-backend/internal/compliance"
	"taxdesk/compliance/compliance-backend/internal/config"
	"taxdesk/compliance/compliance-backend/internal/dashboard"
	"taxdesk/compliance/compliance-backend/internal/server"
	"taxdesk/compliance/compliance-backend/internal/users"
	"taxdesk/compliance/compliance-backend/pkg/cache"
	"taxdesk/compliance/compliance-backend/pkg/logging"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	stack, err := server.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer stack.Close()

	// Dashboard aggregates read from the reporting replica when one is configured
	reportingDB, err := sqlx.Connect("postgres", cfg.Database.GetReportingURL())
	if err != nil {
		logger.Fatal("Failed to connect to reporting database", zap.Error(err))
	}
	defer reportingDB.Close()

	dashboardService := dashboard.NewService(dashboard.NewRepository(reportingDB), stack.Cache, logger)
	refresher, err := dashboard.NewRefresher(dashboardService, cfg.Dashboard.RefreshCron, logger)
	if err != nil {
		logger.Fatal("Failed to schedule dashboard refresh", zap.Error(err))
	}
	refresher.Start()

	usersService := users.NewService(stack.UserRepo, stack.Authorizer, stack.Tokens,
		cache.NewRevalidator(stack.Cache, logger), cfg.Security.ImpersonationTTL, logger)

	router, api := stack.NewRouter()
	admin := api.Group("/admin")
	{
		compliance.NewAdminHandler(stack.Compliance, stack.Authorizer, stack.Cache, logger).RegisterRoutes(admin)
		users.NewHandler(usersService, stack.Authorizer, logger).RegisterRoutes(admin)
		dashboard.NewHandler(dashboardService, stack.Authorizer, logger).RegisterRoutes(admin)
		audit.NewHandler(audit.NewRepository(stack.DB), stack.Authorizer, logger).RegisterRoutes(admin)
	}

	if err := server.Run(cfg.Server, router, logger, refresher.Stop); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
