// Command app-api serves the customer-facing compliance and settings routes.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"taxdesk/compliance/compliance-backend/internal/compliance"
	"taxdesk/compliance/compliance-backend/internal/config"
	"taxdesk/compliance/compliance-backend/internal/server"
	"taxdesk/compliance/compliance-backend/internal/settings"
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

	settingsService := settings.NewService(stack.UserRepo, stack.ComplianceRepo, stack.Cache, logger)

	router, api := stack.NewRouter()
	api.Use(compliance.SuspensionGate(cfg.Compliance.EnforceSuspension, compliance.SuspendedRoutes...))
	{
		compliance.NewHandler(stack.Compliance, logger).RegisterRoutes(api)
		settings.NewHandler(settingsService, logger).RegisterRoutes(api)
	}

	if err := server.Run(cfg.Server, router, logger, nil); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
