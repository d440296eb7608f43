// Package server wires the shared dependencies of the app and admin services.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taxdesk/compliance/compliance-backend/internal/auth"
	"taxdesk/compliance/compliance-backend/internal/authz"
	"taxdesk/compliance/compliance-backend/internal/compliance"
	"taxdesk/compliance/compliance-backend/internal/config"
	"taxdesk/compliance/compliance-backend/internal/database"
	"taxdesk/compliance/compliance-backend/internal/httpx"
	"taxdesk/compliance/compliance-backend/internal/notifications"
	"taxdesk/compliance/compliance-backend/internal/users"
	"taxdesk/compliance/compliance-backend/pkg/cache"
	"taxdesk/compliance/compliance-backend/pkg/storage"
)

// Stack holds everything both services build the same way
type Stack struct {
	Config         *config.Config
	Logger         *zap.Logger
	DB             *gorm.DB
	Cache          cache.Store
	Tokens         *auth.TokenManager
	Sessions       auth.Validator
	Authorizer     *authz.Authorizer
	UserRepo       users.Repository
	ComplianceRepo compliance.Repository
	Compliance     *compliance.Service

	closers []func()
}

// Build connects to the database, runs migrations and constructs the
// compliance service.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stack, error) {
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	s := &Stack{Config: cfg, Logger: logger, DB: db}
	if sqlDB, err := db.DB(); err == nil {
		s.closers = append(s.closers, func() { _ = sqlDB.Close() })
	}

	if err := database.Migrate(ctx, db); err != nil {
		s.Close()
		return nil, err
	}

	store, closeStore, err := newCacheStore(ctx, cfg.Cache, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Cache = store
	s.closers = append(s.closers, closeStore)

	documents, err := newDocumentStore(ctx, cfg.Storage, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	mode, err := authz.ParseMode(cfg.Authz.Mode)
	if err != nil {
		s.Close()
		return nil, err
	}

	notifier, err := newNotifier(ctx, cfg.Notify, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Tokens = auth.NewTokenManager(cfg.Security.SessionSecret, cfg.Security.SessionIssuer)
	s.Authorizer = authz.NewAuthorizer(mode, authz.NewStore(db), logger)
	s.UserRepo = users.NewRepository(db)
	s.Sessions = users.NewSessionValidator(s.Tokens, s.UserRepo)
	s.ComplianceRepo = compliance.NewRepository(db)
	s.Compliance = compliance.NewService(s.ComplianceRepo, s.Authorizer, documents,
		cache.NewRevalidator(store, logger), cfg.Compliance.MaxDocumentBytes, logger).
		WithNotifier(notifier)

	return s, nil
}

// Close releases connections in reverse order of creation
func (s *Stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// NewRouter returns an engine with logging, CORS and the health route, plus the
// authenticated /api/v1 group.
func (s *Stack) NewRouter() (*gin.Engine, *gin.RouterGroup) {
	if !s.Config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), httpx.RequestLogger(s.Logger), httpx.CORS(s.Config.Server.AllowedOrigins))
	router.GET("/health", httpx.Health)

	api := router.Group("/api/v1")
	api.Use(auth.RequireSession(s.Sessions, s.Config.Security.SessionCookie, s.Logger))
	return router, api
}

func newCacheStore(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (cache.Store, func(), error) {
	if cfg.RedisURL != "" {
		store, err := cache.NewRedisStore(ctx, cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using redis route cache")
		return store, func() { _ = store.Close() }, nil
	}
	// app-api and admin-api revalidate each other's views, so a per-process
	// store would serve stale pages after a write in the other process.
	logger.Warn("REDIS_URL not set, route cache disabled")
	return cache.NopStore{}, func() {}, nil
}

func newNotifier(ctx context.Context, cfg config.NotifyConfig, logger *zap.Logger) (compliance.Notifier, error) {
	sender, err := newSender(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	fanout := notifications.Fanout{notifications.NewReviewNotifier(sender, logger)}
	if cfg.SNSTopicARN != "" {
		client, err := notifications.NewSNSClient(ctx, cfg.Region)
		if err != nil {
			return nil, err
		}
		fanout = append(fanout, notifications.NewEventPublisher(client, cfg.SNSTopicARN))
	}
	return fanout, nil
}

func newSender(ctx context.Context, cfg config.NotifyConfig, logger *zap.Logger) (notifications.Sender, error) {
	if cfg.SESFromAddress == "" {
		logger.Info("SES_FROM_ADDRESS not set, review notices are logged only")
		return notifications.NewLogSender(logger), nil
	}
	client, err := notifications.NewSESClient(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}
	return notifications.NewSESSender(client, cfg.SESFromAddress), nil
}

func newDocumentStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (storage.DocumentStore, error) {
	if cfg.S3Bucket == "" {
		logger.Info("S3_BUCKET not set, storing documents inline")
		return storage.NewInlineStore(), nil
	}
	client, err := storage.NewS3Client(ctx, storage.S3Config{
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	logger.Info("Storing documents in S3", zap.String("bucket", cfg.S3Bucket))
	return storage.NewS3DocumentStore(client, cfg.S3Bucket), nil
}

// Run serves handler until SIGINT or SIGTERM, then shuts down gracefully.
// onShutdown runs after the listener stops accepting requests.
func Run(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger, onShutdown func(context.Context)) error {
	srv := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Info("Server started", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-quit:
	}
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if onShutdown != nil {
		onShutdown(ctx)
	}
	logger.Info("Server exiting")
	return nil
}
