package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher recomputes dashboard stats on a cron schedule
type Refresher struct {
	cron    *cron.Cron
	service *Service
	logger  *zap.Logger
	timeout time.Duration
}

// NewRefresher validates schedule, a standard five-field cron expression
func NewRefresher(service *Service, schedule string, logger *zap.Logger) (*Refresher, error) {
	r := &Refresher{
		cron:    cron.New(),
		service: service,
		logger:  logger,
		timeout: 30 * time.Second,
	}
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("invalid dashboard refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *Refresher) Start() {
	r.cron.Start()
	r.logger.Info("Dashboard refresher started")
}

// Stop waits for a running refresh to finish or ctx to expire
func (r *Refresher) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	r.logger.Info("Dashboard refresher stopped")
}

func (r *Refresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	start := time.Now()
	if err := r.service.Refresh(ctx); err != nil {
		r.logger.Error("Dashboard refresh failed", zap.Error(err))
		return
	}
	r.logger.Debug("Dashboard refreshed", zap.Duration("duration", time.Since(start)))
}
