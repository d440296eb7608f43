// Package cache is the route cache shared by the app and admin services.
// Keys are route paths so a write can revalidate every view under a prefix.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Store holds serialized responses
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// Remember returns the cached value for key, or computes and stores it.
// Cache read and write failures fall through to compute.
func Remember[T any](ctx context.Context, store Store, logger *zap.Logger, key string, compute func() (T, error)) (T, error) {
	if raw, ok, err := store.Get(ctx, key); err != nil {
		logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	value, err := compute()
	if err != nil {
		return value, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return value, fmt.Errorf("failed to encode cache value: %w", err)
	}
	if err := store.Set(ctx, key, raw); err != nil {
		logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

// Revalidator drops cached views after a committed write
type Revalidator struct {
	store  Store
	logger *zap.Logger
}

func NewRevalidator(store Store, logger *zap.Logger) *Revalidator {
	return &Revalidator{store: store, logger: logger}
}

// Revalidate deletes every key under each path. Failures are logged; the
// entries still expire by TTL.
func (r *Revalidator) Revalidate(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if err := r.store.DeleteByPrefix(ctx, p); err != nil {
			r.logger.Warn("Cache revalidation failed", zap.String("path", p), zap.Error(err))
		}
	}
}

// NopStore never holds anything, so every read is computed. It is the
// fallback when no store is shared between the services that write and read.
type NopStore struct{}

func (NopStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NopStore) Set(ctx context.Context, key string, value []byte) error {
	return nil
}

func (NopStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	return nil
}
