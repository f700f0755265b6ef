// Package store holds the per-type requisition list cache. Lists are
// replaced wholesale after every successful mutation rather than patched
// incrementally, so a reader never observes a partially updated list.
package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/requisition-service/internal/domain"
)

const keyPrefix = "requisitions:"

// RequisitionCache caches the unfiltered requisition list per type. Backed
// by Redis when a client is configured; otherwise a process-local map, the
// same degrade-gracefully posture the persistence layer takes when a DSN is
// missing. All cache failures are best-effort: they log and fall through to
// the repository.
type RequisitionCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration

	mu    sync.RWMutex
	local map[domain.RequisitionType][]domain.Requisition
}

// NewRequisitionCache builds the cache.
func NewRequisitionCache(client *redis.Client, logger *zap.Logger, ttl time.Duration) *RequisitionCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RequisitionCache{
		client: client,
		logger: logger,
		ttl:    ttl,
		local:  make(map[domain.RequisitionType][]domain.Requisition),
	}
}

// GetList returns the cached list for a type, if present.
func (c *RequisitionCache) GetList(ctx context.Context, t domain.RequisitionType) ([]domain.Requisition, bool) {
	if c == nil {
		return nil, false
	}
	if c.client == nil {
		c.mu.RLock()
		defer c.mu.RUnlock()
		list, ok := c.local[t]
		return list, ok
	}

	raw, err := c.client.Get(ctx, keyPrefix+string(t)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("requisition cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var list []domain.Requisition
	if err := json.Unmarshal(raw, &list); err != nil {
		c.logger.Warn("requisition cache decode failed", zap.Error(err))
		return nil, false
	}
	return list, true
}

// SetList replaces the cached list for a type.
func (c *RequisitionCache) SetList(ctx context.Context, t domain.RequisitionType, list []domain.Requisition) {
	if c == nil {
		return
	}
	if c.client == nil {
		c.mu.Lock()
		c.local[t] = list
		c.mu.Unlock()
		return
	}

	raw, err := json.Marshal(list)
	if err != nil {
		c.logger.Warn("requisition cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, keyPrefix+string(t), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("requisition cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached list for a type.
func (c *RequisitionCache) Invalidate(ctx context.Context, t domain.RequisitionType) {
	if c == nil {
		return
	}
	if c.client == nil {
		c.mu.Lock()
		delete(c.local, t)
		c.mu.Unlock()
		return
	}
	if err := c.client.Del(ctx, keyPrefix+string(t)).Err(); err != nil {
		c.logger.Warn("requisition cache invalidate failed", zap.Error(err))
	}
}

// GetByID scans the cached list for the type, when cached.
func (c *RequisitionCache) GetByID(ctx context.Context, t domain.RequisitionType, id string) (*domain.Requisition, bool) {
	list, ok := c.GetList(ctx, t)
	if !ok {
		return nil, false
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], true
		}
	}
	return nil, false
}
