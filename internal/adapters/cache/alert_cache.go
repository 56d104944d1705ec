package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"e2e-transit/internal/core/domain"
	"e2e-transit/internal/pkg/logger"
)

const suspiciousKeyPrefix = "alerts:suspicious:"

// AlertCache keeps suspicious-activity summaries in Redis
type AlertCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAlertCache returns nil when client is nil so callers can pass the
// result straight to the alert service.
func NewAlertCache(client *redis.Client, ttl time.Duration) *AlertCache {
	if client == nil {
		return nil
	}
	return &AlertCache{client: client, ttl: ttl}
}

func suspiciousKey(orgID string) string {
	return suspiciousKeyPrefix + orgID
}

// GetSuspicious returns the cached summary for an organisation.
// Any Redis failure is treated as a miss.
func (c *AlertCache) GetSuspicious(ctx context.Context, orgID string) (*domain.SuspiciousSummary, bool) {
	raw, err := c.client.Get(ctx, suspiciousKey(orgID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WithError(err).Warn("Alert cache read failed")
		}
		return nil, false
	}

	var summary domain.SuspiciousSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		logger.WithError(err).Warn("Alert cache entry corrupt, dropping")
		_ = c.client.Del(ctx, suspiciousKey(orgID)).Err()
		return nil, false
	}
	return &summary, true
}

// SetSuspicious stores a summary for the configured TTL
func (c *AlertCache) SetSuspicious(ctx context.Context, orgID string, summary *domain.SuspiciousSummary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		logger.WithError(err).Warn("Alert cache encode failed")
		return
	}
	if err := c.client.Set(ctx, suspiciousKey(orgID), raw, c.ttl).Err(); err != nil {
		logger.WithError(err).Warn("Alert cache write failed")
	}
}
