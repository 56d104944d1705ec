package config

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"

	"e2e-transit/internal/pkg/logger"
)

// NewRedisClient connects to Redis. It returns nil when no address is
// configured or the server does not answer a ping; callers then skip caching.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}

	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnf("Redis unavailable at %s, alert cache disabled: %v", cfg.Addr, err)
		_ = client.Close()
		return nil
	}

	logger.Infof("Redis connected [%s]", cfg.Addr)
	return client
}
