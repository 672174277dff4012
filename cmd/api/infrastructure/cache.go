package infrastructure

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"pokedex-user-service/internal/config"
	redisclient "pokedex-user-service/pkg/redis"
)

// NewRedisClient creates the Redis client backing the user record cache.
// Returns nil without error when the cache is disabled in configuration.
func NewRedisClient(cfg *config.Config, l *zap.Logger) (*redisclient.Client, error) {
	if !cfg.Redis.Enabled {
		l.Info("redis cache disabled")
		return nil, nil
	}

	client, err := redisclient.NewClient(redisclient.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxRetries:   cfg.Redis.MaxRetries,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConn:  cfg.Redis.MinIdleConn,
		DialTimeout:  time.Duration(cfg.Redis.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.Redis.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Redis.WriteTimeoutSeconds) * time.Second,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	return client, nil
}
