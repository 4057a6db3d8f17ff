package client

import (
	"context"
	"log/slog"
	"time"

	"doku-template-store/internal/config"

	"github.com/redis/go-redis/v9"
)

// InitRedisClient returns nil when no address is configured.
func InitRedisClient(cfg config.Redis, log *slog.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// the audit sink is best effort, so an unreachable redis is only a warning
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("could not connect to redis", "addr", cfg.Addr, "error", err)
	} else {
		log.Info("connected to redis", "addr", cfg.Addr)
	}

	return rdb
}
