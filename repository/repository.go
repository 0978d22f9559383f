package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/discourselab/cosmos/config"
	"github.com/discourselab/cosmos/internal/cosmos"
	"github.com/discourselab/cosmos/repository/postgres_repository"
	"github.com/discourselab/cosmos/repository/redis_repository"
)

// NewResultCache builds the layout cache from storage configuration.
// Postgres wins when configured; otherwise Redis. No backend at all is an
// error here — callers wanting an uncached pipeline pass nil instead.
func NewResultCache(ctx context.Context, cfg config.StorageConfig, logger *log.Logger) (cosmos.ResultCache, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[REPO] ", log.LstdFlags)
	}

	if cfg.Postgres.URL != "" || cfg.Postgres.Host != "" || cfg.Postgres.DBName != "" {
		store, err := postgres_repository.NewLayoutStore(cfg.Postgres)
		if err == nil {
			return store, nil
		}
		logger.Printf("warning: postgres layout store init failed: %v, falling back to redis", err)
	}

	if cfg.Redis.Host != "" {
		client, err := redis_repository.Conn(ctx, cfg.Redis, 5*time.Second)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return redis_repository.NewLayoutCache(client), nil
	}

	return nil, fmt.Errorf("no cache backend configured")
}
