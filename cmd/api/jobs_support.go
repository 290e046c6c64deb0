package main

import (
	"context"
	"fmt"
	"log/slog"

	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/account-api/internal/config"
	"github.com/yourusername/account-api/internal/credentials"
	"github.com/yourusername/account-api/internal/jobs"
	"github.com/yourusername/account-api/internal/revocation"
	"github.com/yourusername/account-api/internal/server"
)

// backends は選択されたバックエンドと、終了時に呼ぶ後始末です。
type backends struct {
	deps    server.Dependencies
	cleanup func(ctx context.Context)
}

func setupBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backends, error) {
	if cfg.StoreBackend == config.BackendRedis {
		return setupRedisBackends(ctx, cfg, logger)
	}

	revoked := revocation.NewMemorySet()
	revoked.StartJanitor(ctx, cfg.RevocationPruneInterval, logger)
	return &backends{
		deps: server.Dependencies{
			Users:   credentials.NewMemoryRepository(),
			Revoked: revoked,
			Logger:  logger,
		},
		cleanup: func(context.Context) {},
	}, nil
}

func setupRedisBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backends, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	redisClient := redis.NewClient(opt)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	revoked := revocation.NewRedisSet(redisClient, revocation.DefaultRedisKey)
	manager, err := setupJobs(cfg, revoked, logger)
	if err != nil {
		_ = redisClient.Close()
		return nil, err
	}

	return &backends{
		deps: server.Dependencies{
			Users:   credentials.NewRedisRepository(redisClient),
			Revoked: revoked,
			Logger:  logger,
		},
		cleanup: func(ctx context.Context) {
			if err := manager.Shutdown(ctx); err != nil {
				logger.Warn("failed to shut down job manager", "error", err)
			}
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed to close redis client", "error", err)
			}
		},
	}, nil
}

// setupJobs は失効リストの定期掃除を Asynq に登録し、起動直後に一度掃除を投入します。
func setupJobs(cfg *config.Config, pruner jobs.Pruner, logger *slog.Logger) (*jobs.Manager, error) {
	manager, err := jobs.NewManager(cfg.RedisURL, pruner, cfg.RevocationPruneInterval, logger)
	if err != nil {
		return nil, err
	}
	if err := manager.StartWorkers(); err != nil {
		_ = manager.Shutdown(context.Background())
		return nil, err
	}
	if _, err := manager.EnqueuePrune(context.Background()); err != nil {
		logger.Warn("failed to enqueue initial prune", "error", err)
	}
	return manager, nil
}
