package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/esi-request-cache/internal/config"
	"github.com/Sternrassler/esi-request-cache/pkg/cache"
	"github.com/Sternrassler/esi-request-cache/pkg/client"
	"github.com/Sternrassler/esi-request-cache/pkg/logging"
	"github.com/Sternrassler/esi-request-cache/pkg/ratelimit"
)

// stack is the wired request pipeline.
type stack struct {
	client  *client.Client
	store   cache.Store
	tracker *ratelimit.Tracker // nil unless the Redis backend is used
	closers []func()
}

// Close releases backend connections.
func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// redisOptions accepts redis:// URLs and bare host:port addresses.
func redisOptions(raw string) (*redis.Options, error) {
	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: raw}, nil
}

// openStore connects the configured backend.
func openStore(ctx context.Context, cfg config.CacheConfig, logger zerolog.Logger) (*stack, error) {
	s := &stack{}

	switch cfg.Backend {
	case config.BackendMemory:
		s.store = cache.NewMemoryStore()

	case config.BackendRedis:
		opts, err := redisOptions(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}
		s.closers = append(s.closers, func() { redisClient.Close() })
		s.store = cache.NewRedisStore(redisClient)
		s.tracker = ratelimit.NewTracker(redisClient, logging.NewLogger(logging.ComponentRateLimit))
		logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)

		store := cache.NewPostgresStore(pool, cfg.Table)
		if err := store.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.store = store
		logger.Info().Msg("Connected to PostgreSQL")

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}

	return s, nil
}

// newStack builds the store and the client from the configuration.
func newStack(ctx context.Context, cfg config.Config) (*stack, error) {
	logger := logging.NewLogger(logging.ComponentCache)

	s, err := openStore(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	clientCfg := client.DefaultConfig(s.store, cfg.UserAgent)
	clientCfg.Timeout = cfg.Request.Timeout.Duration
	clientCfg.RetryBackoff = cfg.Request.RetryBackoff.Duration
	clientCfg.MaxBackoff = cfg.Request.MaxBackoff.Duration
	if s.tracker != nil {
		clientCfg.HeaderObserver = s.tracker
	}

	s.client, err = client.New(clientCfg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create ESI client: %w", err)
	}
	return s, nil
}

// requestOptions are the per-request defaults from the configuration.
func requestOptions(cfg config.RequestConfig) client.Options {
	return client.Options{
		ExpectBody: true,
		CacheTTL:   cfg.TTL.Duration,
		MaxRetries: cfg.MaxRetries,
	}
}
