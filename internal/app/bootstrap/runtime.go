package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/plenasaude/quote-assistant/internal/config"
	"github.com/plenasaude/quote-assistant/internal/conversation"
	"github.com/plenasaude/quote-assistant/internal/leads"
	"github.com/plenasaude/quote-assistant/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// needsRedis reports whether any configured backend stores data in Redis.
func needsRedis(cfg *appconfig.Config) bool {
	return cfg.SessionBackend == "redis" || cfg.RemarketingBackend == "redis"
}

// BuildSessionStore selects the session backend. A redis backend without a
// reachable client falls back to memory.
func BuildSessionStore(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) conversation.SessionStore {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.SessionBackend {
	case "redis":
		if redisClient != nil {
			logger.Info("session store: redis", "ttl", cfg.SessionTTL.String())
			return conversation.NewRedisStore(redisClient, cfg.SessionTTL, nil)
		}
		logger.Warn("session backend redis requested but redis unavailable; using memory")
	case "", "memory":
	default:
		logger.Warn("unknown session backend; using memory", "backend", cfg.SessionBackend)
	}
	return conversation.NewMemoryStore()
}

// ConnectPostgresPool opens a pgx pool, returning nil when the URL is empty
// or the database cannot be reached.
func ConnectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to reach postgres", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// BuildLeadsRepository returns the Postgres repository when a pool is
// available and the in-memory one otherwise.
func BuildLeadsRepository(pool *pgxpool.Pool, logger *logging.Logger) leads.Repository {
	if pool == nil {
		if logger != nil {
			logger.Warn("DATABASE_URL not set; leads are kept in memory")
		}
		return leads.NewInMemoryRepository()
	}
	return leads.NewPostgresRepository(pool)
}
