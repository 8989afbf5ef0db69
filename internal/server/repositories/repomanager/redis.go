package repomanager

import (
	"context"
	"fmt"

	"github.com/coursesms/courses/internal/server/repositories/users"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "courses:"

// RedisRepositoryManager vends the Redis repository. Redis needs no
// schema, so RunMigrations is a no-op.
type RedisRepositoryManager struct {
	rdb  redis.UniversalClient
	repo *users.RedisRepository
}

func openRedis(ctx context.Context, opts Options) (*RedisRepositoryManager, error) {
	var ropts *redis.Options
	if opts.DSN != "" {
		var err error
		if ropts, err = redis.ParseURL(opts.DSN); err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
	} else {
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis: address or URL is required")
		}
		ropts = &redis.Options{Addr: opts.RedisAddr}
	}

	rdb := redis.NewClient(ropts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return newRedisManager(rdb, opts.RedisPrefix), nil
}

func newRedisManager(rdb redis.UniversalClient, prefix string) *RedisRepositoryManager {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisRepositoryManager{rdb: rdb, repo: users.NewRedisRepository(rdb, prefix)}
}

func (m *RedisRepositoryManager) Users() users.Repository {
	return m.repo
}

func (m *RedisRepositoryManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error {
	return fn(ctx, m.repo)
}

func (m *RedisRepositoryManager) RunMigrations(context.Context) error {
	return nil
}

func (m *RedisRepositoryManager) Close() error {
	return m.rdb.Close()
}
