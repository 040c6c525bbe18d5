package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/unicitynetwork/Boxy-Run/internal/adapters/repository"
	"github.com/unicitynetwork/Boxy-Run/internal/config"
)

// withCloser registers a resource released on Stop.
func withCloser(fn func() error) Option {
	return func(s *Service) {
		if fn != nil {
			s.closers = append(s.closers, fn)
		}
	}
}

// NewFromConfig builds a Service on the store backend selected by cfg.
// A redis backend is pinged before use and its client is closed on Stop.
// Options in opts are applied after the config-derived ones.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	base := []Option{
		WithAllTimeCapacity(cfg.AllTimeCapacity),
		WithDailyTTL(cfg.DailyTTL()),
		WithPurgeInterval(cfg.PurgeInterval()),
	}

	switch cfg.Store {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		base = append(base,
			WithStore(repository.NewRedisStore(client, cfg.RedisKeyPrefix)),
			withCloser(client.Close),
		)
	case config.StoreMemory, "":
	default:
		return nil, fmt.Errorf("%w: unknown store %q", config.ErrInvalidConfig, cfg.Store)
	}

	return New(append(base, opts...)...), nil
}
