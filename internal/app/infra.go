package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jjavieralv/x402-video/internal/config"
	"github.com/jjavieralv/x402-video/internal/redis"
)

type Infra struct {
	Redis *redis.Client
}

// setupInfra connects external infrastructure. Only the redis session
// backend needs any; the default memory backend runs self-contained.
func setupInfra(_ context.Context, cfg config.Config, log zerolog.Logger) (*Infra, error) {
	infra := &Infra{}

	if cfg.SessionBackend == "redis" {
		redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		infra.Redis = redisClient

		log.Info().Str("addr", cfg.RedisAddr).Msg("redis ready")
	}

	return infra, nil
}
