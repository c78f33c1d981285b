package locker

import (
	"github.com/smallbiznis/kassa/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the cart locker: redis when configured, in-process
// otherwise.
var Module = fx.Module("locker",
	fx.Provide(func(cfg config.Config, log *zap.Logger) Locker {
		if cfg.RedisAddr == "" {
			log.Info("redis not configured, using in-process cart locks")
			return NewMemoryLocker()
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisLocker(client)
	}),
)
