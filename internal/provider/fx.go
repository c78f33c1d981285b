package provider

import (
	"github.com/smallbiznis/kassa/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("provider.client",
	fx.Provide(func(cfg config.Config, log *zap.Logger) (*Client, error) {
		return NewClient(cfg.Provider, log)
	}),
)
