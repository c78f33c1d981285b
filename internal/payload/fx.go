package payload

import (
	"github.com/smallbiznis/kassa/internal/attachment"
	"github.com/smallbiznis/kassa/internal/config"
	"github.com/smallbiznis/kassa/internal/hooks"
	"github.com/smallbiznis/kassa/internal/orderline"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payload.builder",
	fx.Provide(orderline.NewRegistry),
	fx.Provide(func() *attachment.Registry {
		return attachment.NewRegistry(
			attachment.NewCustomerAccountCollector(),
			attachment.NewOtherDeliveryAddressCollector(),
		)
	}),
	fx.Provide(hooks.NewRegistry),
	fx.Provide(func(cfg config.Config, merchant *config.MerchantConfigHolder, lines *orderline.Registry, attachments *attachment.Registry, hookRegistry *hooks.Registry, log *zap.Logger) *Builder {
		return NewBuilder(cfg.Provider, merchant, lines, attachments, hookRegistry, log)
	}),
)
