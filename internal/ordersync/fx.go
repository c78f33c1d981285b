package ordersync

import (
	"github.com/smallbiznis/kassa/internal/ordersync/repository"
	"github.com/smallbiznis/kassa/internal/ordersync/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ordersync.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
