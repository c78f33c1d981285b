package shippinggateway

import (
	"github.com/smallbiznis/kassa/internal/shippinggateway/repository"
	"github.com/smallbiznis/kassa/internal/shippinggateway/service"
	"go.uber.org/fx"
)

var Module = fx.Module("shippinggateway.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
