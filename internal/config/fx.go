package config

import "go.uber.org/fx"

// Module wires application and merchant configuration.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewMerchantConfigHolder),
)
