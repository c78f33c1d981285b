package quote

import (
	"github.com/smallbiznis/kassa/internal/quote/repository"
	"go.uber.org/fx"
)

// Module wires the reference host adapter. Deployments integrating a real
// shop platform compose their own fx app with adapter implementations of
// domain.Repository and domain.OrderWriter instead.
var Module = fx.Module("quote.store",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideOrderWriter),
)
