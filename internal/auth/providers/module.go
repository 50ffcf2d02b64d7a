package providers

import "go.uber.org/fx"

// Module provides the identity provider client
var Module = fx.Module("providers",
	fx.Provide(
		fx.Annotate(
			NewGoTrueProvider,
			fx.As(new(Provider)),
		),
	),
)
