package requester

import (
	"go.uber.org/fx"
)

// Module provides the requester module dependencies
var Module = fx.Module("requester",
	fx.Provide(
		fx.Annotate(
			NewHTTPAuthManager,
			fx.As(new(AuthManager)),
		),
		NewHTTPRequestBuilder,
		fx.Annotate(
			NewHTTPRequester,
			fx.As(new(Doer)),
		),
	),
)
