package reconcile

import (
	"github.com/brizzai/tigoplanes/internal/auth"
	"github.com/brizzai/tigoplanes/internal/config"
	"github.com/brizzai/tigoplanes/internal/deeplink"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	DeepLink  *config.DeepLinkConfig
	Reconcile *config.ReconcileConfig
	Auth      *auth.Service
	Deduper   Deduper
	Recorder  Recorder `optional:"true"`
}

// NewRouterFromConfig wires the link pipeline against the session facade.
func NewRouterFromConfig(params RouterParams) *Router {
	extractor := deeplink.NewExtractor(params.DeepLink.VerifyEndpoints)
	gate := deeplink.NewGate(params.DeepLink.CallbackMarkers, extractor)
	machine := NewMachine(params.Auth, TimingFromConfig(params.Reconcile), params.Recorder)
	return NewRouter(extractor, gate, machine, params.Deduper, params.Recorder)
}

// Module provides the callback Router.
var Module = fx.Module("reconcile",
	fx.Provide(
		NewDeduper,
		NewRouterFromConfig,
	),
	fx.Invoke(func(lc fx.Lifecycle, d Deduper) {
		lc.Append(fx.StopHook(d.Close))
	}),
)
