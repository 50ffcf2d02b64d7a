package store

import "go.uber.org/fx"

// Module provides the backend row repositories and object storage
var Module = fx.Module("store",
	fx.Provide(
		NewRows,
		NewProfileRepository,
		NewPlanRepository,
		NewHiringRepository,
		NewBlobStore,
	),
)
