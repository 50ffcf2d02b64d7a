package catalog

import (
	"github.com/brizzai/tigoplanes/internal/auth"
	"github.com/brizzai/tigoplanes/internal/store"
	"go.uber.org/fx"
)

// Module provides the plan and hiring services.
var Module = fx.Module("catalog",
	fx.Provide(
		func(s *auth.Service) Identity { return s },
		func(r *store.PlanRepository) PlanRows { return r },
		func(r *store.HiringRepository) HiringRows { return r },
		func(b *store.BlobStore) Blobs { return b },
		NewPlanService,
		NewHiringService,
	),
)
