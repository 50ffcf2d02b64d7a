package auth

import (
	"context"

	"github.com/brizzai/tigoplanes/internal/logger"
	"github.com/brizzai/tigoplanes/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the session facade. The stored session is restored when
// the application starts and observers are released when it stops.
var Module = fx.Module("auth",
	fx.Provide(
		NewSessionStore,
		func(r *store.ProfileRepository) ProfileStore { return r },
		NewService,
	),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := svc.Restore(ctx); err != nil {
				logger.Warn("failed to restore session", zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return svc.Close()
		},
	})
}
