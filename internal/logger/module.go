package logger

import (
	"context"

	"github.com/brizzai/tigoplanes/internal/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Module builds the process logger from config, installs it as the global
// logger and flushes it when the application stops.
var Module = fx.Module("logger",
	fx.Provide(provide),
)

// FxLogger routes fx lifecycle events through zap at debug level.
func FxLogger(l *zap.Logger) fxevent.Logger {
	zl := &fxevent.ZapLogger{Logger: l.Named("fx")}
	zl.UseLogLevel(zap.DebugLevel)
	return zl
}

func provide(lc fx.Lifecycle, cfg *config.LoggingConfig) (*zap.Logger, error) {
	l, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	setGlobal(l)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			// Sync on stderr returns EINVAL on some platforms.
			_ = l.Sync()
			return nil
		},
	})
	return l, nil
}
