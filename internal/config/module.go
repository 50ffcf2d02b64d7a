package config

import "go.uber.org/fx"

// Module exposes the sections of an already loaded *Config to the graph.
// The caller supplies the *Config (fx.Supply) after Load.
var Module = fx.Module("config",
	fx.Provide(
		func(c *Config) *ServerConfig { return &c.Server },
		func(c *Config) *LoggingConfig { return &c.Logging },
		func(c *Config) *BackendConfig { return &c.Backend },
		func(c *Config) *DeepLinkConfig { return &c.DeepLink },
		func(c *Config) *ReconcileConfig { return &c.Reconcile },
		func(c *Config) *DedupeConfig { return &c.Dedupe },
		func(c *Config) *SessionConfig { return &c.Session },
		func(c *Config) *AppLinksConfig { return &c.AppLinks },
	),
)
