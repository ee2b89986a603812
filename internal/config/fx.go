package config

import "go.uber.org/fx"

// Module provides process configuration to the fx graph.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewReportingConfigHolder),
)
