package handler

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module("handler",
		fx.Provide(NewScriptHandler),
		fx.Provide(NewRPCHandler),
		fx.Provide(NewHealthHandler),
		fx.Provide(NewScriptRoute),
		fx.Provide(NewRPCRoute),
		fx.Provide(NewHealthRoute),
		fx.Provide(NewMetricsRoute),
	)
}
