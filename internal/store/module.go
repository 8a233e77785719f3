package store

import "go.uber.org/fx"

func Module(config Config) fx.Option {
	return fx.Module(
		"store",
		// provide store config
		fx.Supply(config),
		// provide connection pool
		fx.Provide(NewLifecyclePool),
		// provide invocation journal
		fx.Provide(NewJournal),
	)
}
