package cafe

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module(
		"cafe",
		fx.Provide(NewClient),
	)
}
