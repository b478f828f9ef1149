package session

import (
	"cafe_admin/internal/cafe"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"session",
		fx.Provide(
			NewStore,
			func(store *Store) cafe.TokenSource { return store },
			func(client *cafe.Client, store *Store, logger *zap.Logger) *Auth {
				return NewAuth(client, store, logger)
			},
		),
		fx.Invoke(func(store *Store) error {
			return store.Load()
		}),
	)
}
