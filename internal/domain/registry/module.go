package registry

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("registry",
	fx.Provide(
		NewHub,
		fx.Annotate(
			func(h *Hub) Hubber { return h },
			fx.As(new(Hubber)),
		),
	),
	fx.Invoke(func(lc fx.Lifecycle, h Hubber) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				h.Shutdown() // [GRACEFUL_SHUTDOWN] Close every relay session
				return nil
			},
		})
	}),
)
