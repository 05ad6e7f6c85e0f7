package service

import (
	"github.com/webitel/hose-relay/infra/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		// Domain services
		fx.Annotate(
			NewRelayService,
			fx.As(new(Relayer)),
		),
		fx.Annotate(
			NewPLCResolver,
			fx.As(new(DIDResolver)),
		),
		NewAuther,
		func(m *metrics.Metrics) LookupRecorder { return m },
	),

	// [DECORATION_LAYER] Intercept DIDResolver to add cross-cutting concerns
	fx.Decorate(NewResolverMiddleware),
)
