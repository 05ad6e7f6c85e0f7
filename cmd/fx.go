package cmd

import (
	"github.com/webitel/hose-relay/config"
	clientdi "github.com/webitel/hose-relay/infra/client/di"
	httpsrv "github.com/webitel/hose-relay/infra/server/http"
	"github.com/webitel/hose-relay/internal/domain/registry"
	"github.com/webitel/hose-relay/internal/handler"
	"github.com/webitel/hose-relay/internal/service"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideTracerProvider,
			ProvideMetrics,
		),
		fx.Invoke(func(tp *sdktrace.TracerProvider) error { return nil }),
		clientdi.Module,
		service.Module,
		registry.Module,
		handler.Module,
		httpsrv.Module,
	)
}
