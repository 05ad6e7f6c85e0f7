package clientdi

import (
	"github.com/webitel/hose-relay/config"
	"github.com/webitel/hose-relay/infra/upstream"
	"github.com/webitel/hose-relay/internal/domain/firehose"
	"github.com/webitel/hose-relay/internal/domain/registry"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"clients",

	// [CONSTRUCTOR] Provides the firehose dialer shared by every session
	fx.Provide(
		fx.Annotate(
			func(cfg *config.Config) (*upstream.Dialer, error) {
				return upstream.NewDialer(cfg.Upstream.URL, cfg.Upstream.UserAgent, cfg.Upstream.DialTimeout)
			},
			fx.As(new(registry.Dialer)),
		),
	),

	// [DECODER] One immutable pipeline, read-only across sessions
	fx.Provide(
		firehose.NewDecoder,
		firehose.DefaultRecords,
		fx.Annotate(
			firehose.NewPipeline,
			fx.As(new(registry.Processor)),
		),
	),
)
