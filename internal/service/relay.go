package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/webitel/hose-relay/config"
	"github.com/webitel/hose-relay/internal/domain/model"
	"github.com/webitel/hose-relay/internal/domain/registry"
)

// [RELAY_SERVICE] PRIMARY INTERFACE FOR TRANSPORT HANDLERS
type Relayer interface {
	// Subscribe builds a session for an accepted subscriber socket and
	// registers it. The caller runs it and must Unsubscribe afterwards.
	Subscribe(ctx context.Context, conn registry.Conn, opts ...registry.Option) (*registry.Session, error)
	Unsubscribe(id uuid.UUID)
	Stats() model.HubStats
}

type RelayService struct {
	hub       registry.Hubber
	dialer    registry.Dialer
	processor registry.Processor
	recorder  registry.Recorder
	logger    *slog.Logger
	cfg       config.RelayConfig
	dial      config.UpstreamConfig
}

func NewRelayService(
	hub registry.Hubber,
	dialer registry.Dialer,
	processor registry.Processor,
	recorder registry.Recorder,
	logger *slog.Logger,
	cfg *config.Config,
) *RelayService {
	return &RelayService{
		hub:       hub,
		dialer:    dialer,
		processor: processor,
		recorder:  recorder,
		logger:    logger,
		cfg:       cfg.Relay,
		dial:      cfg.Upstream,
	}
}

// [SUBSCRIBE] HANDLES SESSION LIFECYCLE INITIATION
func (s *RelayService) Subscribe(_ context.Context, conn registry.Conn, opts ...registry.Option) (*registry.Session, error) {
	// Configured defaults first so callers can override per connection.
	base := []registry.Option{
		registry.WithRateLimit(s.cfg.RateLimit, s.cfg.RateWindow),
		registry.WithOutboxSize(s.cfg.OutboxSize),
		registry.WithWriteTimeout(s.cfg.WriteTimeout),
		registry.WithDialTimeout(s.dial.DialTimeout),
		registry.WithRecorder(s.recorder),
		registry.WithLogger(s.logger),
	}

	session := registry.NewSession(conn, s.dialer, s.processor, append(base, opts...)...)
	s.hub.Register(session)
	return session, nil
}

// [UNSUBSCRIBE] RELEASES THE REGISTRY ENTRY
func (s *RelayService) Unsubscribe(id uuid.UUID) {
	s.hub.Unregister(id)
}

func (s *RelayService) Stats() model.HubStats {
	return s.hub.Stats()
}
