package httpsrv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/webitel/hose-relay/config"
	"go.uber.org/fx"
)

// Server owns the listener the router is served on.
type Server struct {
	*http.Server
	logger *slog.Logger
	addr   net.Addr
}

func New(cfg *config.Config, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Server.Addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", s.Server.Addr, err)
	}
	s.addr = ln.Addr()

	go func() {
		if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP_SERVER_FAILED", "err", err)
		}
	}()

	s.logger.Info("HTTP_SERVER_STARTED", "addr", s.addr.String())
	return nil
}

// ListenAddr is the bound address, useful when listening on port 0.
func (s *Server) ListenAddr() net.Addr { return s.addr }

// Stop stops accepting requests. Hijacked WebSocket connections are not
// tracked by net/http; the registry closes those.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP_SERVER_STOPPING")
	return s.Shutdown(ctx)
}

var Module = fx.Module("http-server",
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error { return s.Start() },
			OnStop:  s.Stop,
		})
	}),
)
