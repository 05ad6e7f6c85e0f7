// Package handler assembles the HTTP surface of the relay.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/webitel/hose-relay/infra/metrics"
	"github.com/webitel/hose-relay/infra/server/http/interceptors"
	wsmarshaller "github.com/webitel/hose-relay/internal/handler/marshaller/ws"
	"github.com/webitel/hose-relay/internal/handler/rest"
	"github.com/webitel/hose-relay/internal/handler/ws"
	"github.com/webitel/hose-relay/internal/service"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	Logger  *slog.Logger
	Auther  service.Auther
	WS      *ws.WSHandler
	Stats   *rest.StatsHandler
	DID     *rest.DIDHandler
	Metrics *metrics.Metrics
}

// NewRouter serves the banner and the WebSocket relay on "/", plus the
// operational endpoints.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	relay := interceptors.NewAuthInterceptor(p.Auther, p.Logger)(p.WS)
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		if websocket.IsWebSocketUpgrade(req) {
			relay.ServeHTTP(w, req)
			return
		}
		rest.Banner(w, req)
	})

	r.Get("/healthz", rest.Health)
	r.Get("/stats", p.Stats.Stats)
	r.Get("/did", p.DID.ResolveMany)
	r.Get("/did/{did}", p.DID.Resolve)
	r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())

	return r
}

var Module = fx.Module("handler",
	fx.Provide(
		wsmarshaller.New,
		ws.NewWSHandler,
		rest.NewStatsHandler,
		rest.NewDIDHandler,
		NewRouter,
	),
	fx.Invoke(func(lc fx.Lifecycle, m *wsmarshaller.Marshaller) {
		lc.Append(fx.StopHook(m.Close))
	}),
)
