package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/webitel/hose-relay/infra/server/http/interceptors"
	"github.com/webitel/hose-relay/internal/domain/registry"
	wsmarshaller "github.com/webitel/hose-relay/internal/handler/marshaller/ws"
	"github.com/webitel/hose-relay/internal/service"
)

type WSHandler struct {
	logger     *slog.Logger
	relayer    service.Relayer
	marshaller *wsmarshaller.Marshaller
	upgrader   websocket.Upgrader
}

func NewWSHandler(logger *slog.Logger, relayer service.Relayer, marshaller *wsmarshaller.Marshaller) *WSHandler {
	return &WSHandler{
		logger:     logger,
		relayer:    relayer,
		marshaller: marshaller,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Public feed, any origin
		},
	}
}

// wantsCompression reports whether the subscriber asked for zstd frames.
func wantsCompression(r *http.Request) bool {
	return r.URL.Query().Get("compress") == "true" ||
		strings.EqualFold(r.Header.Get("Socket-Encoding"), "zstd")
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1. IDENTITY (set by the auth interceptor)
	logger := h.logger.With("remote_addr", r.RemoteAddr)
	if account, ok := interceptors.GetAccount(r.Context()); ok {
		logger = logger.With("account_id", account.ID)
	}

	// 2. UPGRADE TO WEBSOCKET
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("ws upgrade failed", "error", err)
		return
	}

	// 3. SUBSCRIBE VIA THE RELAY SERVICE
	compress := wantsCompression(r)
	session, err := h.relayer.Subscribe(r.Context(), ws,
		registry.WithRemoteAddr(r.RemoteAddr),
		registry.WithEncoder(h.marshaller.Encoder(compress)),
		registry.WithLogger(logger),
	)
	if err != nil {
		logger.Error("subscribe failed", "error", err)
		_ = ws.Close()
		return
	}
	defer h.relayer.Unsubscribe(session.ID())

	logger.Info("ws opened", "session_id", session.ID(), "compress", compress)

	// 4. RELAY UNTIL EITHER SIDE CLOSES
	if err := session.Run(r.Context()); err != nil {
		logger.Warn("ws relay ended", "session_id", session.ID(), "error", err)
		return
	}
	logger.Info("ws closed", "session_id", session.ID())
}
