package handler_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/hose-relay/config"
	"github.com/webitel/hose-relay/infra/metrics"
	"github.com/webitel/hose-relay/infra/upstream"
	"github.com/webitel/hose-relay/internal/domain/firehose"
	"github.com/webitel/hose-relay/internal/domain/firehose/firehosetest"
	"github.com/webitel/hose-relay/internal/domain/model"
	"github.com/webitel/hose-relay/internal/domain/registry"
	"github.com/webitel/hose-relay/internal/handler"
	wsmarshaller "github.com/webitel/hose-relay/internal/handler/marshaller/ws"
	"github.com/webitel/hose-relay/internal/handler/rest"
	"github.com/webitel/hose-relay/internal/handler/ws"
	"github.com/webitel/hose-relay/internal/service"
)

// fakeFirehose serves the given frames to every subscriber and reports the
// close code it receives.
func fakeFirehose(t *testing.T, frames ...[]byte) (*httptest.Server, <-chan int) {
	t.Helper()
	closed := make(chan int, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.BinaryMessage, f); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				code := 0
				if ce, ok := err.(*websocket.CloseError); ok {
					code = ce.Code
				}
				closed <- code
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, closed
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

type fixture struct {
	server *httptest.Server
	hub    *registry.Hub
}

func newFixture(t *testing.T, cfg *config.Config, upstreamURL string) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	decoder, err := firehose.NewDecoder()
	require.NoError(t, err)
	pipeline := firehose.NewPipeline(decoder, firehose.DefaultRecords())

	dialer, err := upstream.NewDialer(upstreamURL, "hose-relay/test", time.Second)
	require.NoError(t, err)

	m := metrics.New()
	hub := registry.NewHub()
	relayer := service.NewRelayService(hub, dialer, pipeline, m, logger, cfg)

	resolver, err := service.NewPLCResolver(cfg, m, logger)
	require.NoError(t, err)

	marshaller, err := wsmarshaller.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = marshaller.Close() })

	router := handler.NewRouter(handler.RouterParams{
		Logger:  logger,
		Auther:  service.NewAuther(cfg, logger),
		WS:      ws.NewWSHandler(logger, relayer, marshaller),
		Stats:   rest.NewStatsHandler(relayer),
		DID:     rest.NewDIDHandler(resolver),
		Metrics: m,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &fixture{server: srv, hub: hub}
}

func debugConfig() *config.Config {
	return &config.Config{
		Debug: true,
		Relay: config.RelayConfig{
			RateLimit:    15,
			RateWindow:   time.Second,
			OutboxSize:   16,
			WriteTimeout: time.Second,
		},
		Upstream: config.UpstreamConfig{DialTimeout: time.Second},
		DID:      config.DIDConfig{Directory: "http://127.0.0.1:1", Timeout: time.Second, CacheSize: 8},
		Auth:     config.AuthConfig{Timeout: time.Second},
	}
}

func TestRelayEndToEnd(t *testing.T) {
	fh, upstreamClosed := fakeFirehose(t,
		firehosetest.PostFrame("did:plc:abc", "3kabc", firehosetest.Post("")),
		firehosetest.PostFrame("did:plc:abc", "3kabc", firehosetest.Post("hello",
			firehosetest.TagFacet("a"),
			firehosetest.MentionFacet("did:x"),
			firehosetest.TagFacet("a"),
		)),
	)
	f := newFixture(t, debugConfig(), wsURL(fh.URL))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(f.server.URL)+"/", nil)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)

	var post model.RelayedPost
	require.NoError(t, json.Unmarshal(data, &post))
	assert.Equal(t, model.RelayedPost{
		Text:      "hello",
		DID:       "did:plc:abc",
		Rev:       "3kabc",
		CreatedAt: "2024-11-05T12:00:00.000Z",
		Tags:      []string{"a", "a"},
		Mentions:  []string{"did:x"},
	}, post)

	require.Eventually(t, func() bool { return f.hub.Stats().ActiveSessions == 1 }, time.Second, 5*time.Millisecond)

	// Subscriber leaves: the upstream must be closed too.
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	select {
	case code := <-upstreamClosed:
		assert.Equal(t, websocket.CloseNormalClosure, code)
	case <-time.After(2 * time.Second):
		t.Fatal("upstream was not closed")
	}
	require.Eventually(t, func() bool { return f.hub.Stats().ActiveSessions == 0 }, time.Second, 5*time.Millisecond)
}

func TestRelayCompressed(t *testing.T) {
	fh, _ := fakeFirehose(t, firehosetest.PostFrame("did:plc:abc", "r", firehosetest.Post("zipped")))
	f := newFixture(t, debugConfig(), wsURL(fh.URL))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(f.server.URL)+"/?compress=true", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	raw, err := dec.DecodeAll(data, nil)
	require.NoError(t, err)

	var post model.RelayedPost
	require.NoError(t, json.Unmarshal(raw, &post))
	assert.Equal(t, "zipped", post.Text)
}

func TestRelayUpstreamUnavailable(t *testing.T) {
	f := newFixture(t, debugConfig(), "ws://127.0.0.1:1/xrpc/com.atproto.sync.subscribeRepos")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(f.server.URL)+"/", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.CloseInternalServerErr, ce.Code)
	assert.Equal(t, "upstream unavailable", ce.Text)
}

func TestRelayRequiresAuth(t *testing.T) {
	account := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.Header.Get("X-Appwrite-Session"); token == "valid" {
			_, _ = io.WriteString(w, `{"$id":"valid"}`)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer account.Close()

	fh, _ := fakeFirehose(t)
	cfg := debugConfig()
	cfg.Debug = false
	cfg.Auth.Endpoint = account.URL
	f := newFixture(t, cfg, wsURL(fh.URL))

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(f.server.URL)+"/", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{"Authorization": []string{"Bearer valid"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(f.server.URL)+"/", header)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestOperationalRoutes(t *testing.T) {
	fh, _ := fakeFirehose(t)
	f := newFixture(t, debugConfig(), wsURL(fh.URL))

	get := func(path string) (int, string) {
		resp, err := http.Get(f.server.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	status, body := get("/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "WebSocket")

	status, body = get("/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	status, body = get("/stats")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"active_sessions":0`)

	status, _ = get("/did/did:web:example.com")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = get("/did")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = get("/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "hose_relay_sessions_total")
}

func TestDIDRoute(t *testing.T) {
	directory := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/did:plc:missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"@context":["https://www.w3.org/ns/did/v1"],"id":"did:plc:abc","alsoKnownAs":["at://alice.test"]}`)
	}))
	defer directory.Close()

	fh, _ := fakeFirehose(t)
	cfg := debugConfig()
	cfg.DID.Directory = directory.URL
	f := newFixture(t, cfg, wsURL(fh.URL))

	resp, err := http.Get(f.server.URL + "/did/did:plc:abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Handle   string             `json:"handle"`
		Document *model.DIDDocument `json:"document"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "alice.test", got.Handle)
	assert.Equal(t, "did:plc:abc", got.Document.ID)

	missing, err := http.Get(f.server.URL + "/did/did:plc:missing")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}
