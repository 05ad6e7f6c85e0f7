package httpsrv_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/hose-relay/config"
	httpsrv "github.com/webitel/hose-relay/infra/server/http"
)

func TestServerLifecycle(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{Addr: "127.0.0.1:0"}}
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	s := httpsrv.New(cfg, handler, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, s.Start())
	resp, err := http.Get("http://" + s.ListenAddr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	require.NoError(t, s.Stop(context.Background()))
	_, err = http.Get("http://" + s.ListenAddr().String() + "/")
	assert.Error(t, err)
}
