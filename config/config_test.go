package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/hose-relay/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig("", []string{"--debug"})
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "wss://bsky.network/xrpc/com.atproto.sync.subscribeRepos", cfg.Upstream.URL)
	assert.Equal(t, 15, cfg.Relay.RateLimit)
	assert.Equal(t, time.Second, cfg.Relay.RateWindow)
	assert.Equal(t, 5*time.Second, cfg.Auth.Timeout)
	assert.Equal(t, 5*time.Second, cfg.DID.Timeout)
	assert.Equal(t, "https://plc.directory", cfg.DID.Directory)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel.Level())
}

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
debug: true
http:
  addr: ":9000"
relay:
  rate_limit: 3
  rate_window: 2s
log:
  level: debug
`), 0o600))

	t.Setenv("HOSE_HTTP_ADDR", ":9100")

	cfg, err := config.LoadConfig(file, []string{"--relay.rate_limit=7"})
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.HTTP.Addr)
	assert.Equal(t, 7, cfg.Relay.RateLimit)
	assert.Equal(t, 2*time.Second, cfg.Relay.RateWindow)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel.Level())
}

func TestLoadConfigValidation(t *testing.T) {
	_, err := config.LoadConfig("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.endpoint")

	_, err = config.LoadConfig("", []string{"--debug", "--log.level=loud"})
	assert.Error(t, err)

	_, err = config.LoadConfig("", []string{"--no-such-flag"})
	assert.Error(t, err)

	_, err = config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), []string{"--debug"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	level, err := config.ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestLoadConfigRejectsMissingDeadlines(t *testing.T) {
	tests := []struct {
		env string
		key string
	}{
		{env: "HOSE_AUTH_TIMEOUT", key: "auth.timeout"},
		{env: "HOSE_DID_TIMEOUT", key: "did.timeout"},
		{env: "HOSE_UPSTREAM_DIAL_TIMEOUT", key: "upstream.dial_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			for _, value := range []string{"0s", "-1s"} {
				t.Setenv(tt.env, value)
				_, err := config.LoadConfig("", []string{"--debug"})
				require.Error(t, err, value)
				assert.Contains(t, err.Error(), tt.key)
			}
		})
	}
}

func TestLoadConfigFileFlag(t *testing.T) {
	file := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(file, []byte("debug: true\ntrace:\n  enabled: true\n  sample_ratio: 0.5\n"), 0o600))

	cfg, err := config.LoadConfig("", []string{"--config_file=" + file})
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.Trace.Enabled)
	assert.InDelta(t, 0.5, cfg.Trace.SampleRatio, 1e-9)

	_, err = config.LoadConfig("", []string{"--debug", "--trace.sample_ratio=2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trace.sample_ratio")
}
