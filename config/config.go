package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "HOSE"
	configFileFlag = "config_file"
)

type Config struct {
	Debug    bool           `mapstructure:"debug"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Auth     AuthConfig     `mapstructure:"auth"`
	DID      DIDConfig      `mapstructure:"did"`
	Log      LogConfig      `mapstructure:"log"`
	Trace    TraceConfig    `mapstructure:"trace"`

	// LogLevel is shared with the logger so file changes apply without a restart.
	LogLevel *slog.LevelVar `mapstructure:"-"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type UpstreamConfig struct {
	URL         string        `mapstructure:"url"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
}

type RelayConfig struct {
	RateWindow   time.Duration `mapstructure:"rate_window"`
	RateLimit    int           `mapstructure:"rate_limit"`
	OutboxSize   int           `mapstructure:"outbox_size"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type AuthConfig struct {
	Endpoint  string        `mapstructure:"endpoint"`
	ProjectID string        `mapstructure:"project_id"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type DIDConfig struct {
	Directory string        `mapstructure:"directory"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheSize int           `mapstructure:"cache_size"`
	RPS       float64       `mapstructure:"rps"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// Otel routes records through the OpenTelemetry log SDK instead of the
	// plain JSON handler.
	Otel bool `mapstructure:"otel"`
}

type TraceConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("upstream.url", "wss://bsky.network/xrpc/com.atproto.sync.subscribeRepos")
	v.SetDefault("upstream.dial_timeout", 5*time.Second)
	v.SetDefault("upstream.user_agent", "hose-relay")
	v.SetDefault("relay.rate_window", time.Second)
	v.SetDefault("relay.rate_limit", 15)
	v.SetDefault("relay.outbox_size", 64)
	v.SetDefault("relay.write_timeout", 5*time.Second)
	v.SetDefault("auth.endpoint", "")
	v.SetDefault("auth.project_id", "")
	v.SetDefault("auth.api_key", "")
	v.SetDefault("auth.timeout", 5*time.Second)
	v.SetDefault("did.directory", "https://plc.directory")
	v.SetDefault("did.timeout", 5*time.Second)
	v.SetDefault("did.cache_size", 4096)
	v.SetDefault("did.rps", 10.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.otel", false)
	v.SetDefault("trace.enabled", false)
	v.SetDefault("trace.sample_ratio", 0.01)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("hose-relay", pflag.ContinueOnError)
	fs.String("http.addr", "", "HTTP listen address")
	fs.String("upstream.url", "", "Firehose subscribeRepos endpoint")
	fs.Int("relay.rate_limit", 0, "Posts per window and subscriber (<= 0 disables the cap)")
	fs.Duration("relay.rate_window", 0, "Rate limit window")
	fs.String("log.level", "", "Log level: debug, info, warn, error")
	fs.Bool("log.otel", false, "Emit logs through the OpenTelemetry log SDK")
	fs.Bool("trace.enabled", false, "Export spans")
	fs.Float64("trace.sample_ratio", 0, "Fraction of root spans sampled")
	fs.Bool("debug", false, "Skip subscriber authentication")
	fs.String(configFileFlag, "", "Path to the configuration file")
	return fs
}

// LoadConfig reads defaults, then the optional file, then HOSE_* env vars,
// then flags from args. Later sources win. A --config_file flag in args
// replaces file.
func LoadConfig(file string, args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: flags: %w", err)
	}
	// Only flags set explicitly override lower layers.
	var bindErr error
	fs.Visit(func(f *pflag.Flag) {
		if f.Name == configFileFlag {
			file = f.Value.String()
			return
		}
		if err := v.BindPFlag(f.Name, f); err != nil {
			bindErr = errors.Join(bindErr, err)
		}
	})
	if bindErr != nil {
		return nil, fmt.Errorf("config: bind flags: %w", bindErr)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if file != "" {
		watch(v, cfg.LogLevel)
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = new(slog.LevelVar)
	cfg.LogLevel.Set(level)
	return &cfg, nil
}

// watch re-applies log.level whenever the config file changes. Other keys
// need a restart.
func watch(v *viper.Viper, level *slog.LevelVar) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := ParseLevel(v.GetString("log.level"))
		if err != nil {
			slog.Warn("CONFIG_RELOAD_REJECTED", "file", e.Name, "err", err)
			return
		}
		if next != level.Level() {
			level.Set(next)
			slog.Info("CONFIG_LOG_LEVEL_CHANGED", "file", e.Name, "level", next)
		}
	})
	v.WatchConfig()
}

func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.Upstream.URL == "" {
		errs = append(errs, errors.New("upstream.url is required"))
	}
	if c.Relay.OutboxSize <= 0 {
		errs = append(errs, errors.New("relay.outbox_size must be positive"))
	}
	if c.DID.CacheSize <= 0 {
		errs = append(errs, errors.New("did.cache_size must be positive"))
	}
	// Outbound calls must always carry a deadline.
	if c.Upstream.DialTimeout <= 0 {
		errs = append(errs, errors.New("upstream.dial_timeout must be positive"))
	}
	if c.Auth.Timeout <= 0 {
		errs = append(errs, errors.New("auth.timeout must be positive"))
	}
	if c.DID.Timeout <= 0 {
		errs = append(errs, errors.New("did.timeout must be positive"))
	}
	if c.Trace.SampleRatio < 0 || c.Trace.SampleRatio > 1 {
		errs = append(errs, errors.New("trace.sample_ratio must be within [0, 1]"))
	}
	if !c.Debug && c.Auth.Endpoint == "" {
		errs = append(errs, errors.New("auth.endpoint is required unless debug is set"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return level, nil
}
