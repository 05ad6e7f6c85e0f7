package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"
	"github.com/webitel/hose-relay/config"
)

const (
	ServiceName      = "hose-relay"
	ServiceNamespace = "webitel"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

func Run() error {
	return newCLI().Run(os.Args)
}

func newCLI() *cli.App {
	return &cli.App{
		Name:    ServiceName,
		Usage:   "Relay live Bluesky posts to WebSocket subscribers",
		Version: version,
		Commands: []*cli.Command{
			serverCmd(),
		},
	}
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:      "server",
		Aliases:   []string{"s"},
		Usage:     "Run the relay server",
		ArgsUsage: "[--config_file=relay.yaml] [--http.addr=:8080] [--relay.rate_limit=15] ...",
		// Every argument belongs to the config flag set.
		SkipFlagParsing: true,
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(os.Getenv("HOSE_CONFIG_FILE"), c.Args().Slice())
			if errors.Is(err, pflag.ErrHelp) {
				return nil
			}
			if err != nil {
				return err
			}
			app := NewApp(cfg)

			startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancelStart()
			if err := app.Start(startCtx); err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-sigCtx.Done()

			slog.Info("Shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return app.Stop(ctx)
		},
	}
}
