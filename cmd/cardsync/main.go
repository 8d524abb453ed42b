package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sonroyaalmerol/cardsync/internal/app"
	"github.com/sonroyaalmerol/cardsync/internal/config"
	"github.com/sonroyaalmerol/cardsync/internal/logging"
	"github.com/sonroyaalmerol/cardsync/internal/syncer"
)

type cli struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "cardsync",
		Short:         "One-way CardDAV contact sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default: search standard locations)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level, overrides the config file")

	root.AddCommand(
		newInitCmd(c),
		newSyncCmd(c),
		newStatusCmd(c),
		newHistoryCmd(c),
	)
	return root
}

func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Locate(c.configPath))
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	c.cfg = cfg
	c.logger = logging.New(cfg.LogLevel, cmd.ErrOrStderr())
	for _, k := range cfg.Unknown {
		c.logger.Warn().Str("key", k).Str("file", cfg.Path).Msg("unknown config key")
	}
	return nil
}

// syncer builds the wired syncer; the cleanup must be called when done.
func (c *cli) syncer(ctx context.Context) (*syncer.Syncer, func(), error) {
	return app.New(ctx, c.cfg, c.logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprint(os.Stderr, formatError(err))
		stop()
		os.Exit(1)
	}
}
