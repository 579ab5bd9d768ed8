// Postrelay fetches the latest post of an account and sends it to a
// webhook, whenever it's asked to over HTTP or on an interval.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/jdholdren/postrelay/internal/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(envconfig.OsLookuper()).ExecuteContext(ctx); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(lookuper envconfig.Lookuper) *cobra.Command {
	var cfg config

	root := &cobra.Command{
		Use:           "postrelay",
		Short:         "Relays the latest post of an account to a webhook",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = loadConfig(cmd.Context(), lookuper)
			if err != nil {
				return err
			}

			slog.SetDefault(logger.New(os.Stderr, cfg.LoggerFormat, cfg.LogLevel))

			if err := cfg.validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return nil
		},
		// Serving is what it does without a subcommand.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg)
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the trigger endpoint and run relays in the background",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), cfg)
			},
		},
		newFetchCmd(&cfg),
	)

	return root
}
