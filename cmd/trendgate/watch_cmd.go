package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/trendgate/trendgate/internal/application"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the automatic scan and position watcher loop",
		Long: `Starts the full service: scheduled AUTO scans per timeframe, the live price
stream, position lifecycle tracking and the read-only HTTP API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := application.LoadConfig(flagConfig)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := application.New(ctx, cfg)
			if err != nil {
				return err
			}

			log.Info().
				Strs("symbols", cfg.Symbols).
				Strs("timeframes", cfg.Timeframes).
				Str("http", cfg.HTTP.Addr).
				Msg("watcher starting")

			return app.Run(ctx)
		},
	}
}
