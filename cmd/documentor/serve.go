package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"documentor/internal/config"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Load configuration, wire the ingest and query pipelines, and serve the HTTP API until interrupted.",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	var opts []config.LoadOption
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		opts = append(opts, config.WithOverride("server.listen", listen))
	}

	cfg, err := loadConfig(cmd, opts...)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := setupLogging(cmd, cfg.Log); err != nil {
		return err
	}

	app, err := Wire(cfg, slog.Default())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s (upload to /api/ingest, chat at /api/chat)\n", cfg.Server.Listen)
	return app.Server.Start(ctx)
}
