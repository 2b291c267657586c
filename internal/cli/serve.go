package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/br-emissions/internal/core/server"
	"github.com/mohammed-shakir/br-emissions/internal/metrics"
)

func newServeCmd(g *globalFlags, version string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard JSON API over HTTP",
		Example: `  dashboard serve --addr :8090 --data "co2estados(1972-2023).csv"
  REDIS_ADDR=localhost:6379 dashboard serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			log := newLogger(cfg, "server", os.Stdout)
			log.Info("starting dashboard",
				"addr", cfg.Addr,
				"version", version,
				"data", cfg.DataSource,
				"boundaries", cfg.BoundariesSource,
				"bins", cfg.BinCount)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, cleanup, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := a.Warm(ctx); err != nil {
				return fmt.Errorf("load emissions table: %w", err)
			}

			p := metrics.Init(metrics.Config{Build: metrics.BuildInfo{
				Version:   version,
				Revision:  os.Getenv("BUILD_REVISION"),
				BuildDate: os.Getenv("BUILD_DATE"),
			}})

			if err := server.Run(ctx, cfg, log, server.NewHandler(cfg, log, a, p.Handler())); err != nil {
				log.Error("server exited with error", "err", err)
				return err
			}
			log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides ADDR)")
	return cmd
}
