// Package cli builds the dashboard command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/br-emissions/internal/app"
	"github.com/mohammed-shakir/br-emissions/internal/cache/redisstore"
	"github.com/mohammed-shakir/br-emissions/internal/core/config"
	"github.com/mohammed-shakir/br-emissions/internal/core/observability"
	"github.com/mohammed-shakir/br-emissions/internal/logger"
)

type globalFlags struct {
	data       string
	boundaries string
	bins       int
	logLevel   string
	redisAddr  string
}

// NewRootCmd returns the dashboard command with its serve and query
// subcommands.
func NewRootCmd(version string) *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:           "dashboard",
		Short:         "Brazilian state CO2 emissions dashboard",
		Long:          "Per-state CO2e statistics and choropleth bins over a wide emissions CSV.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.data, "data", "", "emissions CSV path or URL (overrides DATA_SOURCE)")
	pf.StringVar(&g.boundaries, "boundaries", "", "state boundaries GeoJSON path or URL (overrides BOUNDARIES_SOURCE)")
	pf.IntVar(&g.bins, "bins", 0, "number of color bins (overrides BIN_COUNT)")
	pf.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	pf.StringVar(&g.redisAddr, "redis", "", "redis address for the shared source mirror (overrides REDIS_ADDR)")

	cmd.AddCommand(newServeCmd(&g, version), newQueryCmd(&g))
	return cmd
}

// loadConfig reads env and CONFIG_FILE, then applies explicitly set flags.
func loadConfig(cmd *cobra.Command, g *globalFlags) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataSource = g.data
	}
	if flags.Changed("boundaries") {
		cfg.BoundariesSource = g.boundaries
	}
	if flags.Changed("bins") {
		if g.bins < 2 {
			return config.Config{}, fmt.Errorf("--bins must be >= 2, got %d", g.bins)
		}
		cfg.BinCount = g.bins
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if flags.Changed("redis") {
		cfg.RedisAddr = g.redisAddr
	}
	return cfg, nil
}

func newLogger(cfg config.Config, component string, out io.Writer) *slog.Logger {
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Dataset:   cfg.Dataset,
		Component: component,
	}, out)
	return logger.NewSlog(&zl)
}

func redisOptions(cfg config.Config) []redisstore.Option {
	return []redisstore.Option{
		redisstore.WithPoolSize(cfg.RedisPoolSize),
		redisstore.WithDialTimeout(cfg.RedisTimeout),
		redisstore.WithReadTimeout(cfg.RedisTimeout),
		redisstore.WithWriteTimeout(cfg.RedisTimeout),
	}
}

// newApp builds the backend, connecting the redis mirror when configured.
// The returned cleanup closes the mirror.
func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app.App, func(), error) {
	observability.SetDataset(cfg.Dataset)

	var opts []app.Option
	cleanup := func() {}
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		rc, err := redisstore.New(ctx, addr, redisOptions(cfg)...)
		if err != nil {
			log.Warn("redis mirror unavailable; reading sources directly", "addr", addr, "err", err)
		} else {
			opts = append(opts, app.WithMirror(rc))
			cleanup = func() { _ = rc.Close() }
			log.Info("redis mirror enabled", "addr", addr, "ttl", cfg.MirrorTTL, "pool", cfg.RedisPoolSize)
		}
	}

	a, err := app.New(cfg, log, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return a, cleanup, nil
}
