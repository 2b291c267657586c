// Package app owns the loaded sources and serves them to the HTTP surface
// and the CLI.
package app

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/br-emissions/internal/cache/sourcecache"
	"github.com/mohammed-shakir/br-emissions/internal/choropleth"
	"github.com/mohammed-shakir/br-emissions/internal/core/config"
	"github.com/mohammed-shakir/br-emissions/internal/core/httpclient"
	"github.com/mohammed-shakir/br-emissions/internal/dataset"
	"github.com/mohammed-shakir/br-emissions/internal/geo/boundaries"
	"github.com/mohammed-shakir/br-emissions/internal/source"
)

type App struct {
	cfg    config.Config
	logger *slog.Logger
	fetch  *source.Fetcher

	tables *sourcecache.Cache[*dataset.Table]
	bounds *sourcecache.Cache[*boundaries.Collection]
	cells  *sourcecache.Cache[choropleth.Layer]
}

type Option func(*options)

type options struct {
	mirror source.Mirror
}

// WithMirror reads sources through a shared mirror such as Redis.
func WithMirror(m source.Mirror) Option {
	return func(o *options) { o.mirror = m }
}

func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var o options
	for _, f := range opts {
		f(&o)
	}

	fopts := []source.Option{
		source.WithHTTPClient(httpclient.NewOutbound(cfg.SourceTimeout)),
		source.WithTimeout(cfg.SourceTimeout),
		source.WithLogger(logger),
	}
	if o.mirror != nil {
		fopts = append(fopts, source.WithMirror(o.mirror, cfg.MirrorTTL))
	}
	a := &App{cfg: cfg, logger: logger, fetch: source.New(fopts...)}

	var err error
	if a.tables, err = sourcecache.New("table", cfg.SourceCacheSize, cfg.SourceTimeout, a.loadTable); err != nil {
		return nil, err
	}
	if a.bounds, err = sourcecache.New("boundaries", cfg.SourceCacheSize, cfg.SourceTimeout, a.loadBoundaries); err != nil {
		return nil, err
	}
	if a.cells, err = sourcecache.New("h3", cfg.SourceCacheSize, cfg.SourceTimeout, a.loadCells); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) loadTable(ctx context.Context, src string) (*dataset.Table, error) {
	raw, err := a.fetch.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	t, err := dataset.ParseCSV(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src, err)
	}
	a.logger.Info("emissions table loaded",
		"source", src, "regions", len(t.Regions()), "years", len(t.Years()))
	return t, nil
}

func (a *App) loadBoundaries(ctx context.Context, src string) (*boundaries.Collection, error) {
	raw, err := a.fetch.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	b, err := boundaries.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src, err)
	}
	if unknown := b.Unknown(); len(unknown) > 0 {
		a.logger.Warn("boundaries contain non-state codes", "source", src, "codes", unknown)
	}
	a.logger.Info("boundaries loaded", "source", src, "features", b.Len())
	return b, nil
}

func (a *App) loadCells(ctx context.Context, src string) (choropleth.Layer, error) {
	b, err := a.bounds.Get(ctx, src)
	if err != nil {
		return choropleth.Layer{}, err
	}
	start := time.Now()
	layer, err := choropleth.NewCellLayer(b, a.cfg.H3Res)
	if err != nil {
		return choropleth.Layer{}, err
	}
	a.logger.Info("h3 layer built", "source", src, "res", a.cfg.H3Res, "took", time.Since(start))
	return layer, nil
}

func (a *App) Table(ctx context.Context) (dataset.View, error) {
	return a.tables.Get(ctx, a.cfg.DataSource)
}

func (a *App) Layer(ctx context.Context, f choropleth.Format) (choropleth.Layer, error) {
	if f == choropleth.FormatH3 {
		return a.cells.Get(ctx, a.cfg.BoundariesSource)
	}
	b, err := a.bounds.Get(ctx, a.cfg.BoundariesSource)
	if err != nil {
		return choropleth.Layer{}, err
	}
	return choropleth.Layer{Bounds: b}, nil
}

// Warm loads the table and, best effort, the boundaries. Only a table
// failure is returned.
func (a *App) Warm(ctx context.Context) error {
	if _, err := a.Table(ctx); err != nil {
		return err
	}
	if a.cfg.BoundariesSource == "" {
		return nil
	}
	if _, err := a.Layer(ctx, choropleth.FormatGeoJSON); err != nil {
		a.logger.Warn("boundaries not loaded; choropleth disabled until they are", "err", err)
	}
	return nil
}

// Readiness is true once the table is loaded.
func (a *App) Readiness() (bool, []string) {
	var loaded []string
	_, ready := a.tables.Peek(a.cfg.DataSource)
	if ready {
		loaded = append(loaded, "table")
	}
	if _, ok := a.bounds.Peek(a.cfg.BoundariesSource); ok {
		loaded = append(loaded, "boundaries")
	}
	if _, ok := a.cells.Peek(a.cfg.BoundariesSource); ok {
		loaded = append(loaded, "h3")
	}
	return ready, loaded
}
