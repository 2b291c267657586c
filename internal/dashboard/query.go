// Package dashboard answers one (region, year) request by combining the
// region statistics with the year's bin scale.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mohammed-shakir/br-emissions/internal/binscale"
	"github.com/mohammed-shakir/br-emissions/internal/core/model"
	"github.com/mohammed-shakir/br-emissions/internal/core/observability"
	"github.com/mohammed-shakir/br-emissions/internal/dataset"
	"github.com/mohammed-shakir/br-emissions/internal/logger"
	"github.com/mohammed-shakir/br-emissions/internal/stats"
)

type Response struct {
	Stats      model.Stats         `json:"stats"`
	Thresholds []float64           `json:"thresholds"`
	Strategy   binscale.Strategy   `json:"strategy"`
	Values     []model.RegionValue `json:"values"`
}

// Warning is a query failure the presentation layer shows instead of data.
type Warning struct {
	Region  string          `json:"region"`
	Year    int             `json:"year"`
	Kind    model.ErrorKind `json:"kind"`
	Message string          `json:"message"`
}

// Result carries exactly one of Response or Warning.
type Result struct {
	Response *Response `json:"response,omitempty"`
	Warning  *Warning  `json:"warning,omitempty"`
}

func (r Result) OK() bool { return r.Warning == nil && r.Response != nil }

type Query struct {
	table  dataset.View
	bins   int
	logger *slog.Logger
}

func New(t dataset.View, bins int, log *slog.Logger) *Query {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Query{table: t, bins: bins, logger: log}
}

// Execute uses the configured bin count.
func (q *Query) Execute(ctx context.Context, region string, year int) Result {
	return q.ExecuteBins(ctx, region, year, q.bins)
}

// ExecuteBins never panics and never returns a bare error; failures come back
// as a Warning naming the region, year and reason.
func (q *Query) ExecuteBins(ctx context.Context, region string, year, bins int) (res Result) {
	ctx = logger.WithQuery(ctx, region, year)

	defer func() {
		if rec := recover(); rec != nil {
			res = q.warn(ctx, region, year, fmt.Errorf("panic: %v", rec))
		}
	}()

	s, err := stats.Compute(q.table, region, year)
	if err != nil {
		return q.warn(ctx, region, year, err)
	}
	scale, err := binscale.Compute(q.table, year, bins)
	if err != nil {
		return q.warn(ctx, region, year, err)
	}
	col, err := q.table.YearColumn(year)
	if err != nil {
		return q.warn(ctx, region, year, err)
	}

	observability.ObserveQuery("ok")
	observability.ObserveScale(string(scale.Strategy))
	q.logger.DebugContext(ctx, "dashboard query",
		"strategy", string(scale.Strategy),
		"rank", s.Rank,
		"total", s.TotalRegions)

	return Result{Response: &Response{
		Stats:      s,
		Thresholds: scale.Thresholds,
		Strategy:   scale.Strategy,
		Values:     col,
	}}
}

func (q *Query) warn(ctx context.Context, region string, year int, err error) Result {
	kind := model.KindOf(err)
	msg := err.Error()
	if kind == model.KindInternal {
		q.logger.ErrorContext(ctx, "dashboard query failed", "err", err)
		msg = fmt.Sprintf("could not compute the dashboard for %s in %d", region, year)
	} else {
		q.logger.WarnContext(ctx, "dashboard query warning", "kind", string(kind), "err", err)
	}
	observability.ObserveQuery(string(kind))
	return Result{Warning: &Warning{Region: region, Year: year, Kind: kind, Message: msg}}
}
