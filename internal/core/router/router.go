// Package router exposes the dashboard core over a JSON HTTP API.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/br-emissions/internal/choropleth"
	"github.com/mohammed-shakir/br-emissions/internal/core/config"
	"github.com/mohammed-shakir/br-emissions/internal/core/model"
	"github.com/mohammed-shakir/br-emissions/internal/core/observability"
	"github.com/mohammed-shakir/br-emissions/internal/dashboard"
	"github.com/mohammed-shakir/br-emissions/internal/dataset"
	"github.com/mohammed-shakir/br-emissions/internal/regions"
	"github.com/mohammed-shakir/br-emissions/internal/stats"
)

// MaxBins caps the bin count a client may ask for.
const MaxBins = 9

// Data gives handlers the loaded table and choropleth geometry.
type Data interface {
	Table(ctx context.Context) (dataset.View, error)
	Layer(ctx context.Context, f choropleth.Format) (choropleth.Layer, error)
}

type api struct {
	logger *slog.Logger
	bins   int
	data   Data
}

// Mount registers the /api routes on r.
func Mount(r chi.Router, logger *slog.Logger, cfg config.Config, d Data) {
	a := &api{logger: logger, bins: cfg.BinCount, data: d}
	r.Route("/api", func(r chi.Router) {
		r.Get("/regions", instrument("/api/regions", a.handleRegions))
		r.Get("/years", instrument("/api/years", a.handleYears))
		r.Get("/dashboard", instrument("/api/dashboard", a.handleDashboard))
		r.Get("/ranking", instrument("/api/ranking", a.handleRanking))
		r.Get("/choropleth", instrument("/api/choropleth", a.handleChoropleth))
	})
}

func instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

type regionOut struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

func (a *api) handleRegions(w http.ResponseWriter, r *http.Request) {
	t, ok := a.table(w, r)
	if !ok {
		return
	}
	names := t.Regions()
	out := make([]regionOut, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		code, _ := regions.Code(n)
		out = append(out, regionOut{Name: n, Code: code})
		seen[code] = true
	}
	// states of the federation the table has no row for
	missing := make([]regionOut, 0)
	for _, st := range regions.All() {
		if !seen[st.Code] {
			missing = append(missing, regionOut{Name: st.Name, Code: st.Code})
		}
	}
	a.writeJSON(w, r, http.StatusOK, map[string]any{"regions": out, "missing": missing})
}

func (a *api) handleYears(w http.ResponseWriter, r *http.Request) {
	t, ok := a.table(w, r)
	if !ok {
		return
	}
	a.writeJSON(w, r, http.StatusOK, map[string]any{"years": t.Years()})
}

func (a *api) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q, err := ParseDashboardRequest(r, a.bins)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	t, ok := a.table(w, r)
	if !ok {
		return
	}
	q.Region = ResolveRegion(t, q.Region)
	res := dashboard.New(t, a.bins, a.logger).ExecuteBins(r.Context(), q.Region, q.Year, q.Bins)
	a.writeJSON(w, r, http.StatusOK, res)
}

func (a *api) handleRanking(w http.ResponseWriter, r *http.Request) {
	year, err := requiredInt(r, "year")
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	t, ok := a.table(w, r)
	if !ok {
		return
	}
	ranking, err := stats.Rank(t, year)
	if err != nil {
		a.writeError(w, r, statusFor(err), err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, map[string]any{"year": year, "ranking": ranking})
}

func (a *api) handleChoropleth(w http.ResponseWriter, r *http.Request) {
	year, err := requiredInt(r, "year")
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	bins, err := optionalBins(r, a.bins)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	format, err := choropleth.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	t, ok := a.table(w, r)
	if !ok {
		return
	}
	layer, err := a.data.Layer(r.Context(), format)
	if err != nil {
		a.logger.ErrorContext(r.Context(), "choropleth layer unavailable", "format", format.String(), "err", err)
		a.writeError(w, r, http.StatusServiceUnavailable, errors.New("boundaries not available"))
		return
	}
	res, err := choropleth.Build(r.Context(), t, layer, choropleth.Request{Year: year, Bins: bins, Format: format})
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			a.logger.ErrorContext(r.Context(), "choropleth build failed", "year", year, "err", err)
		}
		a.writeError(w, r, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Body)
}

func (a *api) table(w http.ResponseWriter, r *http.Request) (dataset.View, bool) {
	t, err := a.data.Table(r.Context())
	if err != nil {
		a.logger.ErrorContext(r.Context(), "emissions table unavailable", "err", err)
		a.writeError(w, r, http.StatusServiceUnavailable, errors.New("emissions data not available"))
		return nil, false
	}
	return t, true
}

// ParseDashboardRequest validates region, year and bins. bins defaults to
// defBins when absent.
func ParseDashboardRequest(r *http.Request, defBins int) (model.QueryRequest, error) {
	region := strings.TrimSpace(r.URL.Query().Get("region"))
	if region == "" {
		return model.QueryRequest{}, errors.New("missing required parameter: region")
	}
	year, err := requiredInt(r, "year")
	if err != nil {
		return model.QueryRequest{}, err
	}
	bins, err := optionalBins(r, defBins)
	if err != nil {
		return model.QueryRequest{}, err
	}
	return model.QueryRequest{Region: region, Year: year, Bins: bins}, nil
}

// ResolveRegion maps a state code or a loosely spelled name to the region
// name used by t. Unresolvable input is returned unchanged.
func ResolveRegion(t dataset.View, raw string) string {
	if t.HasRegion(raw) {
		return raw
	}
	code, ok := regions.Code(raw)
	if !ok {
		if _, byCode := regions.ByCode(raw); byCode {
			code = strings.ToUpper(strings.TrimSpace(raw))
		}
	}
	if code == "" {
		return raw
	}
	for _, name := range t.Regions() {
		if c, _ := regions.Code(name); c == code {
			return name
		}
	}
	return raw
}

func requiredInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, fmt.Errorf("missing required parameter: %s", name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", name, raw)
	}
	return n, nil
}

func optionalBins(r *http.Request, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("bins"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 2 || n > MaxBins {
		return 0, fmt.Errorf("invalid bins %q: must be an integer in [2,%d]", raw, MaxBins)
	}
	return n, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, choropleth.ErrNoCells):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	switch model.KindOf(err) {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (a *api) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	a.writeJSON(w, r, status, errorBody{Error: msg})
}

// writeJSON marshals v before the status line goes out. A value that does not
// encode is logged and answered with 500.
func (a *api) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		a.logger.ErrorContext(r.Context(), "encode response failed", "path", r.URL.Path, "err", err)
		status = http.StatusInternalServerError
		b = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}
