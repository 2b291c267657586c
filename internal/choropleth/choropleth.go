// Package choropleth joins a year of emissions with state outlines into a
// render-ready GeoJSON FeatureCollection and its legend.
package choropleth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mohammed-shakir/br-emissions/internal/binscale"
	"github.com/mohammed-shakir/br-emissions/internal/core/observability"
	"github.com/mohammed-shakir/br-emissions/internal/dataset"
	"github.com/mohammed-shakir/br-emissions/internal/geo/boundaries"
	"github.com/mohammed-shakir/br-emissions/internal/geo/h3cells"
)

var ErrNoCells = errors.New("h3 layer not available")

// Layer is the geometry a choropleth is drawn on. Cells is only needed for
// FormatH3.
type Layer struct {
	Bounds *boundaries.Collection
	Cells  map[string]h3cells.Cells
}

// NewCellLayer polyfills every outline in b at res.
func NewCellLayer(b *boundaries.Collection, res int) (Layer, error) {
	geoms := make(map[string][]byte, b.Len())
	for _, f := range b.Features() {
		geoms[f.Code] = f.Geometry
	}
	cells, err := h3cells.Cover(geoms, res)
	if err != nil {
		return Layer{}, fmt.Errorf("h3 cover: %w", err)
	}
	return Layer{Bounds: b, Cells: cells}, nil
}

type Request struct {
	Year   int
	Bins   int
	Format Format
}

type Result struct {
	Body        []byte
	ContentType string
	Legend      Legend
}

type properties struct {
	Code  string   `json:"code"`
	Name  string   `json:"name"`
	Cell  string   `json:"cell,omitempty"`
	Value *float64 `json:"value"`
	Bin   *int     `json:"bin"`
	Color string   `json:"color"`
}

type feature struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties properties      `json:"properties"`
}

type collection struct {
	Type      string            `json:"type"`
	Year      int               `json:"year"`
	Format    string            `json:"format"`
	Legend    Legend            `json:"legend"`
	Unmatched []string          `json:"unmatched,omitempty"`
	Features  []json.RawMessage `json:"features"`
}

// Build renders year of t over layer. Every outline becomes a feature;
// states without a value get a null value and bin. Table rows with no
// outline are listed under "unmatched".
func Build(ctx context.Context, t dataset.View, layer Layer, req Request) (Result, error) {
	t0 := time.Now()
	if layer.Bounds == nil {
		return Result{}, errors.New("no boundaries loaded")
	}
	if req.Format == FormatH3 && layer.Cells == nil {
		return Result{}, ErrNoCells
	}

	col, err := t.YearColumn(req.Year)
	if err != nil {
		return Result{}, err
	}
	sc, err := binscale.Compute(t, req.Year, req.Bins)
	if err != nil {
		return Result{}, fmt.Errorf("bin scale: %w", err)
	}
	observability.ObserveScale(string(sc.Strategy))
	legend := NewLegend(req.Year, sc)

	byCode := make(map[string]float64, len(col))
	for _, rv := range col {
		if rv.Code != "" {
			byCode[rv.Code] = rv.Value
		}
	}

	var parts [][]byte
	for _, f := range layer.Bounds.Features() {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("build choropleth: %w", err)
		}
		props := properties{Code: f.Code, Name: f.Name, Color: NoDataColor}
		if v, ok := byCode[f.Code]; ok {
			bin := binscale.Classify(sc.Thresholds, v)
			props.Value = &v
			props.Bin = &bin
			props.Color = legend.Color(bin)
		}

		if req.Format == FormatH3 {
			fs, err := cellFeatures(f.Code, props, layer.Cells[f.Code])
			if err != nil {
				return Result{}, err
			}
			parts = append(parts, fs...)
			continue
		}
		b, err := json.Marshal(feature{Type: "Feature", ID: f.Code, Geometry: f.Geometry, Properties: props})
		if err != nil {
			return Result{}, fmt.Errorf("marshal feature %s: %w", f.Code, err)
		}
		parts = append(parts, b)
	}

	var unmatched []string
	for _, rv := range col {
		if _, ok := layer.Bounds.Get(rv.Code); !ok {
			unmatched = append(unmatched, rv.Region)
		}
	}
	sort.Strings(unmatched)

	body, err := buildFeatureCollection(parts, collectionMeta{
		Year: req.Year, Format: req.Format.String(), Legend: legend, Unmatched: unmatched,
	})
	if err != nil {
		return Result{}, err
	}
	observability.ObserveRender(req.Format.String(), time.Since(t0).Seconds())
	return Result{Body: body, ContentType: contentTypeGeoJSON, Legend: legend}, nil
}

func cellFeatures(code string, props properties, cells h3cells.Cells) ([][]byte, error) {
	out := make([][]byte, 0, len(cells))
	for _, c := range cells {
		ring, err := h3cells.Boundary(c)
		if err != nil {
			return nil, fmt.Errorf("%s cell %s: %w", code, c, err)
		}
		geom, err := json.Marshal(struct {
			Type        string         `json:"type"`
			Coordinates [][][2]float64 `json:"coordinates"`
		}{Type: "Polygon", Coordinates: [][][2]float64{ring}})
		if err != nil {
			return nil, fmt.Errorf("marshal cell %s: %w", c, err)
		}
		p := props
		p.Cell = c
		b, err := json.Marshal(feature{Type: "Feature", ID: c, Geometry: geom, Properties: p})
		if err != nil {
			return nil, fmt.Errorf("marshal cell %s: %w", c, err)
		}
		out = append(out, b)
	}
	return out, nil
}

type collectionMeta struct {
	Year      int
	Format    string
	Legend    Legend
	Unmatched []string
}

// buildFeatureCollection wraps already-encoded features in a
// FeatureCollection carrying the legend as a foreign member.
func buildFeatureCollection(features [][]byte, meta collectionMeta) ([]byte, error) {
	out := collection{
		Type:      "FeatureCollection",
		Year:      meta.Year,
		Format:    meta.Format,
		Legend:    meta.Legend,
		Unmatched: meta.Unmatched,
		Features:  make([]json.RawMessage, 0, len(features)),
	}
	for i, f := range features {
		if !json.Valid(f) {
			return nil, fmt.Errorf("feature %d: invalid JSON", i)
		}
		out.Features = append(out.Features, json.RawMessage(f))
	}
	buf, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal FeatureCollection: %w", err)
	}
	return buf, nil
}
