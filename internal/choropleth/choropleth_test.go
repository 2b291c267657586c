package choropleth

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mohammed-shakir/br-emissions/internal/core/model"
	"github.com/mohammed-shakir/br-emissions/internal/dataset"
	"github.com/mohammed-shakir/br-emissions/internal/geo/boundaries"
)

const outlines = `{"type":"FeatureCollection","features":[
 {"type":"Feature","id":"AC","properties":{"name":"Acre"},
  "geometry":{"type":"Polygon","coordinates":[[[-73.0,-11.0],[-67.0,-11.0],[-67.0,-7.0],[-73.0,-7.0],[-73.0,-11.0]]]}},
 {"type":"Feature","id":"DF","properties":{"name":"Distrito Federal"},
  "geometry":{"type":"Polygon","coordinates":[[[-48.3,-16.1],[-47.3,-16.1],[-47.3,-15.5],[-48.3,-15.5],[-48.3,-16.1]]]}},
 {"type":"Feature","id":"SP","properties":{"name":"São Paulo"},
  "geometry":{"type":"Polygon","coordinates":[[[-53.0,-25.0],[-44.0,-25.0],[-44.0,-20.0],[-53.0,-20.0],[-53.0,-25.0]]]}}
]}`

type decoded struct {
	Type      string   `json:"type"`
	Year      int      `json:"year"`
	Format    string   `json:"format"`
	Unmatched []string `json:"unmatched"`
	Legend    Legend   `json:"legend"`
	Features  []struct {
		ID         string     `json:"id"`
		Properties properties `json:"properties"`
	} `json:"features"`
}

func fixture(t *testing.T) (*dataset.Table, *boundaries.Collection) {
	t.Helper()
	tbl, err := dataset.New(
		[]string{"Acre", "Distrito Federal", "São Paulo", "Rio De Janeiro"},
		[]int{2020},
		[][]float64{{10}, {dataset.Absent()}, {90}, {40}},
	)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	b, err := boundaries.Parse([]byte(outlines))
	if err != nil {
		t.Fatalf("boundaries: %v", err)
	}
	return tbl, b
}

func TestBuild_GeoJSON(t *testing.T) {
	tbl, b := fixture(t)

	res, err := Build(context.Background(), tbl, Layer{Bounds: b}, Request{Year: 2020, Bins: 3})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.ContentType != "application/geo+json" {
		t.Fatalf("content-type=%q", res.ContentType)
	}

	var got decoded
	if err := json.Unmarshal(res.Body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != "FeatureCollection" || got.Year != 2020 || got.Format != "geojson" {
		t.Fatalf("unexpected header: %+v", got)
	}
	if len(got.Features) != 3 {
		t.Fatalf("features=%d want 3", len(got.Features))
	}

	byID := map[string]properties{}
	for _, f := range got.Features {
		byID[f.ID] = f.Properties
	}
	if p := byID["DF"]; p.Value != nil || p.Bin != nil || p.Color != NoDataColor {
		t.Fatalf("DF has no value and must render as no data: %+v", p)
	}
	ac, sp := byID["AC"], byID["SP"]
	if ac.Value == nil || *ac.Value != 10 || ac.Bin == nil || *ac.Bin != 0 {
		t.Fatalf("AC should sit in the first bin: %+v", ac)
	}
	last := len(got.Legend.Entries) - 1
	if sp.Bin == nil || *sp.Bin != last {
		t.Fatalf("SP should sit in the last bin %d: %+v", last, sp)
	}
	if sp.Color != got.Legend.Entries[last].Color {
		t.Fatalf("SP color=%s want %s", sp.Color, got.Legend.Entries[last].Color)
	}
	if len(got.Unmatched) != 1 || got.Unmatched[0] != "Rio De Janeiro" {
		t.Fatalf("unmatched=%v", got.Unmatched)
	}
}

func TestBuild_LegendCoversThresholds(t *testing.T) {
	tbl, b := fixture(t)
	res, err := Build(context.Background(), tbl, Layer{Bounds: b}, Request{Year: 2020, Bins: 4})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	lg := res.Legend
	if len(lg.Entries) != len(lg.Thresholds)-1 {
		t.Fatalf("entries=%d thresholds=%d", len(lg.Entries), len(lg.Thresholds))
	}
	for i, e := range lg.Entries {
		if e.Lower != lg.Thresholds[i] || e.Upper != lg.Thresholds[i+1] {
			t.Fatalf("entry %d bounds %v..%v do not match thresholds", i, e.Lower, e.Upper)
		}
		if e.Label == "" || e.Color == "" {
			t.Fatalf("entry %d missing label or color", i)
		}
	}
	if lg.Entries[0].Color != YlGnBu[0] || lg.Entries[len(lg.Entries)-1].Color != YlGnBu[len(YlGnBu)-1] {
		t.Fatalf("legend should span the palette: %+v", lg.Entries)
	}
}

func TestBuild_H3(t *testing.T) {
	tbl, b := fixture(t)
	layer, err := NewCellLayer(b, 3)
	if err != nil {
		t.Fatalf("NewCellLayer: %v", err)
	}
	res, err := Build(context.Background(), tbl, layer, Request{Year: 2020, Bins: 3, Format: FormatH3})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var got decoded
	if err := json.Unmarshal(res.Body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Format != "h3" {
		t.Fatalf("format=%q", got.Format)
	}
	want := 0
	for _, cells := range layer.Cells {
		want += len(cells)
	}
	if want == 0 || len(got.Features) != want {
		t.Fatalf("features=%d want %d cells", len(got.Features), want)
	}
	for _, f := range got.Features {
		if f.Properties.Cell != f.ID || f.Properties.Code == "" {
			t.Fatalf("cell feature missing identity: %+v", f)
		}
	}
}

func TestBuild_H3WithoutCells(t *testing.T) {
	tbl, b := fixture(t)
	_, err := Build(context.Background(), tbl, Layer{Bounds: b}, Request{Year: 2020, Bins: 3, Format: FormatH3})
	if !errors.Is(err, ErrNoCells) {
		t.Fatalf("err=%v want ErrNoCells", err)
	}
}

func TestBuild_UnknownYear(t *testing.T) {
	tbl, b := fixture(t)
	_, err := Build(context.Background(), tbl, Layer{Bounds: b}, Request{Year: 1990, Bins: 3})
	if model.KindOf(err) != model.KindNotFound {
		t.Fatalf("err=%v want not found", err)
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatGeoJSON, "GeoJSON": FormatGeoJSON, "h3": FormatH3, " hex ": FormatH3}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseFormat("gml"); err == nil {
		t.Fatalf("expected error for gml")
	}
}
