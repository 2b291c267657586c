// Package h3cells polyfills state outlines into H3 cells so the choropleth
// can be drawn as a hexagon grid.
package h3cells

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	h3 "github.com/uber/h3-go/v4"
)

type Cells []string

// Polyfill returns the sorted, unique cells whose centers fall inside a
// GeoJSON Polygon or MultiPolygon.
func Polyfill(geometry []byte, res int) (Cells, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}

	var hdr struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(geometry, &hdr); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}

	switch hdr.Type {
	case "Polygon":
		var tmp struct {
			Coordinates [][][]float64 `json:"coordinates"` // [ring][i][lon,lat]
		}
		if err := json.Unmarshal(geometry, &tmp); err != nil {
			return nil, fmt.Errorf("parse polygon coords: %w", err)
		}
		if len(tmp.Coordinates) == 0 {
			return nil, errors.New("empty polygon")
		}
		outer, holes, err := rings(tmp.Coordinates)
		if err != nil {
			return nil, err
		}
		return polyfillOne(outer, holes, res)

	case "MultiPolygon":
		var tmp struct {
			Coordinates [][][][]float64 `json:"coordinates"` // [poly][ring][i][lon,lat]
		}
		if err := json.Unmarshal(geometry, &tmp); err != nil {
			return nil, fmt.Errorf("parse multipolygon coords: %w", err)
		}
		if len(tmp.Coordinates) == 0 {
			return nil, errors.New("empty multipolygon")
		}
		seen := make(map[string]struct{})
		var out Cells
		for pi, polyRings := range tmp.Coordinates {
			if len(polyRings) == 0 {
				return nil, fmt.Errorf("polygon %d is empty", pi)
			}
			outer, holes, err := rings(polyRings)
			if err != nil {
				return nil, fmt.Errorf("polygon %d: %w", pi, err)
			}
			cells, err := polyfillOne(outer, holes, res)
			if err != nil {
				return nil, err
			}
			for _, c := range cells {
				if _, ok := seen[c]; !ok {
					seen[c] = struct{}{}
					out = append(out, c)
				}
			}
		}
		sort.Strings(out)
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported GeoJSON type: %s", hdr.Type)
	}
}

// Cover polyfills every geometry in geoms. A cell claimed by more than one
// code goes to the code that sorts first, so no cell is drawn twice.
func Cover(geoms map[string][]byte, res int) (map[string]Cells, error) {
	codes := make([]string, 0, len(geoms))
	for k := range geoms {
		codes = append(codes, k)
	}
	sort.Strings(codes)

	owner := make(map[string]string)
	out := make(map[string]Cells, len(geoms))
	for _, code := range codes {
		cells, err := Polyfill(geoms[code], res)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", code, err)
		}
		kept := make(Cells, 0, len(cells))
		for _, c := range cells {
			if _, taken := owner[c]; taken {
				continue
			}
			owner[c] = code
			kept = append(kept, c)
		}
		out[code] = kept
	}
	return out, nil
}

// Boundary returns the closed outline of cell as [lon,lat] pairs.
func Boundary(cell string) ([][2]float64, error) {
	c, err := parse(cell)
	if err != nil {
		return nil, err
	}
	b, err := c.Boundary()
	if err != nil {
		return nil, fmt.Errorf("boundary: %w", err)
	}
	if len(b) < 3 {
		return nil, fmt.Errorf("degenerate boundary for %s", cell)
	}
	out := make([][2]float64, 0, len(b)+1)
	for _, ll := range b {
		out = append(out, [2]float64{ll.Lng, ll.Lat})
	}
	return append(out, out[0]), nil
}

func parse(cell string) (h3.Cell, error) {
	var c h3.Cell
	if err := c.UnmarshalText([]byte(cell)); err != nil {
		return 0, fmt.Errorf("parse cell: %w", err)
	}
	if !c.IsValid() {
		return 0, fmt.Errorf("invalid h3 cell %q", cell)
	}
	return c, nil
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

func rings(coords [][][]float64) (h3.GeoLoop, []h3.GeoLoop, error) {
	outer := toLoop(coords[0])
	if len(outer) < 3 {
		return nil, nil, errors.New("outer ring has < 3 distinct vertices")
	}
	var holes []h3.GeoLoop
	for i := 1; i < len(coords); i++ {
		h := toLoop(coords[i])
		if len(h) < 3 {
			return nil, nil, fmt.Errorf("hole %d has < 3 distinct vertices", i-1)
		}
		holes = append(holes, h)
	}
	return outer, holes, nil
}

// toLoop converts a GeoJSON ring [[lon,lat], ...] to an h3.GeoLoop in
// degrees, dropping the closing vertex.
func toLoop(coords [][]float64) h3.GeoLoop {
	loop := make(h3.GeoLoop, 0, len(coords))
	for _, xy := range coords {
		if len(xy) < 2 {
			continue
		}
		loop = append(loop, h3.LatLng{Lat: xy[1], Lng: xy[0]})
	}
	if len(loop) >= 2 {
		last := loop[len(loop)-1]
		first := loop[0]
		if last.Lat == first.Lat && last.Lng == first.Lng {
			loop = loop[:len(loop)-1]
		}
	}
	return loop
}

func polyfillOne(outer h3.GeoLoop, holes []h3.GeoLoop, res int) (Cells, error) {
	poly := h3.GeoPolygon{
		GeoLoop: outer,
		Holes:   holes,
	}
	indexes, err := h3.PolygonToCells(poly, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}

	out := make(Cells, 0, len(indexes))
	seen := make(map[string]struct{}, len(indexes))
	for _, idx := range indexes {
		s := idx.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}
