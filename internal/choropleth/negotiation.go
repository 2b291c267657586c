package choropleth

import (
	"fmt"
	"strings"
)

type Format int

const (
	FormatGeoJSON Format = iota
	FormatH3
)

const contentTypeGeoJSON = "application/geo+json"

func (f Format) String() string {
	if f == FormatH3 {
		return "h3"
	}
	return "geojson"
}

// ParseFormat maps the format query parameter to a Format. Empty means
// GeoJSON state outlines.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "geojson", "json", "application/geo+json", "application/json":
		return FormatGeoJSON, nil
	case "h3", "hex", "hexagons":
		return FormatH3, nil
	default:
		return 0, fmt.Errorf("unsupported format %q", s)
	}
}
