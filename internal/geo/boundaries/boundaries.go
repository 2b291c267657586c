// Package boundaries parses a GeoJSON FeatureCollection of state boundaries
// and indexes its features by two-letter state code.
package boundaries

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mohammed-shakir/br-emissions/internal/regions"
)

var (
	ErrNotFeatureCollection = errors.New("geojson: not a FeatureCollection")
	ErrNoCode               = errors.New("geojson: feature has no state code")
	ErrDuplicateCode        = errors.New("geojson: duplicate state code")
)

// Feature is one state outline. Geometry is kept raw; it is a Polygon or
// MultiPolygon in EPSG:4326.
type Feature struct {
	Code       string
	Name       string
	Geometry   json.RawMessage
	Properties map[string]any
}

type Collection struct {
	features []Feature
	byCode   map[string]int
}

type rawFeature struct {
	Type       string          `json:"type"`
	ID         any             `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// codeProps are the property names checked, in order, when a feature has
// no usable id.
var codeProps = []string{"sigla", "SIGLA", "uf", "UF", "code"}

var nameProps = []string{"name", "nome", "NOME", "Estado"}

// Parse decodes b. Codes are upper-cased; features are kept in input order.
func Parse(b []byte) (*Collection, error) {
	var hdr struct {
		Type     string       `json:"type"`
		Features []rawFeature `json:"features"`
	}
	if err := json.Unmarshal(b, &hdr); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	if hdr.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w (type %q)", ErrNotFeatureCollection, hdr.Type)
	}

	c := &Collection{
		features: make([]Feature, 0, len(hdr.Features)),
		byCode:   make(map[string]int, len(hdr.Features)),
	}
	for i, rf := range hdr.Features {
		code := featureCode(rf)
		if code == "" {
			return nil, fmt.Errorf("feature %d: %w", i, ErrNoCode)
		}
		if _, dup := c.byCode[code]; dup {
			return nil, fmt.Errorf("feature %d: %w %q", i, ErrDuplicateCode, code)
		}
		f := Feature{
			Code:       code,
			Name:       featureName(rf, code),
			Geometry:   rf.Geometry,
			Properties: rf.Properties,
		}
		c.byCode[code] = len(c.features)
		c.features = append(c.features, f)
	}
	return c, nil
}

func featureCode(rf rawFeature) string {
	if s, ok := rf.ID.(string); ok && strings.TrimSpace(s) != "" {
		return strings.ToUpper(strings.TrimSpace(s))
	}
	for _, k := range codeProps {
		if s, ok := rf.Properties[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.ToUpper(strings.TrimSpace(s))
		}
	}
	return ""
}

func featureName(rf rawFeature, code string) string {
	for _, k := range nameProps {
		if s, ok := rf.Properties[k].(string); ok && s != "" {
			return regions.NormalizeName(s)
		}
	}
	if r, ok := regions.ByCode(code); ok {
		return r.Name
	}
	return code
}

// Get returns the feature for code (case-insensitive).
func (c *Collection) Get(code string) (Feature, bool) {
	i, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Feature{}, false
	}
	return c.features[i], true
}

func (c *Collection) Features() []Feature {
	out := make([]Feature, len(c.features))
	copy(out, c.features)
	return out
}

// Codes returns the feature codes sorted.
func (c *Collection) Codes() []string {
	out := make([]string, 0, len(c.byCode))
	for k := range c.byCode {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c *Collection) Len() int { return len(c.features) }

// Unknown returns the codes that are not Brazilian states.
func (c *Collection) Unknown() []string {
	var out []string
	for _, code := range c.Codes() {
		if _, ok := regions.ByCode(code); !ok {
			out = append(out, code)
		}
	}
	return out
}
