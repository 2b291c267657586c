// Package binscale derives choropleth bin edges for one year of values.
//
// Emissions are heavy tailed and often zero inflated, so plain quantile cuts
// collapse onto the same whole number. Edges are therefore deduplicated and,
// when fewer than three survive, replaced by a linear scale between the
// column's min and max. The output is always strictly increasing, has at least
// three edges and spans every input value.
package binscale

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/mohammed-shakir/br-emissions/internal/core/model"
	"github.com/mohammed-shakir/br-emissions/internal/dataset"
)

// ErrBinCount is returned for a bin count below 2. It matches
// model.ErrInvalidRequest under errors.Is.
var ErrBinCount = fmt.Errorf("bin count must be >= 2: %w", model.ErrInvalidRequest)

type Strategy string

const (
	StrategyQuantile     Strategy = "quantile"
	StrategyLinear       Strategy = "linear"
	StrategyDefaultRange Strategy = "default_range"
)

const (
	defaultMin = 0.0
	defaultMax = 100.0
	minEdges   = 3
)

type Scale struct {
	Thresholds []float64 `json:"thresholds"`
	Strategy   Strategy  `json:"strategy"`
}

// Thresholds returns the bin edges for year split into k bins.
func Thresholds(t dataset.View, year, k int) ([]float64, error) {
	s, err := Compute(t, year, k)
	if err != nil {
		return nil, err
	}
	return s.Thresholds, nil
}

// Compute is Thresholds plus the strategy that produced the edges.
func Compute(t dataset.View, year, k int) (Scale, error) {
	if k < 2 {
		return Scale{}, fmt.Errorf("bins=%d: %w", k, ErrBinCount)
	}
	col, err := t.YearColumn(year)
	if err != nil {
		return Scale{}, fmt.Errorf("thresholds %d: %w", year, err)
	}
	values := make([]float64, 0, len(col))
	for _, rv := range col {
		values = append(values, rv.Value)
	}
	return ForValues(values, k)
}

// ForValues bins an arbitrary value set. NaN and infinite values are ignored;
// an empty set yields the default [0, 100] range.
func ForValues(values []float64, k int) (Scale, error) {
	if k < 2 {
		return Scale{}, fmt.Errorf("bins=%d: %w", k, ErrBinCount)
	}

	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sorted = append(sorted, v)
	}

	strategy := StrategyQuantile
	if len(sorted) == 0 {
		sorted = append(sorted, defaultMin, defaultMax)
		strategy = StrategyDefaultRange
	}
	sort.Float64s(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		hi = lo + 1
	}

	edges, err := quantileEdges(sorted, k)
	if errors.Is(err, model.ErrDegenerateScale) {
		edges = linear(lo, hi, max(k, minEdges))
		if strategy == StrategyQuantile {
			strategy = StrategyLinear
		}
	}

	edges = dedupe(edges)
	if len(edges) < minEdges {
		edges = dedupe(widen(lo, hi))
	}
	return Scale{Thresholds: edges, Strategy: strategy}, nil
}

// quantileEdges cuts sorted at 0, 1/k, ..., 1 and rounds to whole units. The
// outer edges round outward so the scale still covers min and max.
func quantileEdges(sorted []float64, k int) ([]float64, error) {
	edges := make([]float64, 0, k+1)
	for i := 0; i <= k; i++ {
		q := quantile(sorted, float64(i)/float64(k))
		switch i {
		case 0:
			q = math.Floor(q)
		case k:
			q = math.Ceil(q)
		default:
			q = math.Round(q)
		}
		if n := len(edges); n > 0 && edges[n-1] == q {
			continue
		}
		edges = append(edges, q)
	}
	if len(edges) < minEdges {
		return nil, model.ErrDegenerateScale
	}
	return edges, nil
}

// quantile interpolates linearly between order statistics.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	i := int(math.Floor(pos))
	if i >= n-1 {
		return sorted[n-1]
	}
	return between(sorted[i], sorted[i+1], pos-float64(i))
}

// between interpolates from a to b without leaving [a, b]. b-a overflows only
// when a and b differ in sign, where the weighted form is safe.
func between(a, b, frac float64) float64 {
	var v float64
	if d := b - a; !math.IsInf(d, 0) {
		v = a + d*frac
	} else {
		v = a*(1-frac) + b*frac
	}
	return math.Min(math.Max(v, a), b)
}

// linear returns n evenly spaced points from lo to hi inclusive.
func linear(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = between(lo, hi, float64(i)/float64(n-1))
	}
	out[0], out[n-1] = lo, hi
	return out
}

func dedupe(edges []float64) []float64 {
	sort.Float64s(edges)
	out := edges[:0]
	for _, e := range edges {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			continue
		}
		if n := len(out); n > 0 && out[n-1] == e {
			continue
		}
		out = append(out, e)
	}
	return out
}

// widen handles ranges too narrow for float64 to hold three distinct points.
func widen(lo, hi float64) []float64 {
	step := math.Max(math.Abs(lo), 1) * 1e-6
	if top := math.Max(hi, lo+2*step); !math.IsInf(top, 0) {
		return []float64{lo, lo + step, top}
	}
	// No room above lo, grow downward from hi instead.
	step = math.Max(math.Abs(hi), 1) * 1e-6
	return []float64{math.Min(lo, hi-2*step), hi - step, hi}
}

// Classify returns the bucket index of v for edges, in [0, len(edges)-2].
// Values outside the edges fall into the first or last bucket. NaN gives -1.
func Classify(edges []float64, v float64) int {
	if len(edges) < 2 || math.IsNaN(v) {
		return -1
	}
	last := len(edges) - 2
	i := sort.SearchFloat64s(edges, v)
	switch {
	case i == 0:
		return 0
	case i < len(edges) && edges[i] == v:
		return min(i, last)
	default:
		return min(i-1, last)
	}
}
