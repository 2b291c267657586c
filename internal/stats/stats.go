// Package stats computes per-year national statistics for one region.
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/mohammed-shakir/br-emissions/internal/core/model"
	"github.com/mohammed-shakir/br-emissions/internal/dataset"
)

// Compute returns the value of region in year together with the national mean,
// the top emitter, the region's rank and its change from year-1.
func Compute(t dataset.View, region string, year int) (model.Stats, error) {
	if !t.HasRegion(region) {
		return model.Stats{}, model.UnknownRegion(region)
	}
	col, err := t.YearColumn(year)
	if err != nil {
		return model.Stats{}, fmt.Errorf("stats %s/%d: %w", region, year, err)
	}
	value, ok := t.Value(region, year)
	if !ok {
		return model.Stats{}, &model.MissingValueError{Region: region, Year: year}
	}

	mean, err := Mean(col, year)
	if err != nil {
		return model.Stats{}, err
	}
	maxEntry := Max(col)

	ranking := rank(col)
	pos := 0
	for _, e := range ranking {
		if e.Region == region {
			pos = e.Rank
			break
		}
	}

	s := model.Stats{
		Region:        region,
		Year:          year,
		Value:         value,
		NationalMean:  mean,
		DeltaFromMean: saturate(value - mean),
		MaxValue:      maxEntry.Value,
		MaxRegion:     maxEntry.Region,
		Rank:          pos,
		TotalRegions:  len(col),
	}
	if t.HasYear(year - 1) {
		s.PriorYear = year - 1
	}
	s.VariationPercent, s.Variation = Variation(t, region, year)
	return s, nil
}

// Mean is the arithmetic mean of a year column. It is accumulated as a
// running mean so columns near the float64 limit do not overflow.
func Mean(col []model.RegionValue, year int) (float64, error) {
	if len(col) == 0 {
		return 0, &model.EmptyColumnError{Year: year}
	}
	var m float64
	for i, rv := range col {
		n := float64(i + 1)
		m += rv.Value/n - m/n
	}
	return m, nil
}

// saturate clamps an overflowed difference to the largest finite value.
func saturate(v float64) float64 {
	return math.Max(-math.MaxFloat64, math.Min(v, math.MaxFloat64))
}

// Max returns the greatest entry; among ties the first in column order wins.
// The zero value is returned for an empty column.
func Max(col []model.RegionValue) model.RegionValue {
	var best model.RegionValue
	for i, rv := range col {
		if i == 0 || rv.Value > best.Value {
			best = rv
		}
	}
	return best
}

// Rank orders the year column descending, ties kept in table region order.
// Ranks are exactly 1..N for the N non-absent regions.
func Rank(t dataset.View, year int) ([]model.RankEntry, error) {
	col, err := t.YearColumn(year)
	if err != nil {
		return nil, fmt.Errorf("rank %d: %w", year, err)
	}
	return rank(col), nil
}

func rank(col []model.RegionValue) []model.RankEntry {
	sorted := make([]model.RegionValue, len(col))
	copy(sorted, col)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })

	out := make([]model.RankEntry, len(sorted))
	for i, rv := range sorted {
		out[i] = model.RankEntry{Region: rv.Region, Value: rv.Value, Rank: i + 1}
	}
	return out
}

// Variation is the percent change of region from year-1 to year. The
// percentage is nil unless both values exist, the prior one is non-zero and
// the result is finite.
func Variation(t dataset.View, region string, year int) (*float64, model.VariationStatus) {
	prior := year - 1
	if !t.HasYear(prior) {
		return nil, model.VariationNoPriorYear
	}
	cur, ok := t.Value(region, year)
	if !ok {
		return nil, model.VariationNoPriorValue
	}
	prev, ok := t.Value(region, prior)
	if !ok {
		return nil, model.VariationNoPriorValue
	}
	if prev == 0 {
		return nil, model.VariationZeroBaseline
	}
	pct := (cur - prev) / prev * 100
	if math.IsInf(pct, 0) || math.IsNaN(pct) {
		return nil, model.VariationOutOfRange
	}
	return &pct, model.VariationOK
}
