// Package dataset holds the in-memory emissions table keyed by (region, year).
package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/mohammed-shakir/br-emissions/internal/core/model"
	"github.com/mohammed-shakir/br-emissions/internal/regions"
)

var (
	ErrDuplicateRegion = errors.New("duplicate region")
	ErrDuplicateYear   = errors.New("duplicate year")
	ErrShape           = errors.New("cell matrix does not match regions x years")
)

// View is the read-only contract the stats and binning code depend on.
type View interface {
	Value(region string, year int) (float64, bool)
	Years() []int
	Regions() []string
	HasRegion(region string) bool
	HasYear(year int) bool
	YearColumn(year int) ([]model.RegionValue, error)
}

// Table is immutable once built and safe for concurrent readers.
type Table struct {
	regions   []string
	codes     []string
	years     []int
	regionIdx map[string]int
	yearIdx   map[int]int
	cells     [][]float64 // [region][year]; NaN marks absent
}

// Absent is the cell value New treats as "no data".
func Absent() float64 { return math.NaN() }

// New builds a table from rows[i][j] = value of regions[i] in years[j].
// NaN and infinite cells are stored as absent. Years are kept ascending.
func New(regionNames []string, years []int, rows [][]float64) (*Table, error) {
	if len(rows) != len(regionNames) {
		return nil, fmt.Errorf("%w: %d rows for %d regions", ErrShape, len(rows), len(regionNames))
	}

	t := &Table{
		regions:   make([]string, len(regionNames)),
		codes:     make([]string, len(regionNames)),
		regionIdx: make(map[string]int, len(regionNames)),
		yearIdx:   make(map[int]int, len(years)),
	}
	for i, r := range regionNames {
		if _, dup := t.regionIdx[r]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRegion, r)
		}
		t.regionIdx[r] = i
		t.regions[i] = r
		t.codes[i], _ = regions.Code(r)
	}

	order := make([]int, len(years))
	for j := range years {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool { return years[order[a]] < years[order[b]] })

	t.years = make([]int, len(years))
	for j, src := range order {
		y := years[src]
		if _, dup := t.yearIdx[y]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateYear, y)
		}
		t.yearIdx[y] = j
		t.years[j] = y
	}

	t.cells = make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(years) {
			return nil, fmt.Errorf("%w: region %q has %d cells for %d years", ErrShape, regionNames[i], len(row), len(years))
		}
		out := make([]float64, len(years))
		for j, src := range order {
			v := row[src]
			if math.IsInf(v, 0) {
				v = math.NaN()
			}
			out[j] = v
		}
		t.cells[i] = out
	}
	return t, nil
}

func (t *Table) Value(region string, year int) (float64, bool) {
	i, ok := t.regionIdx[region]
	if !ok {
		return 0, false
	}
	j, ok := t.yearIdx[year]
	if !ok {
		return 0, false
	}
	v := t.cells[i][j]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func (t *Table) Years() []int {
	out := make([]int, len(t.years))
	copy(out, t.years)
	return out
}

func (t *Table) Regions() []string {
	out := make([]string, len(t.regions))
	copy(out, t.regions)
	return out
}

func (t *Table) HasRegion(region string) bool {
	_, ok := t.regionIdx[region]
	return ok
}

func (t *Table) HasYear(year int) bool {
	_, ok := t.yearIdx[year]
	return ok
}

// Code returns the two-letter code of a table region, if it is a known state.
func (t *Table) Code(region string) string {
	if i, ok := t.regionIdx[region]; ok {
		return t.codes[i]
	}
	return ""
}

// YearColumn returns the non-absent values of year in table region order.
func (t *Table) YearColumn(year int) ([]model.RegionValue, error) {
	j, ok := t.yearIdx[year]
	if !ok {
		return nil, model.UnknownYear(year)
	}
	out := make([]model.RegionValue, 0, len(t.regions))
	for i, r := range t.regions {
		v := t.cells[i][j]
		if math.IsNaN(v) {
			continue
		}
		out = append(out, model.RegionValue{Region: r, Code: t.codes[i], Value: v})
	}
	return out, nil
}
