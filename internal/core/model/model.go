// Package model defines core domain types shared across the service.
package model

import "fmt"

// RegionValue is a non-absent value of a region for one year.
type RegionValue struct {
	Region string  `json:"region"`
	Code   string  `json:"code,omitempty"`
	Value  float64 `json:"value"`
}

type RankEntry struct {
	Region string  `json:"region"`
	Value  float64 `json:"value"`
	Rank   int     `json:"rank"`
}

type VariationStatus string

const (
	VariationOK           VariationStatus = "ok"
	VariationNoPriorYear  VariationStatus = "no_prior_year"
	VariationNoPriorValue VariationStatus = "no_prior_value"
	// prior value present but exactly zero; the percentage is undefined
	VariationZeroBaseline VariationStatus = "zero_baseline"
	// the change does not fit in a float64, e.g. a subnormal prior value
	VariationOutOfRange VariationStatus = "out_of_range"
)

type Stats struct {
	Region        string  `json:"region"`
	Year          int     `json:"year"`
	Value         float64 `json:"value"`
	NationalMean  float64 `json:"national_mean"`
	DeltaFromMean float64 `json:"delta_from_mean"`
	MaxValue      float64 `json:"max_value"`
	MaxRegion     string  `json:"max_region"`
	Rank          int     `json:"rank"`
	TotalRegions  int     `json:"total_regions"`

	PriorYear        int             `json:"prior_year,omitempty"`
	VariationPercent *float64        `json:"variation_percent,omitempty"`
	Variation        VariationStatus `json:"variation"`
}

// String is a one-line summary for logs and the CLI
func (s Stats) String() string {
	return fmt.Sprintf("%s %d: %.1f Mt (mean %.1f, rank %d/%d, max %s %.1f)",
		s.Region, s.Year, s.Value, s.NationalMean, s.Rank, s.TotalRegions, s.MaxRegion, s.MaxValue)
}

type QueryRequest struct {
	Region string
	Year   int
	Bins   int
}
