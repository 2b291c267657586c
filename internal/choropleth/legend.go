package choropleth

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mohammed-shakir/br-emissions/internal/binscale"
)

// YlGnBu is the 9-class ColorBrewer sequential palette, light to dark.
var YlGnBu = []string{
	"#ffffd9", "#edf8b1", "#c7e9b4", "#7fcdbb", "#41b6c4",
	"#1d91c0", "#225ea8", "#253494", "#081d58",
}

const NoDataColor = "#d9d9d9"

type LegendEntry struct {
	Bin   int     `json:"bin"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Color string  `json:"color"`
	Label string  `json:"label"`
}

type Legend struct {
	Year       int               `json:"year"`
	Strategy   binscale.Strategy `json:"strategy"`
	Thresholds []float64         `json:"thresholds"`
	Entries    []LegendEntry     `json:"entries"`
	NoData     string            `json:"no_data_color"`
}

var labels = message.NewPrinter(language.BrazilianPortuguese)

// NewLegend describes one entry per bin of sc. Colors are spread over the
// whole palette so two bins use its two ends.
func NewLegend(year int, sc binscale.Scale) Legend {
	n := len(sc.Thresholds) - 1
	entries := make([]LegendEntry, 0, max(n, 0))
	for i := range n {
		lo, hi := sc.Thresholds[i], sc.Thresholds[i+1]
		entries = append(entries, LegendEntry{
			Bin:   i,
			Lower: lo,
			Upper: hi,
			Color: colorFor(i, n),
			Label: labels.Sprintf("%.2f - %.2f", lo, hi),
		})
	}
	return Legend{
		Year:       year,
		Strategy:   sc.Strategy,
		Thresholds: sc.Thresholds,
		Entries:    entries,
		NoData:     NoDataColor,
	}
}

// Color returns the fill for bin; -1 is no data.
func (l Legend) Color(bin int) string {
	if bin < 0 || bin >= len(l.Entries) {
		return NoDataColor
	}
	return l.Entries[bin].Color
}

func colorFor(bin, bins int) string {
	if bins <= 1 {
		return YlGnBu[len(YlGnBu)-1]
	}
	last := len(YlGnBu) - 1
	i := (bin*last + (bins-1)/2) / (bins - 1)
	return YlGnBu[min(i, last)]
}
