package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/br-emissions/internal/regions"
)

var ErrNoYears = errors.New("csv has no year columns")

// ParseCSV reads the wide emissions layout: the first column holds region
// names under an arbitrary header, every other header is a year and cells are
// values in Mt CO2e. Empty, "NaN", "NA" and "-" cells are absent.
func ParseCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv is empty")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) < 2 {
		return nil, ErrNoYears
	}

	years := make([]int, 0, len(header)-1)
	for _, h := range header[1:] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		y, err := strconv.Atoi(h)
		if err != nil {
			return nil, fmt.Errorf("year header %q: %w", h, err)
		}
		years = append(years, y)
	}

	var (
		names []string
		rows  [][]float64
	)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		name := regions.NormalizeName(rec[0])
		if name == "" {
			continue
		}
		row := make([]float64, len(years))
		for j := range years {
			cell := ""
			if j+1 < len(rec) {
				cell = rec[j+1]
			}
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d, %s %d: %w", line, name, years[j], err)
			}
			row[j] = v
		}
		names = append(names, name)
		rows = append(rows, row)
	}

	t, err := New(names, years, rows)
	if err != nil {
		return nil, fmt.Errorf("build table: %w", err)
	}
	return t, nil
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "na", "n/a", "-":
		return math.NaN(), nil
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse value %q: %w", s, err)
	}
	return v, nil
}
