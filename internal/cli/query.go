package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mohammed-shakir/br-emissions/internal/core/router"
	"github.com/mohammed-shakir/br-emissions/internal/dashboard"
)

func newQueryCmd(g *globalFlags) *cobra.Command {
	var (
		region string
		year   int
		output string
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Compute the dashboard for one state and year",
		Example: `  dashboard query --region "São Paulo" --year 2021
  dashboard query --region sp --year 2021 --bins 7 --output text`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(region) == "" {
				return errors.New("--region is required")
			}
			if !cmd.Flags().Changed("year") {
				return errors.New("--year is required")
			}
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			log := newLogger(cfg, "cli", cmd.ErrOrStderr())

			a, cleanup, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer cleanup()

			t, err := a.Table(cmd.Context())
			if err != nil {
				return fmt.Errorf("load emissions table: %w", err)
			}
			name := router.ResolveRegion(t, region)
			res := dashboard.New(t, cfg.BinCount, log).Execute(cmd.Context(), name, year)

			switch output {
			case "text":
				writeText(cmd.OutOrStdout(), res)
			default:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return fmt.Errorf("encode result: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "state name or two-letter code")
	cmd.Flags().IntVar(&year, "year", 0, "year to query")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or text")
	return cmd
}

// writeText prints a short summary with pt-BR number formatting. Years are
// printed with fmt so they are not digit-grouped.
func writeText(w io.Writer, res dashboard.Result) {
	if !res.OK() {
		_, _ = fmt.Fprintf(w, "warning (%s): %s\n", res.Warning.Kind, res.Warning.Message)
		return
	}
	p := message.NewPrinter(language.BrazilianPortuguese)
	s := res.Response.Stats
	_, _ = fmt.Fprintf(w, "%s, %d: %s Mt CO2e\n", s.Region, s.Year, p.Sprintf("%.2f", s.Value))
	_, _ = fmt.Fprintf(w, "  national mean %s (delta %s)\n",
		p.Sprintf("%.2f", s.NationalMean), p.Sprintf("%+.2f", s.DeltaFromMean))
	_, _ = fmt.Fprintf(w, "  rank %d of %d, max %s %s\n",
		s.Rank, s.TotalRegions, s.MaxRegion, p.Sprintf("%.2f", s.MaxValue))
	if s.VariationPercent != nil {
		_, _ = fmt.Fprintf(w, "  vs %d: %s%%\n", s.PriorYear, p.Sprintf("%+.1f", *s.VariationPercent))
	}
	edges := make([]string, len(res.Response.Thresholds))
	for i, e := range res.Response.Thresholds {
		edges[i] = p.Sprintf("%.2f", e)
	}
	_, _ = fmt.Fprintf(w, "  bins (%s): %s\n", res.Response.Strategy, strings.Join(edges, " | "))
}
