package main

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
	"github.com/couchcryptid/traffic-dashboard/internal/generator"
)

func newGenerateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic observation and forecast dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			ds, err := generate(cfg)
			if err != nil {
				return err
			}
			if err := writeJSON(cfg.Output, cmd.OutOrStdout(), ds); err != nil {
				return err
			}
			if cfg.Output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d observations and %d forecasts to %s\n",
					len(ds.Observations), len(ds.Forecasts), cfg.Output)
			}
			return nil
		},
	}

	cmd.Flags().Int64("seed", 42, "random seed")
	cmd.Flags().Int("count", 50, "number of observations")
	cmd.Flags().Int("horizon", 24, "number of hourly forecasts")
	cmd.Flags().String("location", domain.AllLocations, "location filter")
	cmd.Flags().String("time-range", string(domain.TimeRange24h), "time range filter (1h, 6h, 24h, 7d, 30d)")
	cmd.Flags().String("model", string(generator.ModelUniform), "forecast model (uniform, parametric)")
	cmd.Flags().String("at", "", "reference time in RFC3339 (default now)")
	cmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	return cmd
}

func generate(cfg simConfig) (dataset, error) {
	timeRange, err := domain.ParseTimeRange(cfg.TimeRange)
	if err != nil {
		return dataset{}, err
	}
	model, err := generator.ParseForecastModel(cfg.Model)
	if err != nil {
		return dataset{}, err
	}
	if cfg.Count < 0 || cfg.Horizon < 0 {
		return dataset{}, fmt.Errorf("count and horizon must not be negative")
	}

	at := cfg.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	filter := domain.Filter{Location: cfg.Location, TimeRange: timeRange}
	gen := generator.New(cfg.Seed, clockwork.NewFakeClockAt(at))

	ds := dataset{
		GeneratedAt:  at,
		Seed:         cfg.Seed,
		Model:        string(model),
		Filter:       filter,
		Observations: gen.GenerateObservationsFor(filter, cfg.Count),
	}
	if model == generator.ModelParametric {
		ds.Forecasts = gen.GenerateParametricForecasts(filter, cfg.Horizon)
	} else {
		ds.Forecasts = gen.GenerateForecasts(cfg.Horizon)
	}
	return ds, nil
}
