package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/couchcryptid/traffic-dashboard/internal/aggregate"
	"github.com/couchcryptid/traffic-dashboard/internal/settings"
	"github.com/couchcryptid/traffic-dashboard/internal/store"
)

func newSummarizeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Print the dashboard summary of a dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			ds, err := readDataset(cfg.Input)
			if err != nil {
				return err
			}

			opts := settings.Default().SummaryOptions()
			if cfg.Settings != "" {
				s, err := settings.Load(cfg.Settings)
				if err != nil {
					return err
				}
				opts = s.SummaryOptions()
			}
			return writeJSON(cfg.Output, cmd.OutOrStdout(), summarize(ds, opts))
		},
	}

	cmd.Flags().StringP("input", "i", "", "dataset file")
	cmd.Flags().String("settings", "", "dashboard settings file")
	cmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	return cmd
}

func summarize(ds dataset, opts aggregate.Options) aggregate.Summary {
	snap := store.Snapshot{
		Observations:     ds.Observations,
		Forecasts:        ds.Forecasts,
		Status:           store.StatusReady,
		SelectedLocation: ds.Filter.Location,
		TimeRange:        ds.Filter.TimeRange,
		UpdatedAt:        ds.GeneratedAt,
	}
	return aggregate.Summarize(snap, opts)
}
