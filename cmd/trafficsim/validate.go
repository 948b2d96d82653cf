package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newValidateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a dataset against the record invariants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			ds, err := readDataset(cfg.Input)
			if err != nil {
				return err
			}
			phases := validate(ds)
			if !report(cmd.OutOrStdout(), phases) {
				return errors.New("validation failed")
			}
			return nil
		},
	}
	cmd.Flags().StringP("input", "i", "", "dataset file")
	return cmd
}

func validate(ds dataset) []*phase {
	filter := &phase{name: "filter"}
	if err := domain.ValidateFilter(ds.Filter); err != nil {
		filter.errorf("%v", err)
	}

	obs := &phase{name: "observations"}
	if err := domain.ValidateObservations(ds.Observations); err != nil {
		obs.errorf("%v", err)
	}
	ids := make(map[string]int, len(ds.Observations))
	for i, o := range ds.Observations {
		if prev, dup := ids[o.ID]; dup {
			obs.errorf("duplicate id %q at index %d and %d", o.ID, prev, i)
		}
		ids[o.ID] = i
		if ds.Filter.Location != domain.AllLocations && o.Location != ds.Filter.Location {
			obs.errorf("observation %d at %q outside location filter %q", i, o.Location, ds.Filter.Location)
		}
	}

	fc := &phase{name: "forecasts"}
	if err := domain.ValidateForecasts(ds.Forecasts); err != nil {
		fc.errorf("%v", err)
	}
	for i := 1; i < len(ds.Forecasts); i++ {
		if !ds.Forecasts[i].Timestamp.After(ds.Forecasts[i-1].Timestamp) {
			fc.errorf("forecast %d is not after forecast %d", i, i-1)
		}
	}

	return []*phase{filter, obs, fc}
}

func report(w io.Writer, phases []*phase) bool {
	ok := true
	for _, p := range phases {
		if p.passed() {
			fmt.Fprintf(w, "PASS %s\n", p.name)
			continue
		}
		ok = false
		fmt.Fprintf(w, "FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
	return ok
}
