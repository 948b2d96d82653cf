package domain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateObservations checks every observation against the data model and
// returns a *ValidationError for the first violation.
func ValidateObservations(obs []Observation) error {
	v := recordValidator()
	for i := range obs {
		if err := v.Struct(obs[i]); err != nil {
			return newValidationError("observation", i, err)
		}
	}
	return nil
}

// ValidateForecasts checks every forecast against the data model and returns
// a *ValidationError for the first violation.
func ValidateForecasts(forecasts []Forecast) error {
	v := recordValidator()
	for i := range forecasts {
		if err := v.Struct(forecasts[i]); err != nil {
			return newValidationError("forecast", i, err)
		}
	}
	return nil
}

// ValidateFilter checks a filter's location and time range.
func ValidateFilter(f Filter) error {
	if f.Location == "" {
		return &ValidationError{Index: -1, Field: "location", Err: errors.New("must not be empty")}
	}
	if _, err := ParseTimeRange(string(f.TimeRange)); err != nil {
		return err
	}
	return nil
}

func newValidationError(kind string, index int, err error) *ValidationError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{
			Kind:  kind,
			Index: index,
			Field: fe.Field(),
			Err:   fmt.Errorf("failed %q rule (value %v)", fe.Tag(), fe.Value()),
		}
	}
	return &ValidationError{Kind: kind, Index: index, Err: err}
}
