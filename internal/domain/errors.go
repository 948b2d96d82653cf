package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned by aggregations that are undefined on an empty sequence.
var ErrEmptyInput = errors.New("empty input")

// ValidationError reports a record or filter value that violates the data model.
type ValidationError struct {
	Kind  string // "observation", "forecast" or empty for filter values
	Index int    // position of the offending record, -1 when not applicable
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Kind != "" && e.Field != "":
		return fmt.Sprintf("invalid %s at index %d: field %s: %v", e.Kind, e.Index, e.Field, e.Err)
	case e.Kind != "":
		return fmt.Sprintf("invalid %s at index %d: %v", e.Kind, e.Index, e.Err)
	case e.Field != "":
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	default:
		return fmt.Sprintf("validation failed: %v", e.Err)
	}
}

func (e *ValidationError) Unwrap() error { return e.Err }

// FetchError reports a failed retrieval of one data kind.
type FetchError struct {
	Kind Kind
	Err  error
}

// Error returns the human-readable message shown on the dashboard.
func (e *FetchError) Error() string {
	switch e.Kind {
	case KindObservations:
		return fmt.Sprintf("failed to fetch traffic data: %v", e.Err)
	case KindForecasts:
		return fmt.Sprintf("failed to fetch predictions: %v", e.Err)
	default:
		return fmt.Sprintf("failed to fetch %s: %v", e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }
