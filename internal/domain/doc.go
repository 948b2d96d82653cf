// Package domain models the traffic dataset shown on the monitoring dashboard.
//
// # Records
//
// An [Observation] is one timestamped reading at a monitored location: vehicle
// count, mean speed (km/h), congestion level, weather, temperature (°C),
// visibility (km), road type and whether an event is nearby. A [Forecast] is
// one predicted hourly interval with a confidence in [0,1] and the weights of
// the drivers behind the prediction (weather, events, historical, seasonal).
// Driver weights are independent and need not sum to 1.
//
// Both record kinds are immutable once created and are replaced wholesale on
// every refresh; there is no incremental merge.
//
// # Congestion levels
//
// Levels are ordered: low < medium < high < critical. [CongestionLevel.Rank]
// exposes the ordering; "high" and "critical" readings count as congestion
// events in the analytics views.
//
// # Filters
//
// The dashboard filters by location (a catalogue name or the sentinel "all")
// and by a time range from a closed set:
//
//	1h  6h  24h  7d  30d
//
// A real backend receives the filter as {location, time_range}.
//
// # Errors
//
// Three failure classes cross package boundaries:
//
//   - [FetchError]: retrieving observations or forecasts failed. Recoverable
//     by refreshing again; surfaced to consumers as the snapshot error text.
//   - [ErrEmptyInput]: an aggregation that needs at least one record was
//     given none. This is a programming error, not a user-facing condition.
//   - [ValidationError]: a record violates the data model. Records from a
//     real source are validated before they can reach the store.
package domain
