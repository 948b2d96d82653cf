// Package settings loads the dashboard settings file. Settings are YAML with
// the same sections the settings page edits; any field left out of the file
// keeps its default.
package settings

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/traffic-dashboard/internal/aggregate"
)

// Settings is the full dashboard settings document.
type Settings struct {
	General       General       `yaml:"general"`
	Notifications Notifications `yaml:"notifications"`
	MLModel       MLModel       `yaml:"mlModel"`
	Sensors       Sensors       `yaml:"sensors"`
}

// General holds display and refresh settings.
type General struct {
	SystemName      string `yaml:"systemName" validate:"required"`
	Timezone        string `yaml:"timezone" validate:"required"`
	RefreshInterval int    `yaml:"refreshInterval" validate:"gte=0"` // seconds, 0 disables
}

// Notifications controls congestion alerting.
type Notifications struct {
	CriticalOnly   bool    `yaml:"criticalOnly"`
	AlertThreshold float64 `yaml:"alertThreshold" validate:"gte=0,lte=100"` // percent
}

// MLModel holds forecast quality settings.
type MLModel struct {
	ConfidenceThreshold float64 `yaml:"confidenceThreshold" validate:"gte=0,lte=1"`
}

// Sensors describes the deployed sensor fleet.
type Sensors struct {
	TotalSensors  int `yaml:"totalSensors" validate:"gte=0"`
	ActiveSensors int `yaml:"activeSensors" validate:"gte=0,ltefield=TotalSensors"`
}

// Default returns the settings a fresh installation starts with.
func Default() Settings {
	return Settings{
		General: General{
			SystemName:      "TrafficTelligence System",
			Timezone:        "UTC-5",
			RefreshInterval: 30,
		},
		Notifications: Notifications{AlertThreshold: 80},
		MLModel:       MLModel{ConfidenceThreshold: 0.75},
		Sensors:       Sensors{TotalSensors: 24, ActiveSensors: 23},
	}
}

// Load reads and validates a settings file.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return Parse(data)
}

// Parse decodes settings YAML over the defaults and validates the result.
func Parse(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks every section.
func (s Settings) Validate() error {
	v := validator.New()
	sections := []struct {
		name string
		val  any
	}{
		{"general", s.General},
		{"notifications", s.Notifications},
		{"mlModel", s.MLModel},
		{"sensors", s.Sensors},
	}
	for _, sec := range sections {
		if err := v.Struct(sec.val); err != nil {
			return fmt.Errorf("invalid %s settings: %w", sec.name, err)
		}
	}
	if _, err := ParseZone(s.General.Timezone); err != nil {
		return fmt.Errorf("invalid general settings: %w", err)
	}
	return nil
}

// RefreshEvery returns the auto-refresh period.
func (s Settings) RefreshEvery() time.Duration {
	return time.Duration(s.General.RefreshInterval) * time.Second
}

// InactiveSensors is the number of sensors not reporting.
func (s Settings) InactiveSensors() int {
	return s.Sensors.TotalSensors - s.Sensors.ActiveSensors
}

// SummaryOptions maps the settings onto dashboard summary options.
func (s Settings) SummaryOptions() aggregate.Options {
	opts := aggregate.DefaultOptions()
	opts.AlertThresholdPct = s.Notifications.AlertThreshold
	opts.CriticalOnly = s.Notifications.CriticalOnly
	opts.ConfidenceThreshold = s.MLModel.ConfidenceThreshold
	opts.Sensors = aggregate.SensorCounts{
		Total:    s.Sensors.TotalSensors,
		Active:   s.Sensors.ActiveSensors,
		Inactive: s.InactiveSensors(),
	}
	if loc, err := ParseZone(s.General.Timezone); err == nil {
		opts.Location = loc
	}
	return opts
}

// ParseZone accepts fixed offsets such as "UTC-5" or "UTC+05:30" and IANA
// zone names.
func ParseZone(name string) (*time.Location, error) {
	rest, ok := strings.CutPrefix(name, "UTC")
	if !ok || rest == "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("unknown timezone %q", name)
		}
		return loc, nil
	}

	sign := 1
	switch rest[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, fmt.Errorf("unknown timezone %q", name)
	}

	hh, mm, hasMinutes := strings.Cut(rest[1:], ":")
	hours, ok := offsetPart(hh)
	if !ok || hours > 14 {
		return nil, fmt.Errorf("invalid offset in timezone %q", name)
	}
	minutes := 0
	if hasMinutes {
		if minutes, ok = offsetPart(mm); !ok || minutes >= 60 {
			return nil, errors.New("invalid offset minutes in timezone " + strconv.Quote(name))
		}
	}
	return time.FixedZone(name, sign*(hours*3600+minutes*60)), nil
}

// offsetPart parses one to two unsigned digits.
func offsetPart(s string) (int, bool) {
	if s == "" || len(s) > 2 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
