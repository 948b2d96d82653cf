package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
	"github.com/couchcryptid/traffic-dashboard/internal/generator"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Record generator.
	GeneratorSeed      int64
	ObservationCount   int
	ForecastHorizon    int
	ForecastModel      generator.ForecastModel
	ObservationLatency time.Duration
	ForecastLatency    time.Duration

	// Refresh controller.
	FetchTimeout    time.Duration
	RefreshInterval time.Duration
	InitialFilter   domain.Filter

	// Optional real backend; empty URL keeps the generator as data source.
	BackendURL      string
	BackendTimeout  time.Duration
	BackendMaxRetry time.Duration

	// Snapshot summary publishing.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string

	SummaryCacheSize int
	SettingsFile     string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BackendURL:         os.Getenv("BACKEND_URL"),
		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "traffic-snapshots"),
		SettingsFile:       os.Getenv("SETTINGS_FILE"),
	}

	if cfg.GeneratorSeed, err = parseInt64("GENERATOR_SEED", "0"); err != nil {
		return nil, err
	}
	if cfg.ObservationCount, err = parseNonNegativeInt("OBSERVATION_COUNT", "50"); err != nil {
		return nil, err
	}
	if cfg.ForecastHorizon, err = parseNonNegativeInt("FORECAST_HORIZON", "24"); err != nil {
		return nil, err
	}
	if cfg.SummaryCacheSize, err = parsePositiveInt("SUMMARY_CACHE_SIZE", "64"); err != nil {
		return nil, err
	}
	if cfg.ForecastModel, err = generator.ParseForecastModel(sharedcfg.EnvOrDefault("FORECAST_MODEL", "uniform")); err != nil {
		return nil, fmt.Errorf("invalid FORECAST_MODEL: %w", err)
	}

	durations := []struct {
		name string
		def  string
		dst  *time.Duration
		zero bool // zero allowed
	}{
		{"OBSERVATION_LATENCY", "1s", &cfg.ObservationLatency, true},
		{"FORECAST_LATENCY", "800ms", &cfg.ForecastLatency, true},
		{"FETCH_TIMEOUT", "10s", &cfg.FetchTimeout, true},
		{"REFRESH_INTERVAL", "30s", &cfg.RefreshInterval, true},
		{"BACKEND_TIMEOUT", "5s", &cfg.BackendTimeout, false},
		{"BACKEND_MAX_RETRY", "30s", &cfg.BackendMaxRetry, true},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(d.name, d.def, d.zero); err != nil {
			return nil, err
		}
	}

	timeRange, err := domain.ParseTimeRange(sharedcfg.EnvOrDefault("INITIAL_TIME_RANGE", string(domain.TimeRange24h)))
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_TIME_RANGE: %w", err)
	}
	cfg.InitialFilter = domain.Filter{
		Location:  sharedcfg.EnvOrDefault("INITIAL_LOCATION", domain.AllLocations),
		TimeRange: timeRange,
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSnapshotTopic == "" {
			return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parseDuration(name, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parseInt64(name, def string) (int64, error) {
	n, err := strconv.ParseInt(sharedcfg.EnvOrDefault(name, def), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

func parseNonNegativeInt(name, def string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(name, def))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

func parsePositiveInt(name, def string) (int, error) {
	n, err := parseNonNegativeInt(name, def)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}
