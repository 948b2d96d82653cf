package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
)

// dataset is the file format shared by all subcommands.
type dataset struct {
	GeneratedAt  time.Time            `json:"generated_at"`
	Seed         int64                `json:"seed"`
	Model        string               `json:"model"`
	Filter       domain.Filter        `json:"filter"`
	Observations []domain.Observation `json:"observations"`
	Forecasts    []domain.Forecast    `json:"forecasts"`
}

func readDataset(path string) (dataset, error) {
	if path == "" {
		return dataset{}, fmt.Errorf("missing required flag: --input")
	}
	f, err := os.Open(path)
	if err != nil {
		return dataset{}, err
	}
	defer f.Close()

	var ds dataset
	if err := json.NewDecoder(f).Decode(&ds); err != nil {
		return dataset{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return ds, nil
}

// writeJSON writes v to path, or to fallback when path is empty.
func writeJSON(path string, fallback io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if path == "" {
		_, err = fallback.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
