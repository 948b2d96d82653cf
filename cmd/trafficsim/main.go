// Command trafficsim produces and checks deterministic traffic datasets.
//
// Usage:
//
//	go run ./cmd/trafficsim generate --seed 7 --count 200 --at 2026-03-02T09:00:00Z -o data/traffic.json
//	go run ./cmd/trafficsim summarize -i data/traffic.json --settings settings.yaml
//	go run ./cmd/trafficsim validate -i data/traffic.json
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
