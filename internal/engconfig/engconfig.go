// Package engconfig loads the engine's ambient defaults — the knobs
// that are not part of any individual program document: default seed,
// outer step cap, search bounds, the cooperative yield interval, and the
// default selection temperature. Only DefaultSeed and MaxOuterSteps are
// read, by the cmd/ drivers; the search, yield, temperature and
// potential-cap fields are loaded but not read by the interpreter or
// the nodes.
// Grounded in the teacher's internal/sim/tuning YAML loader.
package engconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the engine's tunable defaults.
type Config struct {
	DefaultSeed int64 `yaml:"default_seed"`

	SearchDepthCap      int     `yaml:"search_depth_cap"`
	SearchYieldInterval int     `yaml:"search_yield_interval"`
	DefaultTemperature  float64 `yaml:"default_temperature"`

	BackwardPotentialCap int `yaml:"backward_potential_cap"`

	MaxOuterSteps int `yaml:"max_outer_steps"`
}

// Default returns the engine's built-in defaults, used when no
// engine.yaml is supplied.
func Default() Config {
	return Config{
		DefaultSeed:          0,
		SearchDepthCap:       64,
		SearchYieldInterval:  256,
		DefaultTemperature:   0,
		BackwardPotentialCap: 64,
		MaxOuterSteps:        0, // unbounded
	}
}

// Load reads and merges path's YAML over Default(); a missing field in
// the file keeps its default value.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("engconfig: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("engconfig: %s: %w", path, err)
	}
	return cfg, nil
}
