// Package config loads the bucket weights, shares and empty-bucket policy
// from an optional YAML file. Keys absent from the file keep their defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"course-rating/pkg/calculator"
)

// Config mirrors the weights file.
type Config struct {
	TimeWeights []float64 `yaml:"time_weights"`
	UserWeights []float64 `yaml:"user_weights"`
	TimeShare   float64   `yaml:"time_share"`
	UserShare   float64   `yaml:"user_share"`
	EmptyBucket string    `yaml:"empty_bucket"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	d := calculator.DefaultAggregator()
	return &Config{
		TimeWeights: append([]float64(nil), d.TimeWeights[:]...),
		UserWeights: append([]float64(nil), d.UserWeights[:]...),
		TimeShare:   d.TimeShare,
		UserShare:   d.UserShare,
		EmptyBucket: d.Policy.String(),
	}
}

// Load reads and validates the weights file at path. An empty path yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("weights config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("weights config: parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("weights config: %w", err)
	}
	return cfg, nil
}

// Validate checks the structural constraints of the configuration.
func (c *Config) Validate() error {
	for _, list := range []struct {
		name string
		ws   []float64
	}{
		{"time_weights", c.TimeWeights},
		{"user_weights", c.UserWeights},
	} {
		if len(list.ws) != 4 {
			return fmt.Errorf("%s needs 4 weights, got %d", list.name, len(list.ws))
		}
		for _, w := range list.ws {
			if w < 0 {
				return fmt.Errorf("%s must not be negative: %v", list.name, list.ws)
			}
		}
	}
	if c.TimeShare < 0 || c.UserShare < 0 {
		return fmt.Errorf("time_share and user_share must not be negative")
	}
	if _, err := calculator.ParsePolicy(c.EmptyBucket); err != nil {
		return err
	}
	return nil
}

// Aggregator builds the calculator from a validated configuration.
func (c *Config) Aggregator() (calculator.Aggregator, error) {
	if err := c.Validate(); err != nil {
		return calculator.Aggregator{}, err
	}
	policy, _ := calculator.ParsePolicy(c.EmptyBucket)
	a := calculator.Aggregator{
		TimeShare: c.TimeShare,
		UserShare: c.UserShare,
		Policy:    policy,
	}
	copy(a.TimeWeights[:], c.TimeWeights)
	copy(a.UserWeights[:], c.UserWeights)
	return a, nil
}
