// Package config loads and validates the demo's runtime settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls cmd/cspdemo: channel capacities, the producer's rate
// limit, worker counts, and logging.
type Config struct {
	Demo    DemoConfig    `yaml:"demo"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type DemoConfig struct {
	BufferSize     int     `yaml:"buffer_size"`
	Workers        int     `yaml:"workers"`
	ProducerRate   float64 `yaml:"producer_rate_per_sec"`
	ProducerBurst  int     `yaml:"producer_burst"`
	ItemCount      int     `yaml:"item_count"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads YAML config from path, overlays environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		cfg.Metrics.Addr = addr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration used when no file is given
// or a field is left unset in the loaded file.
func Default() *Config {
	return &Config{
		Demo: DemoConfig{
			BufferSize:    4,
			Workers:       3,
			ProducerRate:  20,
			ProducerBurst: 5,
			ItemCount:     50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":2112",
		},
	}
}

func (c *Config) Validate() error {
	if c.Demo.BufferSize < 0 {
		return fmt.Errorf("demo.buffer_size must be >= 0")
	}
	if c.Demo.Workers <= 0 {
		return fmt.Errorf("demo.workers must be > 0")
	}
	if c.Demo.ProducerRate <= 0 {
		return fmt.Errorf("demo.producer_rate_per_sec must be > 0")
	}
	if c.Demo.ItemCount <= 0 {
		return fmt.Errorf("demo.item_count must be > 0")
	}
	return nil
}
