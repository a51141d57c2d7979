package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fwojciec/pgbulk"
	"gopkg.in/yaml.v3"
)

// Config is the benchmark command configuration.
type Config struct {
	DatabaseURL string                 `yaml:"database_url"` // override via DATABASE_URL
	Schema      string                 `yaml:"schema"`       // default "public"
	Table       string                 `yaml:"table"`        // default "bench_orders"
	Rows        int                    `yaml:"rows"`         // default 100000
	Runs        int                    `yaml:"runs"`         // default 3
	Processor   pgbulk.ProcessorConfig `yaml:"processor"`
	Verbose     bool                   `yaml:"verbose"`
}

// LoadConfig reads the YAML config at path, applying defaults. An empty path
// yields the defaults alone.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Schema: "public",
		Table:  "bench_orders",
		Rows:   100000,
		Runs:   3,
		Processor: pgbulk.ProcessorConfig{
			BatchSize:     pgbulk.DefaultBatchSize,
			FlushInterval: time.Second,
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	// config file takes precedence; env vars are the fallback
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("TEST_DATABASE_URL")
	}
	return cfg, nil
}

// Validate reports settings the benchmark cannot run with.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("config: database URL required, use -db or set DATABASE_URL")
	}
	if c.Rows < 1 {
		return fmt.Errorf("config: rows must be positive, got %d", c.Rows)
	}
	if c.Runs < 1 {
		return fmt.Errorf("config: runs must be positive, got %d", c.Runs)
	}
	return c.Processor.Validate()
}

func parseConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("pgbulk-bench", flag.ContinueOnError)
	var (
		configPath  = fs.String("config", "", "YAML config file")
		databaseURL = fs.String("db", "", "Database URL (or set DATABASE_URL env var)")
		rows        = fs.Int("rows", 0, "Number of generated orders to load")
		runs        = fs.Int("runs", 0, "Number of benchmark runs for statistical analysis")
		batch       = fs.Int("batch", 0, "Processor batch size")
		verbose     = fs.Bool("v", false, "Verbose output")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return nil, err
	}
	if *databaseURL != "" {
		cfg.DatabaseURL = *databaseURL
	}
	if *rows > 0 {
		cfg.Rows = *rows
	}
	if *runs > 0 {
		cfg.Runs = *runs
	}
	if *batch > 0 {
		cfg.Processor.BatchSize = *batch
	}
	if *verbose {
		cfg.Verbose = true
	}
	return cfg, cfg.Validate()
}
