package pgbulk

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBatchSize is the number of buffered records that triggers a flush
// when ProcessorConfig.BatchSize is zero.
const DefaultBatchSize = 1000

// ProcessorConfig controls when a Processor flushes.
type ProcessorConfig struct {
	BatchSize     int           `yaml:"batch_size"`     // default 1000
	FlushInterval time.Duration `yaml:"flush_interval"` // 0 = no timer flush
}

func (c ProcessorConfig) withDefaults() ProcessorConfig {
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}

// Validate reports settings a Processor cannot run with.
func (c ProcessorConfig) Validate() error {
	if c.BatchSize < 0 {
		return fmt.Errorf("config: batch_size must be positive, got %d", c.BatchSize)
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("config: flush_interval must not be negative, got %s", c.FlushInterval)
	}
	return nil
}

// ParseProcessorConfig decodes a YAML document, applying defaults for
// omitted fields. Durations use Go syntax ("500ms", "2s").
func ParseProcessorConfig(data []byte) (ProcessorConfig, error) {
	var cfg ProcessorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ProcessorConfig{}, fmt.Errorf("config: parse: %w", err)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return ProcessorConfig{}, err
	}
	return cfg, nil
}
