package pgbulk_test

import (
	"testing"
	"time"

	"github.com/fwojciec/pgbulk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProcessorConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		want    pgbulk.ProcessorConfig
		wantErr string
	}{
		{
			name: "all fields",
			yaml: "batch_size: 500\nflush_interval: 2s\n",
			want: pgbulk.ProcessorConfig{BatchSize: 500, FlushInterval: 2 * time.Second},
		},
		{
			name: "defaults",
			yaml: "",
			want: pgbulk.ProcessorConfig{BatchSize: pgbulk.DefaultBatchSize},
		},
		{
			name: "interval only",
			yaml: "flush_interval: 250ms",
			want: pgbulk.ProcessorConfig{BatchSize: 1000, FlushInterval: 250 * time.Millisecond},
		},
		{
			name:    "negative batch size",
			yaml:    "batch_size: -5",
			wantErr: "config: batch_size must be positive, got -5",
		},
		{
			name:    "negative interval",
			yaml:    "flush_interval: -1s",
			wantErr: "config: flush_interval must not be negative",
		},
		{
			name:    "malformed",
			yaml:    "batch_size: [1, 2",
			wantErr: "config: parse",
		},
		{
			name:    "bad duration",
			yaml:    "flush_interval: soon",
			wantErr: "config: parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := pgbulk.ParseProcessorConfig([]byte(tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestProcessorConfig_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, pgbulk.ProcessorConfig{}.Validate())
	assert.NoError(t, pgbulk.ProcessorConfig{BatchSize: 1, FlushInterval: time.Second}.Validate())
	assert.Error(t, pgbulk.ProcessorConfig{BatchSize: -1}.Validate())
}
