package config

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.DatabaseFilePath)
	assert.Equal(t, 1, cfg.WorkerProcesses)
	assert.True(t, cfg.SevenZipEnabled)
	assert.NotEmpty(t, cfg.Hostname)
}

func TestArtworkWorkers(t *testing.T) {
	cores := runtime.NumCPU()

	tests := []struct {
		name       string
		configured int
		expected   int
	}{
		{"unset falls back to core count", 0, cores},
		{"negative falls back to core count", -1, cores},
		{"explicit value within cap", 1, 1},
		{"override capped at core count", cores + 4, cores},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{WorkerProcesses: tt.configured}
			assert.Equal(t, tt.expected, cfg.ArtworkWorkers())
		})
	}
}
