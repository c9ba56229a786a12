package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 30, cfg.QueueCapacity)
	assert.Equal(t, 10, cfg.ReleaseEvery)
	assert.Equal(t, 5, cfg.AllRedTicks)
	assert.Equal(t, 16.0, cfg.Layout.StopLine)
	assert.Equal(t, 9.0, cfg.Layout.Gap)
	assert.Equal(t, 0.1, cfg.Kinematics.Epsilon)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeFile(t, `
network: nets/grid.txt
interval: 5ms
ticks: 2000
seed: 42
queue_capacity: 12
all_red_ticks: 3
layout:
  stop_line: 20
  gap: 10
kinematics:
  speed: 2
  epsilon: 0.2
metrics_addr: ":9100"
log_level: debug
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "nets/grid.txt", cfg.Network)
	assert.Equal(t, 5*time.Millisecond, cfg.Interval)
	assert.Equal(t, 2000, cfg.Ticks)
	assert.Equal(t, 12, cfg.QueueCapacity)
	assert.Equal(t, 10, cfg.ReleaseEvery, "unset keys keep defaults")
	assert.Equal(t, 20.0, cfg.Layout.StopLine)
	assert.Equal(t, 2.0, cfg.Kinematics.Speed)

	p := cfg.Params()
	assert.Equal(t, uint64(42), p.Seed)
	assert.Equal(t, 3, p.AllRedTicks)
	assert.Equal(t, 12, p.QueueCapacity)
	assert.Equal(t, 5*time.Millisecond, p.Interval)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "queue_size: 4\n"},
		{"bad syntax", "ticks: [\n"},
		{"zero capacity", "queue_capacity: 0\n"},
		{"negative all red", "all_red_ticks: -1\n"},
		{"zero speed", "kinematics:\n  speed: 0\n"},
		{"bad level", "log_level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
