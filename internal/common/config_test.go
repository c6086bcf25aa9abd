package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 8085, config.Server.Port)
	assert.Equal(t, 10, config.Scanner.Concurrency)
	assert.Equal(t, "NO_UPDATES_FOUND", config.Scanner.NoUpdateSentinel)
	assert.Equal(t, 3, config.Enrichment.MaxAttempts)
	assert.True(t, config.Queue.Reclaim.Enabled)
	assert.False(t, config.Scheduler.Enabled)

	require.NoError(t, config.Validate())
}

func TestDefaultCycleTimeoutShorterThanLockTTL(t *testing.T) {
	config := NewDefaultConfig()

	lockTTL, err := config.Scanner.LockTTLDuration()
	require.NoError(t, err)
	cycleTimeout, err := config.Scanner.CycleTimeoutDuration()
	require.NoError(t, err)

	assert.Less(t, cycleTimeout, lockTTL)
}

func TestLoadFromFilesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trade-monitor.toml")
	content := `
environment = "production"

[server]
port = 9090

[scanner]
concurrency = 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, 3, config.Scanner.Concurrency)
	// Untouched values keep defaults
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, "10m", config.Scanner.LockTTL)
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/config.toml")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MONITOR_SERVER_PORT", "7777")
	t.Setenv("MONITOR_SCANNER_CONCURRENCY", "2")
	t.Setenv("MONITOR_ANTHROPIC_API_KEY", "test-key")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 7777, config.Server.Port)
	assert.Equal(t, 2, config.Scanner.Concurrency)
	assert.Equal(t, "test-key", config.Enrichment.APIKey)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, 9999, "127.0.0.1")

	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "cycle timeout not shorter than lock TTL",
			mutate: func(c *Config) { c.Scanner.CycleTimeout = "10m" },
		},
		{
			name:   "invalid lock TTL",
			mutate: func(c *Config) { c.Scanner.LockTTL = "ten minutes" },
		},
		{
			name:   "negative enrichment timeout",
			mutate: func(c *Config) { c.Enrichment.Timeout = "-5s" },
		},
		{
			name:   "invalid reclaim interval",
			mutate: func(c *Config) { c.Queue.Reclaim.Interval = "whenever" },
		},
		{
			name:   "zero concurrency",
			mutate: func(c *Config) { c.Scanner.Concurrency = 0 },
		},
		{
			name:   "port out of range",
			mutate: func(c *Config) { c.Server.Port = 70000 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}
