package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/funnelqa/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "qa-screenshots", cfg.OutputDir)
	assert.Equal(t, "qa-report.json", cfg.ReportFile)
	assert.Equal(t, []string{"desktop", "mobile"}, cfg.Devices)
	assert.True(t, cfg.Headless)
	assert.True(t, cfg.FullPage)
	assert.True(t, cfg.Highlight)
	assert.Equal(t, 45, cfg.NavTimeoutSec)
	assert.Equal(t, 5, cfg.LookupTimeoutSec)
	assert.Equal(t, 15, cfg.LoadWaitSec)
	assert.Equal(t, 1000, cfg.SettleMs)
	assert.Equal(t, "America/New_York", cfg.MobileTimezone)
	assert.Empty(t, cfg.Summary.Provider)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funnelqa.toml")
	data := `
output_dir = "shots"
devices = ["mobile"]
headless = false
load_wait_sec = 3

[summary]
provider = "claude"
model = "claude-sonnet-4-20250514"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "shots", cfg.OutputDir)
	assert.Equal(t, []string{"mobile"}, cfg.Devices)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 3, cfg.LoadWaitSec)
	assert.Equal(t, "claude", cfg.Summary.Provider)

	// Untouched keys keep their defaults.
	assert.Equal(t, "qa-report.json", cfg.ReportFile)
	assert.Equal(t, 45, cfg.NavTimeoutSec)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("devices = not-a-list"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}
