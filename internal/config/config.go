// Package config loads the runner configuration: built-in defaults,
// optionally overridden by a TOML file, then by command-line flags.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full runner configuration.
type Config struct {
	// OutputDir receives all screenshots for the run.
	OutputDir string `toml:"output_dir"`
	// ReportFile is the JSON issue list path.
	ReportFile string `toml:"report_file"`
	// ArchiveFile, when set, receives a ZIP of the run's screenshots.
	ArchiveFile string `toml:"archive_file"`
	// PDFFile, when set, receives the rendered report document.
	PDFFile string `toml:"pdf_file"`

	// Devices lists the profiles each URL is tested on.
	Devices []string `toml:"devices"`

	// Headless controls browser visibility; headful helps when debugging
	// selector candidates.
	Headless bool `toml:"headless"`
	// FullPage captures full-page screenshots instead of the viewport.
	FullPage bool `toml:"full_page"`
	// Highlight outlines resolved elements before audit screenshots.
	Highlight bool `toml:"highlight"`

	// NavTimeoutSec bounds each navigation.
	NavTimeoutSec int `toml:"nav_timeout_sec"`
	// LookupTimeoutSec bounds each locator candidate lookup.
	LookupTimeoutSec int `toml:"lookup_timeout_sec"`
	// LoadWaitSec holds after navigation before the funnel starts.
	LoadWaitSec int `toml:"load_wait_sec"`
	// SettleMs is the short settle-wait after scroll/hover; clicks settle
	// for twice this.
	SettleMs int `toml:"settle_ms"`
	// PauseSec is the courtesy pause between sessions.
	PauseSec int `toml:"pause_sec"`

	// MobileTimezone is the timezone emulated on the mobile profile.
	MobileTimezone string `toml:"mobile_timezone"`

	Summary SummaryConfig `toml:"summary"`
}

// SummaryConfig enables the optional AI-written run digest.
type SummaryConfig struct {
	// Provider is empty (disabled), "claude", or "openai".
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
}

// Default returns the configuration the funnel was tuned with.
func Default() Config {
	return Config{
		OutputDir:        "qa-screenshots",
		ReportFile:       "qa-report.json",
		Devices:          []string{"desktop", "mobile"},
		Headless:         true,
		FullPage:         true,
		Highlight:        true,
		NavTimeoutSec:    45,
		LookupTimeoutSec: 5,
		LoadWaitSec:      15,
		SettleMs:         1000,
		PauseSec:         2,
		MobileTimezone:   "America/New_York",
	}
}

// Load reads a TOML file over the defaults. A missing path returns defaults
// unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("config file not found: %s", path)
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
