// Package config handles node configuration.
//
// Settings come from three layers, later ones winning: built-in defaults,
// the key = value file in the data directory, and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config holds node runtime configuration.
type Config struct {
	// Core
	DataDir string `conf:"datadir"`

	// Difficulty is the proof-of-work difficulty of the first block, in
	// leading zero bits. Every node sharing a data directory must agree on it.
	Difficulty uint64 `conf:"difficulty"`

	// Pending transaction queue
	Pending PendingConfig

	// Block production
	Mining MiningConfig

	// Logging
	Log LogConfig

	// Prometheus endpoint
	Metrics MetricsConfig
}

// PendingConfig holds pending queue settings.
type PendingConfig struct {
	Size int `conf:"pending.size"`
}

// MiningConfig holds block production settings.
type MiningConfig struct {
	Enabled  bool          `conf:"mining.enabled"`
	Coinbase string        `conf:"mining.coinbase"` // 128 hex chars
	Threads  int           `conf:"mining.threads"`
	Interval time.Duration `conf:"mining.interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// MetricsConfig holds the Prometheus listener settings. An empty Addr
// disables the endpoint.
type MetricsConfig struct {
	Addr string `conf:"metrics.addr"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.chasm
//	macOS:   ~/Library/Application Support/Chasm
//	Windows: %APPDATA%\Chasm
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chasm"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Chasm")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Chasm")
		}
		return filepath.Join(home, "AppData", "Roaming", "Chasm")
	default:
		return filepath.Join(home, ".chasm")
	}
}

// LedgerDir returns the ledger database directory.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.DataDir, "ledger")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "chasm.conf")
}
