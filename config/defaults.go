package config

import "time"

// Default values.
const (
	DefaultDifficulty     = 16
	DefaultPendingSize    = 1024
	DefaultMiningInterval = 5 * time.Second
	DefaultMetricsAddr    = "127.0.0.1:9464"
)

// Default returns the default node configuration.
func Default() *Config {
	return &Config{
		DataDir:    DefaultDataDir(),
		Difficulty: DefaultDifficulty,
		Pending: PendingConfig{
			Size: DefaultPendingSize,
		},
		Mining: MiningConfig{
			Enabled:  false,
			Threads:  1,
			Interval: DefaultMiningInterval,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
		Metrics: MetricsConfig{
			Addr: DefaultMetricsAddr,
		},
	}
}
