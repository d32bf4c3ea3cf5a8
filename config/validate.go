package config

import (
	"fmt"

	"github.com/xpeer-network/chasm/pkg/types"
)

// MaxDifficulty mirrors the consensus bound on leading zero bits.
const MaxDifficulty = 256

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir must be set")
	}
	if cfg.Difficulty > MaxDifficulty {
		return fmt.Errorf("difficulty must be in range [0, %d]", MaxDifficulty)
	}
	if cfg.Pending.Size <= 0 {
		return fmt.Errorf("pending.size must be positive")
	}
	if cfg.Mining.Threads < 0 {
		return fmt.Errorf("mining.threads must not be negative")
	}
	if cfg.Mining.Enabled {
		if cfg.Mining.Coinbase == "" {
			return fmt.Errorf("mining requires mining.coinbase")
		}
		if _, err := types.ParseAddress(cfg.Mining.Coinbase); err != nil {
			return fmt.Errorf("mining.coinbase: %w", err)
		}
		if cfg.Mining.Interval <= 0 {
			return fmt.Errorf("mining.interval must be positive")
		}
	}
	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}
