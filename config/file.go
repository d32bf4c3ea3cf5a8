package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads node configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key = value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a node config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "datadir":
		cfg.DataDir = value
	case "difficulty":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Difficulty = n

	// Pending queue
	case "pending.size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Pending.Size = n

	// Mining
	case "mining.enabled", "mine":
		cfg.Mining.Enabled = parseBool(value)
	case "mining.coinbase", "coinbase":
		cfg.Mining.Coinbase = value
	case "mining.threads":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Mining.Threads = n
	case "mining.interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Mining.Interval = d

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	// Metrics
	case "metrics.addr":
		cfg.Metrics.Addr = value

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default node configuration file.
func WriteDefaultConfig(path string) error {
	content := `# Chasm Node Configuration

# Data directory (default: ~/.chasm)
# datadir = ~/.chasm

# Proof-of-work difficulty of the first block, in leading zero bits.
# Must not change once the ledger holds blocks.
difficulty = ` + strconv.Itoa(DefaultDifficulty) + `

# ============================================================================
# Pending Transactions
# ============================================================================

# Capacity of the pending queue. When full, a transaction with a higher
# priority evicts the lowest one.
pending.size = ` + strconv.Itoa(DefaultPendingSize) + `

# ============================================================================
# Mining / Block Production
# ============================================================================

mining.enabled = false

# Address receiving block rewards (128 hex characters)
# mining.coinbase = <your-address>

# Mining threads
# mining.threads = 1

# Time between block production attempts
mining.interval = ` + DefaultMiningInterval.String() + `

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false

# ============================================================================
# Metrics
# ============================================================================

# Prometheus listen address; empty disables the endpoint
metrics.addr = ` + DefaultMetricsAddr + `
`
	return os.WriteFile(path, []byte(content), 0644)
}
