package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	DataDir    string
	Config     string
	Difficulty uint64

	// Pending queue
	PendingSize int

	// Mining
	Mine           bool
	Coinbase       string
	Threads        int
	MiningInterval time.Duration

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Metrics
	MetricsAddr string

	// Remaining args
	Args []string

	// Explicitly-set flags whose zero value is meaningful.
	SetMine        bool
	SetLogJSON     bool
	SetDifficulty  bool
	SetMetricsAddr bool
}

// ParseFlags parses command-line flags, excluding the program name.
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("chasmd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")
	fs.Uint64Var(&f.Difficulty, "difficulty", 0, "Proof-of-work difficulty of the first block")

	// Pending queue
	fs.IntVar(&f.PendingSize, "pending-size", 0, "Pending queue capacity")

	// Mining
	fs.BoolVar(&f.Mine, "mine", false, "Enable block production")
	fs.StringVar(&f.Coinbase, "coinbase", "", "Address to receive block rewards")
	fs.IntVar(&f.Threads, "threads", 0, "Mining threads")
	fs.DurationVar(&f.MiningInterval, "mining-interval", 0, "Time between block production attempts")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	// Metrics
	fs.StringVar(&f.MetricsAddr, "metrics-addr", "", "Prometheus listen address (empty disables)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	f.SetMine = isFlagSet(fs, "mine")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.SetDifficulty = isFlagSet(fs, "difficulty")
	f.SetMetricsAddr = isFlagSet(fs, "metrics-addr")

	f.Args = fs.Args()
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", arg)
		}
	}

	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.SetDifficulty {
		cfg.Difficulty = f.Difficulty
	}

	// Pending queue
	if f.PendingSize != 0 {
		cfg.Pending.Size = f.PendingSize
	}

	// Mining
	if f.SetMine {
		cfg.Mining.Enabled = f.Mine
	}
	if f.Coinbase != "" {
		cfg.Mining.Coinbase = f.Coinbase
	}
	if f.Threads != 0 {
		cfg.Mining.Threads = f.Threads
	}
	if f.MiningInterval != 0 {
		cfg.Mining.Interval = f.MiningInterval
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}

	// Metrics
	if f.SetMetricsAddr {
		cfg.Metrics.Addr = f.MetricsAddr
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// PrintUsage writes the command-line help to w.
func PrintUsage(w io.Writer) {
	usage := `Chasm - UTXO ledger with cross-chain atomic exchanges

Usage:
  chasmd [options]
  chasmd --help

Commands:
  --help, -h        Show this help message
  --version, -v     Show version information

Core Options:
  --datadir         Data directory (default: ~/.chasm)
  --config, -c      Config file path (default: <datadir>/chasm.conf)
  --difficulty      Proof-of-work difficulty of the first block (default: 16)

Pending Queue Options:
  --pending-size    Pending queue capacity (default: 1024)

Mining Options:
  --mine            Enable block production
  --coinbase        Address to receive block rewards (128 hex characters)
  --threads         Mining threads (default: 1)
  --mining-interval Time between block production attempts (default: 5s)

Logging Options:
  --log-level       Log level: debug, info, warn, error (default: info)
  --log-file        Log file path (default: <datadir>/logs/chasm.log)
  --log-json        Output logs as JSON

Metrics Options:
  --metrics-addr    Prometheus listen address (default: 127.0.0.1:9464)

Examples:
  # Start a node
  chasmd

  # Mine to an address
  chasmd --mine --coinbase=<address>

  # Start with custom data directory
  chasmd --datadir=/path/to/data
`
	fmt.Fprint(w, usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, nil, err
	}
	if flags.Help || flags.Version {
		return nil, flags, nil
	}

	cfg := Default()

	// Override datadir if specified
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	// Flags have the highest precedence.
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. It is safe to call on every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.LedgerDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
