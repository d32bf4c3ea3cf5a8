// Package log provides the zerolog loggers used across chasmd.
package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// consoleTime is the timestamp layout of human-readable output.
const consoleTime = "15:04:05"

var (
	// Logger is the root logger. Component loggers derive from it.
	Logger zerolog.Logger

	Ledger     zerolog.Logger
	Validation zerolog.Logger
	Consensus  zerolog.Logger
	Miner      zerolog.Logger
	Mempool    zerolog.Logger
	Storage    zerolog.Logger
	Node       zerolog.Logger
)

func init() {
	Logger = NewConsoleLogger(os.Stdout, "info")
	deriveComponents()
}

// Init replaces the root logger. Output goes to stdout, as JSON when
// jsonOutput is set and colored text otherwise. A non-empty file also
// receives every line as JSON.
func Init(level string, jsonOutput bool, file string) error {
	var out io.Writer = os.Stdout
	if !jsonOutput {
		out = console(os.Stdout)
	}
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(out, f)
	}
	Logger = build(out, level)
	deriveComponents()
	return nil
}

// NewConsoleLogger creates a colored console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	return build(console(w), level)
}

// NewJSONLogger creates a structured JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	return build(w, level)
}

func console(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTime}
}

func build(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

// parseLevel maps a config level name to a zerolog level. Unknown names
// fall back to info.
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func deriveComponents() {
	Ledger = WithComponent("ledger")
	Validation = WithComponent("validation")
	Consensus = WithComponent("consensus")
	Miner = WithComponent("miner")
	Mempool = WithComponent("mempool")
	Storage = WithComponent("storage")
	Node = WithComponent("node")
}

// WithComponent returns a logger with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithBlock returns a logger with block hash and height fields.
func WithBlock(l zerolog.Logger, hash string, height uint64) zerolog.Logger {
	return l.With().Str("block", hash).Uint64("height", height).Logger()
}

// Timed returns a func that logs, at debug level on l, the time elapsed
// since Timed was called.
func Timed(l zerolog.Logger, operation string) func() {
	start := time.Now()
	return func() {
		l.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("timed")
	}
}
