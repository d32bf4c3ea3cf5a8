package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

var testCoinbase = strings.Repeat("ab", 64)

func TestDefault_Valid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chasm.conf")
	content := `# comment
datadir = /data/chasm

pending.size = 12
log.level = "debug"
mining.coinbase = 'abc'
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := map[string]string{
		"datadir":         "/data/chasm",
		"pending.size":    "12",
		"log.level":       "debug",
		"mining.coinbase": "abc",
	}
	if !reflect.DeepEqual(values, want) {
		t.Errorf("values = %v, want %v", values, want)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "absent.conf"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("got %d values, want 0", len(values))
	}
}

func TestLoadFile_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chasm.conf")
	if err := os.WriteFile(path, []byte("log.level = info\nnonsense\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("want line 2 error, got %v", err)
	}
}

func TestApplyFileConfig(t *testing.T) {
	cfg := Default()
	err := ApplyFileConfig(cfg, map[string]string{
		"difficulty":      "4",
		"pending.size":    "64",
		"mining.enabled":  "yes",
		"mining.coinbase": testCoinbase,
		"mining.threads":  "4",
		"mining.interval": "250ms",
		"log.json":        "on",
		"metrics.addr":    "",
		"unknown.key":     "ignored",
	})
	if err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.Difficulty != 4 || cfg.Pending.Size != 64 {
		t.Errorf("difficulty/pending = %d/%d", cfg.Difficulty, cfg.Pending.Size)
	}
	if !cfg.Mining.Enabled || cfg.Mining.Coinbase != testCoinbase || cfg.Mining.Threads != 4 {
		t.Errorf("mining = %+v", cfg.Mining)
	}
	if cfg.Mining.Interval != 250*time.Millisecond {
		t.Errorf("interval = %s", cfg.Mining.Interval)
	}
	if !cfg.Log.JSON || cfg.Metrics.Addr != "" {
		t.Errorf("log.json = %v, metrics.addr = %q", cfg.Log.JSON, cfg.Metrics.Addr)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestApplyFileConfig_BadValue(t *testing.T) {
	for _, key := range []string{"difficulty", "pending.size", "mining.threads", "mining.interval"} {
		err := ApplyFileConfig(Default(), map[string]string{key: "x"})
		if err == nil || !strings.Contains(err.Error(), key) {
			t.Errorf("%s: want error naming the key, got %v", key, err)
		}
	}
}

func TestWriteDefaultConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chasm.conf")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}
	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg := Default()
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("default file changes config:\n got %+v\nwant %+v", cfg, Default())
	}
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags([]string{
		"--datadir", "/tmp/x",
		"--difficulty", "0",
		"--pending-size", "9",
		"--mine",
		"--coinbase", testCoinbase,
		"--mining-interval", "2s",
		"--log-json=false",
		"--metrics-addr", "",
	})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if !f.SetDifficulty || !f.SetMine || !f.SetLogJSON || !f.SetMetricsAddr {
		t.Errorf("explicit flags not recorded: %+v", f)
	}

	cfg := Default()
	cfg.Log.JSON = true
	ApplyFlags(cfg, f)
	if cfg.DataDir != "/tmp/x" || cfg.Difficulty != 0 || cfg.Pending.Size != 9 {
		t.Errorf("core = %q/%d/%d", cfg.DataDir, cfg.Difficulty, cfg.Pending.Size)
	}
	if !cfg.Mining.Enabled || cfg.Mining.Interval != 2*time.Second {
		t.Errorf("mining = %+v", cfg.Mining)
	}
	if cfg.Log.JSON {
		t.Error("--log-json=false should override the file")
	}
	if cfg.Metrics.Addr != "" {
		t.Errorf("metrics.addr = %q, want empty", cfg.Metrics.Addr)
	}
}

func TestParseFlags_Unset(t *testing.T) {
	f, err := ParseFlags(nil)
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	cfg := Default()
	ApplyFlags(cfg, f)
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("empty flags changed config: %+v", cfg)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	if f, err := ParseFlags([]string{"-h"}); err != nil || !f.Help {
		t.Errorf("-h: got %+v, %v", f, err)
	}
	if _, err := ParseFlags([]string{"--nope"}); err == nil {
		t.Error("unknown flag should fail")
	}
	if _, err := ParseFlags([]string{"--mine", "extra", "--log-json"}); err == nil {
		t.Error("flag after positional argument should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"nil datadir", func(c *Config) { c.DataDir = "" }, "datadir"},
		{"difficulty", func(c *Config) { c.Difficulty = 257 }, "difficulty"},
		{"pending size", func(c *Config) { c.Pending.Size = 0 }, "pending.size"},
		{"threads", func(c *Config) { c.Mining.Threads = -1 }, "mining.threads"},
		{"mining without coinbase", func(c *Config) { c.Mining.Enabled = true }, "mining.coinbase"},
		{"short coinbase", func(c *Config) {
			c.Mining.Enabled = true
			c.Mining.Coinbase = "abcd"
		}, "mining.coinbase"},
		{"interval", func(c *Config) {
			c.Mining.Enabled = true
			c.Mining.Coinbase = testCoinbase
			c.Mining.Interval = 0
		}, "mining.interval"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error mentioning %q", err, tt.want)
			}
		})
	}
	if err := Validate(nil); err == nil {
		t.Error("nil config should fail")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "chasm.conf"), []byte("pending.size = 5\nlog.level = warn\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Load([]string{"--datadir", dir, "--log-level", "error"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pending.Size != 5 {
		t.Errorf("pending.size = %d, want 5 from file", cfg.Pending.Size)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("log.level = %q, want flag value", cfg.Log.Level)
	}
	for _, d := range []string{cfg.LedgerDir(), cfg.LogsDir()} {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", d, err)
		}
	}
}

func TestLoad_WritesDefaultFile(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := Load([]string{"--datadir", dir}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "chasm.conf")); err != nil {
		t.Errorf("default config not written: %v", err)
	}
}
