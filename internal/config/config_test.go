package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rickgao/tradewire/internal/model"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-streamer
exchange:
  name: gdax
  rest_url: https://api-public.sandbox.exchange.coinbase.com
streams:
  symbols: [BTC-USD, ETH-USD]
  flags: [order_book, trades]
database:
  host: localhost
  port: 5432
  name: test_db
  user: testuser
  password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-streamer" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-streamer")
	}
	if cfg.Exchange.RestURL != "https://api-public.sandbox.exchange.coinbase.com" {
		t.Errorf("Exchange.RestURL = %q", cfg.Exchange.RestURL)
	}
	if len(cfg.Streams.Symbols) != 2 || cfg.Streams.Symbols[1] != "ETH-USD" {
		t.Errorf("Streams.Symbols = %v", cfg.Streams.Symbols)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "localhost")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_GDAX_PASSPHRASE", "secret123")

	yaml := `
instance:
  id: test-streamer
exchange:
  passphrase: ${TEST_GDAX_PASSPHRASE}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Exchange.Passphrase != "secret123" {
		t.Errorf("Exchange.Passphrase = %q, want %q", cfg.Exchange.Passphrase, "secret123")
	}
}

func TestLoadWithDotEnv(t *testing.T) {
	const fileOnly = "TRADEWIRE_TEST_DOTENV_KEY"
	const shadowed = "TRADEWIRE_TEST_DOTENV_SHADOWED"
	t.Cleanup(func() { os.Unsetenv(fileOnly) })
	t.Setenv(shadowed, "from-env")

	yaml := `
instance:
  id: test-streamer
exchange:
  api_key: ${TRADEWIRE_TEST_DOTENV_KEY}
  passphrase: ${TRADEWIRE_TEST_DOTENV_SHADOWED}
`
	path := writeTempFile(t, yaml)
	dotenv := fileOnly + "=from-file\n" + shadowed + "=from-file\n"
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte(dotenv), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Exchange.APIKey != "from-file" {
		t.Errorf("Exchange.APIKey = %q, want %q", cfg.Exchange.APIKey, "from-file")
	}
	if cfg.Exchange.Passphrase != "from-env" {
		t.Errorf("Exchange.Passphrase = %q, want %q", cfg.Exchange.Passphrase, "from-env")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load succeeded on a missing file")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-streamer
streams:
  symbols: [BTC-USD]
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Exchange.Name != DefaultExchange {
		t.Errorf("Exchange.Name = %q, want default %q", cfg.Exchange.Name, DefaultExchange)
	}
	if cfg.Exchange.Timeout != DefaultAPITimeout {
		t.Errorf("Exchange.Timeout = %v, want default %v", cfg.Exchange.Timeout, DefaultAPITimeout)
	}
	if cfg.Streams.PingInterval != DefaultPingInterval {
		t.Errorf("Streams.PingInterval = %v, want default %v", cfg.Streams.PingInterval, DefaultPingInterval)
	}
	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want default %d", cfg.Database.Port, DefaultDBPort)
	}
	if cfg.Monitor.Port != DefaultMonitorPort {
		t.Errorf("Monitor.Port = %d, want default %d", cfg.Monitor.Port, DefaultMonitorPort)
	}

	flags, err := cfg.Streams.NotificationFlags()
	if err != nil {
		t.Fatalf("NotificationFlags: %v", err)
	}
	if flags != model.FlagsAll {
		t.Errorf("default flags = %v, want %v", flags, model.FlagsAll)
	}
}

func TestLoadAndValidate(t *testing.T) {
	yaml := `
instance:
  id: test-streamer
streams:
  flags: [trades]
`
	path := writeTempFile(t, yaml)

	_, err := LoadAndValidate(path)
	if err == nil || !strings.Contains(err.Error(), "streams.symbols must not be empty") {
		t.Fatalf("LoadAndValidate error = %v", err)
	}
}

func validConfig() StreamerConfig {
	cfg := StreamerConfig{
		Instance: InstanceConfig{ID: "test"},
		Streams:  StreamsConfig{Symbols: []string{"BTC-USD"}},
	}
	cfg.applyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*StreamerConfig)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *StreamerConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "unsupported exchange",
			mutate:  func(c *StreamerConfig) { c.Exchange.Name = "hitbtc" },
			wantErr: `exchange.name "hitbtc" is not supported`,
		},
		{
			name:    "partial credentials",
			mutate:  func(c *StreamerConfig) { c.Exchange.APIKey = "key" },
			wantErr: "exchange.api_key, exchange.secret and exchange.passphrase must be set together",
		},
		{
			name:    "unknown flag",
			mutate:  func(c *StreamerConfig) { c.Streams.Flags = []string{"candles"} },
			wantErr: "streams.flags [candles] contains an unknown flag",
		},
		{
			name: "warn above max pending",
			mutate: func(c *StreamerConfig) {
				c.Streams.MaxPending = 10
				c.Streams.WarnPending = 20
			},
			wantErr: "streams.warn_pending (20) cannot exceed max_pending (10)",
		},
		{
			name:    "journal without database",
			mutate:  func(c *StreamerConfig) { c.Journal.Enabled = true },
			wantErr: "database.host is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *StreamerConfig) {
				c.Journal.Enabled = true
				c.Database = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 5, MinConns: 10}
			},
			wantErr: "database.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "poller without credentials",
			mutate:  func(c *StreamerConfig) { c.Poller.Enabled = true },
			wantErr: "poller.enabled requires exchange credentials",
		},
		{
			name:    "bad log level",
			mutate:  func(c *StreamerConfig) { c.Logging.Level = "trace" },
			wantErr: `logging.level "trace" is not one of debug, info, warn, error`,
		},
		{
			name: "valid config",
			mutate: func(c *StreamerConfig) {
				c.Exchange.APIKey = "key"
				c.Exchange.Secret = "c2VjcmV0"
				c.Exchange.Passphrase = "pass"
				c.Poller.Enabled = true
				c.Journal.Enabled = true
				c.Journal.FlushInterval = time.Second
				c.Database = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 10, MinConns: 2}
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
