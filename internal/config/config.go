package config

import "time"

// StreamerConfig is the root configuration for a streamer instance.
type StreamerConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Exchange ExchangeConfig `yaml:"exchange"`
	Streams  StreamsConfig  `yaml:"streams"`
	Market   MarketConfig   `yaml:"market"`
	Registry RegistryConfig `yaml:"registry"`
	Database DBConfig       `yaml:"database"`
	Journal  JournalConfig  `yaml:"journal"`
	Poller   PollerConfig   `yaml:"poller"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InstanceConfig identifies this streamer.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ExchangeConfig holds exchange endpoints and credentials.
type ExchangeConfig struct {
	Name       string        `yaml:"name"`
	Sandbox    bool          `yaml:"sandbox"`
	RestURL    string        `yaml:"rest_url"`
	StreamURL  string        `yaml:"stream_url"`
	APIKey     string        `yaml:"api_key"`
	Secret     string        `yaml:"secret"` // base64, as issued by the exchange
	Passphrase string        `yaml:"passphrase"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	PoolSize   int64         `yaml:"pool_size"`
}

// HasCredentials reports whether private endpoints can be used.
func (e ExchangeConfig) HasCredentials() bool {
	return e.APIKey != "" || e.Secret != "" || e.Passphrase != ""
}

// StreamsConfig lists the symbols to stream and per-connection settings.
type StreamsConfig struct {
	Symbols          []string      `yaml:"symbols"`
	Flags            []string      `yaml:"flags"` // order_book, trades, orders; empty means all
	MaxPending       int           `yaml:"max_pending"`
	WarnPending      int           `yaml:"warn_pending"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	BufferSize       int           `yaml:"buffer_size"`
}

// MarketConfig controls the symbol table.
type MarketConfig struct {
	ReconcileInterval  time.Duration `yaml:"reconcile_interval"` // 0 disables refresh
	InitialLoadTimeout time.Duration `yaml:"initial_load_timeout"`
}

// RegistryConfig controls order id persistence. An empty Path keeps ids in memory only.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// JournalConfig holds notification journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// PollerConfig holds balance poller settings.
type PollerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// MonitorConfig holds the health/debug HTTP server settings.
type MonitorConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig selects the log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
