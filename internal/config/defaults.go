package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultExchange           = "gdax"
	DefaultAPITimeout         = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultPoolSize           = 8
	DefaultPingInterval       = 30 * time.Second
	DefaultPingTimeout        = 90 * time.Second
	DefaultHandshakeTimeout   = 10 * time.Second
	DefaultStreamBufferSize   = 4096
	DefaultWarnPending        = 10000
	DefaultInitialLoadTimeout = 30 * time.Second
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultBatchSize          = 1000
	DefaultFlushInterval      = 1 * time.Second
	DefaultPollInterval       = 1 * time.Minute
	DefaultPollTimeout        = 10 * time.Second
	DefaultMonitorPort        = 9090
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
)

func (c *StreamerConfig) applyDefaults() {
	// Exchange defaults
	if c.Exchange.Name == "" {
		c.Exchange.Name = DefaultExchange
	}
	if c.Exchange.Timeout == 0 {
		c.Exchange.Timeout = DefaultAPITimeout
	}
	if c.Exchange.MaxRetries == 0 {
		c.Exchange.MaxRetries = DefaultMaxRetries
	}
	if c.Exchange.PoolSize == 0 {
		c.Exchange.PoolSize = DefaultPoolSize
	}

	// Stream defaults
	if len(c.Streams.Flags) == 0 {
		c.Streams.Flags = []string{"all"}
	}
	if c.Streams.WarnPending == 0 {
		c.Streams.WarnPending = DefaultWarnPending
	}
	if c.Streams.PingInterval == 0 {
		c.Streams.PingInterval = DefaultPingInterval
	}
	if c.Streams.PingTimeout == 0 {
		c.Streams.PingTimeout = DefaultPingTimeout
	}
	if c.Streams.HandshakeTimeout == 0 {
		c.Streams.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Streams.BufferSize == 0 {
		c.Streams.BufferSize = DefaultStreamBufferSize
	}

	if c.Market.InitialLoadTimeout == 0 {
		c.Market.InitialLoadTimeout = DefaultInitialLoadTimeout
	}

	applyDBDefaults(&c.Database)

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.Timeout == 0 {
		c.Poller.Timeout = DefaultPollTimeout
	}

	if c.Monitor.Port == 0 {
		c.Monitor.Port = DefaultMonitorPort
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
