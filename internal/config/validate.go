package config

import (
	"errors"
	"fmt"

	"github.com/rickgao/tradewire/internal/model"
)

// Validate checks that all required fields are set and values are valid.
func (c *StreamerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Exchange.Name != DefaultExchange {
		return fmt.Errorf("exchange.name %q is not supported", c.Exchange.Name)
	}
	if c.Exchange.HasCredentials() {
		if c.Exchange.APIKey == "" || c.Exchange.Secret == "" || c.Exchange.Passphrase == "" {
			return errors.New("exchange.api_key, exchange.secret and exchange.passphrase must be set together")
		}
	}
	if c.Exchange.MaxRetries < 0 {
		return errors.New("exchange.max_retries must be >= 0")
	}
	if c.Exchange.PoolSize < 1 {
		return errors.New("exchange.pool_size must be >= 1")
	}

	if len(c.Streams.Symbols) == 0 {
		return errors.New("streams.symbols must not be empty")
	}
	if _, err := c.Streams.NotificationFlags(); err != nil {
		return err
	}
	if c.Streams.MaxPending < 0 {
		return errors.New("streams.max_pending must be >= 0")
	}
	if c.Streams.MaxPending > 0 && c.Streams.WarnPending > c.Streams.MaxPending {
		return fmt.Errorf("streams.warn_pending (%d) cannot exceed max_pending (%d)",
			c.Streams.WarnPending, c.Streams.MaxPending)
	}

	if c.Journal.Enabled {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
	}

	if c.Poller.Enabled && !c.Exchange.HasCredentials() {
		return errors.New("poller.enabled requires exchange credentials")
	}

	if c.Monitor.Port < 1 || c.Monitor.Port > 65535 {
		return fmt.Errorf("monitor.port must be between 1 and 65535, got %d", c.Monitor.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

// NotificationFlags parses the configured flag names.
func (s StreamsConfig) NotificationFlags() (model.NotificationFlags, error) {
	flags, ok := model.ParseFlags(s.Flags)
	if !ok {
		return flags, fmt.Errorf("streams.flags %v contains an unknown flag", s.Flags)
	}
	if flags == model.FlagsNone {
		return flags, errors.New("streams.flags selects nothing")
	}
	return flags, nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
