// Package gdax implements api.Client for GDAX (Coinbase Exchange).
//
// REST endpoints:
//   - Production: https://api.exchange.coinbase.com
//   - Sandbox: https://api-public.sandbox.exchange.coinbase.com
//
// WebSocket endpoint:
//   - wss://ws-feed.exchange.coinbase.com
//
// Channels used: level2, matches, heartbeat, user (authenticated only).
package gdax

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rickgao/tradewire/internal/api"
	"github.com/rickgao/tradewire/internal/auth"
	"github.com/rickgao/tradewire/internal/connection"
	"github.com/rickgao/tradewire/internal/market"
	"github.com/rickgao/tradewire/internal/model"
	"github.com/rickgao/tradewire/internal/orderid"
)

const (
	ProductionREST   = "https://api.exchange.coinbase.com"
	ProductionStream = "wss://ws-feed.exchange.coinbase.com"
	SandboxREST      = "https://api-public.sandbox.exchange.coinbase.com"
	SandboxStream    = "wss://ws-feed-public.sandbox.exchange.coinbase.com"
)

// Config configures a GDAX client.
type Config struct {
	RESTURL     string
	StreamURL   string
	Credentials *auth.Credentials // nil restricts the client to public data

	PoolSize   int64 // Concurrent REST requests
	Stream     api.StreamConfig
	Connection connection.ClientConfig
	Market     market.Config
}

// DefaultConfig returns a production configuration without credentials.
func DefaultConfig() Config {
	return Config{
		RESTURL:    ProductionREST,
		StreamURL:  ProductionStream,
		PoolSize:   8,
		Connection: connection.DefaultClientConfig(),
		Market:     market.DefaultConfig(),
	}
}

// Client talks to GDAX. It is safe for concurrent use.
type Client struct {
	cfg      Config
	rest     *api.Transport
	pool     *api.Pool
	symbols  *market.Registry
	registry *orderid.Registry
	logger   *slog.Logger

	transportOpts []api.TransportOption
}

// Option configures a Client.
type Option func(*Client)

// WithRegistry shares an order id registry, e.g. one backed by a persistent store.
func WithRegistry(r *orderid.Registry) Option {
	return func(c *Client) { c.registry = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTransportOptions forwards options to the REST transport.
func WithTransportOptions(opts ...api.TransportOption) Option {
	return func(c *Client) { c.transportOpts = append(c.transportOpts, opts...) }
}

var _ api.Client = (*Client)(nil)

// New creates a client. It blocks until the symbol table has been fetched.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("exchange", "gdax")

	if c.registry == nil {
		c.registry = orderid.New(orderid.WithLogger(c.logger))
	}

	topts := []api.TransportOption{api.WithLogger(c.logger)}
	if cfg.Credentials != nil {
		topts = append(topts, api.WithSigner(cfg.Credentials))
	}
	topts = append(topts, c.transportOpts...)
	c.rest = api.NewTransport(cfg.RESTURL, topts...)

	c.pool = api.NewPool(cfg.PoolSize, c.logger)
	c.symbols = market.NewRegistry(cfg.Market, productSource{c.rest}, c.logger)

	if err := c.symbols.Start(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// FindSymbol resolves a product id such as "BTC-USD".
func (c *Client) FindSymbol(name string) (model.Symbol, bool) {
	return c.symbols.Find(name)
}

// Symbols returns every known product.
func (c *Client) Symbols() []model.Symbol {
	return c.symbols.Symbols()
}

// Registry returns the order id registry shared by REST and streams.
func (c *Client) Registry() *orderid.Registry {
	return c.registry
}

// Stream opens a stream delivering every notification category.
func (c *Client) Stream(ctx context.Context, symbol model.Symbol) *api.Stream {
	return c.StreamWithFlags(ctx, symbol, model.FlagsAll)
}

// StreamWithFlags opens one WebSocket connection for symbol.
func (c *Client) StreamWithFlags(ctx context.Context, symbol model.Symbol, flags model.NotificationFlags) *api.Stream {
	scfg := c.cfg.Stream
	if scfg.Logger == nil {
		scfg.Logger = c.logger
	}

	return api.NewStream(ctx, symbol, flags, scfg, func(ctx context.Context, emit api.Emitter) error {
		logger := scfg.Logger.With("symbol", symbol.Name())

		ccfg := c.cfg.Connection
		ccfg.URL = c.cfg.StreamURL

		h := newStreamHandler(symbol, flags, c.cfg.Credentials, c.registry, emit, logger)
		return connection.Run(ctx, connection.NewClient(ccfg, logger), h, logger)
	})
}

// NewOrderID returns a fresh UUID. GDAX only accepts UUIDs as client_oid,
// so hint is ignored.
func (c *Client) NewOrderID(hint string) string {
	return uuid.NewString()
}

// Close stops background work and waits for in-flight requests.
func (c *Client) Close(ctx context.Context) error {
	err := c.symbols.Stop(ctx)
	c.pool.Wait()
	return err
}
