package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/tradewire/internal/api"
	"github.com/rickgao/tradewire/internal/auth"
	"github.com/rickgao/tradewire/internal/book"
	"github.com/rickgao/tradewire/internal/config"
	"github.com/rickgao/tradewire/internal/connection"
	"github.com/rickgao/tradewire/internal/database"
	"github.com/rickgao/tradewire/internal/exchange/gdax"
	"github.com/rickgao/tradewire/internal/journal"
	"github.com/rickgao/tradewire/internal/market"
	"github.com/rickgao/tradewire/internal/model"
	"github.com/rickgao/tradewire/internal/monitor"
	"github.com/rickgao/tradewire/internal/orderid"
	"github.com/rickgao/tradewire/internal/poller"
	"github.com/rickgao/tradewire/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/streamer.local.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("streamer failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// Load configuration
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting streamer",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
		"instance_id", cfg.Instance.ID,
	)

	flags, err := cfg.Streams.NotificationFlags()
	if err != nil {
		return err
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Order id registry, persisted when a path is configured
	registryOpts := []orderid.Option{orderid.WithLogger(logger)}
	if cfg.Registry.Path != "" {
		store, err := orderid.OpenPebble(cfg.Registry.Path)
		if err != nil {
			return fmt.Errorf("open order id store: %w", err)
		}
		registryOpts = append(registryOpts, orderid.WithStore(store))
	}
	registry := orderid.New(registryOpts...)
	defer registry.Close()
	logger.Info("order id registry ready", "entries", registry.Len(), "path", cfg.Registry.Path)

	// Exchange client
	gcfg, err := gdaxConfig(cfg)
	if err != nil {
		return err
	}
	client, err := gdax.New(ctx, gcfg,
		gdax.WithLogger(logger),
		gdax.WithRegistry(registry),
		gdax.WithTransportOptions(
			api.WithTimeout(cfg.Exchange.Timeout),
			api.WithRetries(cfg.Exchange.MaxRetries, time.Second),
			api.WithUserAgent(version.UserAgent()),
		),
	)
	if err != nil {
		return fmt.Errorf("create exchange client: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		client.Close(shutdownCtx)
	}()

	monitorOpts := []monitor.Option{
		monitor.WithLogger(logger),
		monitor.WithSymbols(client),
		monitor.WithRegistry(registry),
		monitor.WithAllowedOrigins(cfg.Monitor.AllowedOrigins),
	}

	// Journal
	var jrnl *journal.Journal
	if cfg.Journal.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database, "tradewire-"+cfg.Instance.ID)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		if err := journal.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		jrnl = journal.New(journal.Config{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
		}, pool, logger)
		if err := jrnl.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			jrnl.Stop(shutdownCtx)
		}()
	}

	// Balance poller
	if cfg.Poller.Enabled {
		p := poller.New(poller.Config{
			Interval: cfg.Poller.Interval,
			Timeout:  cfg.Poller.Timeout,
		}, client, nil, logger)
		if err := p.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			p.Stop(shutdownCtx)
		}()
		monitorOpts = append(monitorOpts, monitor.WithAccount(p.Snapshot))
	}

	mon := monitor.New(cfg.Instance.ID, monitorOpts...)
	if err := mon.Start(fmt.Sprintf(":%d", cfg.Monitor.Port)); err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		mon.Stop(shutdownCtx)
	}()

	// One stream per symbol
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range cfg.Streams.Symbols {
		symbol, ok := client.FindSymbol(name)
		if !ok {
			return fmt.Errorf("%w: %s", api.ErrSymbolNotFound, name)
		}

		stream := client.StreamWithFlags(gctx, symbol, flags)
		mon.AddStream(stream)

		var b *book.Book
		if flags.Contains(model.FlagOrderBook) {
			b = book.New(symbol)
			mon.AddBook(b)
		}

		g.Go(func() error {
			consume(stream, b, jrnl, logger)
			return nil
		})
	}

	logger.Info("streamer running",
		"symbols", cfg.Streams.Symbols,
		"flags", flags.String(),
		"monitor_port", cfg.Monitor.Port,
	)

	g.Wait()
	if ctx.Err() == nil {
		logger.Warn("every stream has ended")
	}

	logger.Info("streamer stopped")
	return nil
}

// consume drains one stream until it ends.
func consume(stream *api.Stream, b *book.Book, jrnl *journal.Journal, logger *slog.Logger) {
	logger = logger.With("stream_id", stream.ID(), "symbol", stream.Symbol().Name())

	for n := range stream.Notifications() {
		switch n.Kind {
		case model.KindLimitUpdates:
			if b != nil {
				b.Apply(*n.LimitUpdates)
			}
		case model.KindOrderConfirmation, model.KindOrderUpdate, model.KindOrderExpiration:
			logger.Info("order event", "kind", n.Kind.String(), "order_id", n.OrderID())
		}

		if jrnl != nil {
			jrnl.Append(journal.Record{
				StreamID:     stream.ID(),
				Symbol:       stream.Symbol(),
				Notification: n,
				ReceivedAt:   time.Now(),
			})
		}
	}

	if err := stream.Err(); err != nil {
		logger.Error("stream ended", "error", err)
	}
}

func gdaxConfig(cfg *config.StreamerConfig) (gdax.Config, error) {
	gcfg := gdax.DefaultConfig()
	if cfg.Exchange.Sandbox {
		gcfg.RESTURL = gdax.SandboxREST
		gcfg.StreamURL = gdax.SandboxStream
	}
	if cfg.Exchange.RestURL != "" {
		gcfg.RESTURL = cfg.Exchange.RestURL
	}
	if cfg.Exchange.StreamURL != "" {
		gcfg.StreamURL = cfg.Exchange.StreamURL
	}

	if cfg.Exchange.HasCredentials() {
		creds, err := auth.LoadCredentials(cfg.Exchange.APIKey, cfg.Exchange.Secret, cfg.Exchange.Passphrase)
		if err != nil {
			return gcfg, fmt.Errorf("load credentials: %w", err)
		}
		gcfg.Credentials = creds
	}

	gcfg.PoolSize = cfg.Exchange.PoolSize
	gcfg.Stream = api.StreamConfig{
		MaxPending:  cfg.Streams.MaxPending,
		WarnPending: cfg.Streams.WarnPending,
	}
	gcfg.Connection = connection.ClientConfig{
		HandshakeTimeout: cfg.Streams.HandshakeTimeout,
		PingInterval:     cfg.Streams.PingInterval,
		PingTimeout:      cfg.Streams.PingTimeout,
		BufferSize:       cfg.Streams.BufferSize,
	}
	gcfg.Market = market.Config{
		ReconcileInterval:  cfg.Market.ReconcileInterval,
		InitialLoadTimeout: cfg.Market.InitialLoadTimeout,
	}
	return gcfg, nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
