// streamtest opens one GDAX stream and prints normalized notifications to the console.
// Usage: go run ./cmd/streamtest --symbol BTC-USD --flags order_book,trades
//
// Private order events need credentials in the environment:
//
//	GDAX_API_KEY     - API key
//	GDAX_SECRET      - base64 API secret
//	GDAX_PASSPHRASE  - API passphrase
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/tradewire/internal/auth"
	"github.com/rickgao/tradewire/internal/book"
	"github.com/rickgao/tradewire/internal/exchange/gdax"
	"github.com/rickgao/tradewire/internal/model"
)

func main() {
	symbolName := flag.String("symbol", "BTC-USD", "product id to stream")
	flagNames := flag.String("flags", "all", "comma separated: order_book, trades, orders, all")
	sandbox := flag.Bool("sandbox", false, "use the sandbox endpoints")
	verbose := flag.Bool("verbose", false, "print full notification JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	flags, ok := model.ParseFlags(strings.Split(*flagNames, ","))
	if !ok || flags == model.FlagsNone {
		logger.Error("invalid --flags", "flags", *flagNames)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	cfg := gdax.DefaultConfig()
	if *sandbox {
		cfg.RESTURL = gdax.SandboxREST
		cfg.StreamURL = gdax.SandboxStream
	}

	if key := os.Getenv("GDAX_API_KEY"); key != "" {
		creds, err := auth.LoadCredentials(key, os.Getenv("GDAX_SECRET"), os.Getenv("GDAX_PASSPHRASE"))
		if err != nil {
			logger.Error("failed to load credentials", "error", err)
			os.Exit(1)
		}
		cfg.Credentials = creds
		logger.Info("using API credentials", "key", key)
	} else if flags.Contains(model.FlagOrders) {
		logger.Warn("no credentials set, order events will not be received")
	}

	logger.Info("fetching products...")
	client, err := gdax.New(ctx, cfg, gdax.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create client", "error", err)
		os.Exit(1)
	}

	symbol, ok := client.FindSymbol(*symbolName)
	if !ok {
		logger.Error("unknown symbol", "symbol", *symbolName, "known", len(client.Symbols()))
		os.Exit(1)
	}
	logger.Info("symbol resolved",
		"symbol", symbol.Name(),
		"price_tick", symbol.PriceTick().String(),
		"size_tick", symbol.SizeTick().String(),
	)

	stream := client.StreamWithFlags(ctx, symbol, flags)
	b := book.New(symbol)

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stream.Done():
				return
			case <-ticker.C:
				stats := stream.Stats()
				bid, _ := b.Best(model.Bid)
				ask, _ := b.Best(model.Ask)
				logger.Info("stats",
					"received", stats.Pushed,
					"pending", stats.Pending,
					"peak", stats.Peak,
					"bid_levels", b.Len(model.Bid),
					"ask_levels", b.Len(model.Ask),
					"best_bid", symbol.PriceString(bid.Price),
					"best_ask", symbol.PriceString(ask.Price),
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop", "flags", flags.String())

	for n := range stream.Notifications() {
		if n.Kind == model.KindLimitUpdates {
			b.Apply(*n.LimitUpdates)
		}
		printNotification(symbol, n, *verbose)
	}

	if err := stream.Err(); err != nil {
		logger.Error("stream ended", "error", err)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	stream.Close()
	client.Close(shutdownCtx)

	logger.Info("shutdown complete")
}

func printNotification(sym model.Symbol, n model.Notification, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(n, "", "  ")
		fmt.Printf("[%s] %s\n", strings.ToUpper(n.Kind.String()), data)
		return
	}

	switch n.Kind {
	case model.KindTrade:
		t := n.Trade.Value
		fmt.Printf("[TRADE] ts=%d price=%s size=%s maker=%s\n",
			n.Trade.Timestamp, sym.PriceString(t.Price), sym.SizeString(t.Size), t.MakerSide)
	case model.KindLimitUpdates:
		fmt.Printf("[BOOK] ts=%d levels=%d\n", n.LimitUpdates.Timestamp, len(n.LimitUpdates.Value))
	case model.KindOrderConfirmation:
		c := n.OrderConfirmation.Value
		fmt.Printf("[ORDER RECEIVED] id=%s side=%s price=%s size=%s\n",
			c.OrderID, c.Side, sym.PriceString(c.Price), sym.SizeString(c.Size))
	case model.KindOrderUpdate:
		u := n.OrderUpdate.Value
		fmt.Printf("[ORDER FILL] id=%s consumed=%s@%s remaining=%s\n",
			u.OrderID, sym.SizeString(u.ConsumedSize), sym.PriceString(u.ConsumedPrice), sym.SizeString(u.RemainingSize))
	case model.KindOrderExpiration:
		fmt.Printf("[ORDER CANCELED] id=%s\n", n.OrderExpiration.Value.OrderID)
	}
}
