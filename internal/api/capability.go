package api

import (
	"context"

	"github.com/rickgao/tradewire/internal/model"
)

// Client is the capability every exchange adapter exposes.
type Client interface {
	// FindSymbol resolves an exchange instrument name.
	FindSymbol(name string) (model.Symbol, bool)

	// StreamWithFlags opens one streaming connection delivering the
	// notification categories selected by flags.
	StreamWithFlags(ctx context.Context, symbol model.Symbol, flags model.NotificationFlags) *Stream

	// Order sends a limit order.
	Order(ctx context.Context, symbol model.Symbol, order model.Order) *Future[model.Timestamped[model.OrderAck]]

	// Cancel cancels a previously sent order.
	Cancel(ctx context.Context, symbol model.Symbol, cancel model.Cancel) *Future[model.Timestamped[model.CancelAck]]

	// Ping measures the round trip to the exchange.
	Ping(ctx context.Context) *Future[model.Timestamped[struct{}]]

	// Balances fetches the account balances.
	Balances(ctx context.Context) *Future[model.Balances]

	// NewOrderID returns an order id acceptable to the exchange. It returns
	// hint unchanged when the exchange accepts caller ids verbatim; otherwise
	// every returned id is distinct from every other.
	NewOrderID(hint string) string
}
