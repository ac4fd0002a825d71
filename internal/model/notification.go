package model

import "fmt"

// Kind discriminates the payload carried by a Notification.
type Kind uint8

const (
	KindTrade Kind = iota + 1
	KindLimitUpdates
	KindOrderConfirmation
	KindOrderUpdate
	KindOrderExpiration
)

func (k Kind) String() string {
	switch k {
	case KindTrade:
		return "trade"
	case KindLimitUpdates:
		return "limit_updates"
	case KindOrderConfirmation:
		return "order_confirmation"
	case KindOrderUpdate:
		return "order_update"
	case KindOrderExpiration:
		return "order_expiration"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Flag returns the subscription flag that gates notifications of kind k.
func (k Kind) Flag() NotificationFlags {
	switch k {
	case KindTrade:
		return FlagTrades
	case KindLimitUpdates:
		return FlagOrderBook
	case KindOrderConfirmation, KindOrderUpdate, KindOrderExpiration:
		return FlagOrders
	}
	return FlagsNone
}

// Notification is a single event pushed by a stream. Exactly one payload
// field, selected by Kind, is set.
type Notification struct {
	Kind Kind `json:"kind"`

	Trade             *Timestamped[Trade]             `json:"trade,omitempty"`
	LimitUpdates      *Timestamped[[]LimitUpdate]     `json:"limit_updates,omitempty"`
	OrderConfirmation *Timestamped[OrderConfirmation] `json:"order_confirmation,omitempty"`
	OrderUpdate       *Timestamped[OrderUpdate]       `json:"order_update,omitempty"`
	OrderExpiration   *Timestamped[OrderExpiration]   `json:"order_expiration,omitempty"`
}

// TradeNotification wraps a trade.
func TradeNotification(t Timestamped[Trade]) Notification {
	return Notification{Kind: KindTrade, Trade: &t}
}

// LimitUpdatesNotification wraps a batch of book deltas.
func LimitUpdatesNotification(u Timestamped[[]LimitUpdate]) Notification {
	return Notification{Kind: KindLimitUpdates, LimitUpdates: &u}
}

// OrderConfirmationNotification wraps an order confirmation.
func OrderConfirmationNotification(c Timestamped[OrderConfirmation]) Notification {
	return Notification{Kind: KindOrderConfirmation, OrderConfirmation: &c}
}

// OrderUpdateNotification wraps an order update.
func OrderUpdateNotification(u Timestamped[OrderUpdate]) Notification {
	return Notification{Kind: KindOrderUpdate, OrderUpdate: &u}
}

// OrderExpirationNotification wraps an order expiration.
func OrderExpirationNotification(e Timestamped[OrderExpiration]) Notification {
	return Notification{Kind: KindOrderExpiration, OrderExpiration: &e}
}

// Timestamp returns the timestamp of whichever payload is set.
func (n Notification) Timestamp() Timestamp {
	switch n.Kind {
	case KindTrade:
		return n.Trade.Timestamp
	case KindLimitUpdates:
		return n.LimitUpdates.Timestamp
	case KindOrderConfirmation:
		return n.OrderConfirmation.Timestamp
	case KindOrderUpdate:
		return n.OrderUpdate.Timestamp
	case KindOrderExpiration:
		return n.OrderExpiration.Timestamp
	}
	return 0
}

// OrderID returns the order id for order-related notifications, or "".
func (n Notification) OrderID() string {
	switch n.Kind {
	case KindOrderConfirmation:
		return n.OrderConfirmation.Value.OrderID
	case KindOrderUpdate:
		return n.OrderUpdate.Value.OrderID
	case KindOrderExpiration:
		return n.OrderExpiration.Value.OrderID
	}
	return ""
}
