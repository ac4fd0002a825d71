package gdax

import (
	"encoding/json"

	"github.com/rickgao/tradewire/internal/auth"
)

// Stream frames.

type envelope struct {
	Type string `json:"type"`
}

type channelWithProducts struct {
	Name       string   `json:"name"`
	ProductIDs []string `json:"product_ids"`
}

type subscribeRequest struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []any    `json:"channels"`

	*auth.WebSocketAuth
}

type bookSnapshot struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

type levelUpdate struct {
	Time    string      `json:"time"`
	Changes [][3]string `json:"changes"`
}

type matchEvent struct {
	Time         string  `json:"time"`
	Size         string  `json:"size"`
	Price        string  `json:"price"`
	Side         string  `json:"side"`
	MakerOrderID string  `json:"maker_order_id"`
	TakerOrderID string  `json:"taker_order_id"`
	ProfileID    *string `json:"profile_id"`
}

type receivedEvent struct {
	Time      string  `json:"time"`
	ClientOID *string `json:"client_oid"`
	OrderID   string  `json:"order_id"`
	Size      string  `json:"size"`
	Price     string  `json:"price"`
	Side      string  `json:"side"`
}

type doneEvent struct {
	Reason  string `json:"reason"`
	OrderID string `json:"order_id"`
	Time    string `json:"time"`
}

type errorEvent struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

// REST payloads.

type product struct {
	ID              string `json:"id"`
	QuoteIncrement  string `json:"quote_increment"`
	BaseIncrement   string `json:"base_increment"`
	Status          string `json:"status"`
	TradingDisabled bool   `json:"trading_disabled"`
}

type orderRequest struct {
	ClientOID   string `json:"client_oid"`
	Type        string `json:"type"`
	Side        string `json:"side"`
	ProductID   string `json:"product_id"`
	Price       string `json:"price"`
	Size        string `json:"size"`
	TimeInForce string `json:"time_in_force"`
}

type orderResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Status    string `json:"status"`
}

type account struct {
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
	Available string `json:"available"`
	Hold      string `json:"hold"`
}

type serverTime struct {
	ISO   string      `json:"iso"`
	Epoch json.Number `json:"epoch"`
}
