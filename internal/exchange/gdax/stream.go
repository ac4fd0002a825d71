package gdax

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/tradewire/internal/api"
	"github.com/rickgao/tradewire/internal/auth"
	"github.com/rickgao/tradewire/internal/connection"
	"github.com/rickgao/tradewire/internal/model"
	"github.com/rickgao/tradewire/internal/orderid"
)

type subscriptionState uint8

const (
	notSubscribed subscriptionState = iota
	subscribed
)

func (s subscriptionState) String() string {
	if s == subscribed {
		return "subscribed"
	}
	return "not_subscribed"
}

// route dispatches one inbound frame type. Routes are evaluated in order;
// the first one whose tag matches and whose predicate accepts the stream's
// flags handles the frame. Frames matching no route are ignored.
type route struct {
	tag    string
	when   func(model.NotificationFlags) bool
	handle func(h *streamHandler, data []byte, msg connection.Message) error
}

func always(model.NotificationFlags) bool { return true }

func wants(f model.NotificationFlags) func(model.NotificationFlags) bool {
	return func(flags model.NotificationFlags) bool { return flags.Intersects(f) }
}

var routes = []route{
	{"subscribe", always, (*streamHandler).onSubscribe},
	{"subscriptions", always, (*streamHandler).onSubscribe},
	{"snapshot", wants(model.FlagOrderBook), (*streamHandler).onSnapshot},
	{"l2update", wants(model.FlagOrderBook), (*streamHandler).onLevelUpdate},
	{"match", wants(model.FlagTrades | model.FlagOrders), (*streamHandler).onMatch},
	{"received", wants(model.FlagOrders), (*streamHandler).onReceived},
	{"done", wants(model.FlagOrders), (*streamHandler).onDone},
	{"error", always, (*streamHandler).onError},
}

// streamHandler is the per-connection protocol state machine. It is owned
// by the connection goroutine; only the order id registry is shared.
type streamHandler struct {
	symbol   model.Symbol
	flags    model.NotificationFlags
	creds    *auth.Credentials
	registry *orderid.Registry
	emit     api.Emitter
	logger   *slog.Logger
	now      func() time.Time

	state subscriptionState

	// exchange order id -> confirmation, remaining size kept current
	orders map[string]*model.OrderConfirmation
}

func newStreamHandler(symbol model.Symbol, flags model.NotificationFlags, creds *auth.Credentials,
	registry *orderid.Registry, emit api.Emitter, logger *slog.Logger) *streamHandler {
	return &streamHandler{
		symbol:   symbol,
		flags:    flags,
		creds:    creds,
		registry: registry,
		emit:     emit,
		logger:   logger,
		now:      time.Now,
		orders:   make(map[string]*model.OrderConfirmation),
	}
}

// subscription builds the opening frame.
func (h *streamHandler) subscription() (subscribeRequest, error) {
	products := []string{h.symbol.Name()}

	var channels []any
	if h.flags.Contains(model.FlagOrderBook) {
		channels = append(channels, "level2")
	}
	if h.flags.Intersects(model.FlagTrades | model.FlagOrders) {
		channels = append(channels, "matches")
	}
	channels = append(channels, channelWithProducts{Name: "heartbeat", ProductIDs: products})

	req := subscribeRequest{
		Type:       "subscribe",
		ProductIDs: products,
		Channels:   channels,
	}

	if h.creds != nil {
		a, err := h.creds.SignWebSocket(h.now())
		if err != nil {
			return subscribeRequest{}, fmt.Errorf("%w: %v", api.ErrSignature, err)
		}
		req.WebSocketAuth = &a
		req.Channels = append(req.Channels, "user")
	}
	return req, nil
}

func (h *streamHandler) OnOpen(ctx context.Context, s connection.Sender) error {
	req, err := h.subscription()
	if err != nil {
		return err
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal subscription: %w", err)
	}

	if err := s.Send(data); err != nil {
		return fmt.Errorf("%w: send subscription: %v", api.ErrTransport, err)
	}

	h.logger.Debug("subscription sent",
		"channels", len(req.Channels),
		"authenticated", h.creds != nil,
	)
	return nil
}

func (h *streamHandler) OnMessage(ctx context.Context, msg connection.Message) error {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		return api.DecodeError("envelope", err)
	}

	for _, r := range routes {
		if r.tag != env.Type {
			continue
		}
		if !r.when(h.flags) {
			return nil
		}
		return r.handle(h, msg.Data, msg)
	}
	return nil
}

func (h *streamHandler) onSubscribe(data []byte, msg connection.Message) error {
	if h.state == subscribed {
		h.logger.Error("received subscription ack while already subscribed")
		return nil
	}
	h.state = subscribed
	h.logger.Info("subscribed", "flags", h.flags.String())
	return nil
}

func (h *streamHandler) onSnapshot(data []byte, msg connection.Message) error {
	var snap bookSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return api.DecodeError("snapshot", err)
	}

	updates := make([]model.LimitUpdate, 0, len(snap.Bids)+len(snap.Asks))
	for _, l := range snap.Bids {
		u, err := limitUpdate(h.symbol, model.Bid, l[0], l[1])
		if err != nil {
			return err
		}
		updates = append(updates, u)
	}
	for _, l := range snap.Asks {
		u, err := limitUpdate(h.symbol, model.Ask, l[0], l[1])
		if err != nil {
			return err
		}
		updates = append(updates, u)
	}

	ts := model.TimestampOf(msg.ReceivedAt)
	return h.emit.Emit(model.LimitUpdatesNotification(model.WithTimestamp(updates, ts)))
}

func (h *streamHandler) onLevelUpdate(data []byte, msg connection.Message) error {
	var upd levelUpdate
	if err := json.Unmarshal(data, &upd); err != nil {
		return api.DecodeError("l2update", err)
	}

	updates := make([]model.LimitUpdate, 0, len(upd.Changes))
	for _, c := range upd.Changes {
		side, err := parseSide(c[0])
		if err != nil {
			return err
		}
		u, err := limitUpdate(h.symbol, side, c[1], c[2])
		if err != nil {
			return err
		}
		updates = append(updates, u)
	}
	if len(updates) == 0 {
		return nil
	}

	ts := model.TimestampOf(msg.ReceivedAt)
	if upd.Time != "" {
		t, err := parseTime(upd.Time)
		if err != nil {
			return err
		}
		ts = t
	}
	return h.emit.Emit(model.LimitUpdatesNotification(model.WithTimestamp(updates, ts)))
}

func (h *streamHandler) onMatch(data []byte, msg connection.Message) error {
	var m matchEvent
	if err := json.Unmarshal(data, &m); err != nil {
		return api.DecodeError("match", err)
	}

	ts, err := parseTime(m.Time)
	if err != nil {
		return err
	}
	size, err := h.symbol.Size(m.Size)
	if err != nil {
		return err
	}
	price, err := h.symbol.Price(m.Price)
	if err != nil {
		return err
	}

	if h.flags.Contains(model.FlagOrders) && m.ProfileID != nil {
		// a self-trade consumes both of our orders
		for _, id := range [2]string{m.TakerOrderID, m.MakerOrderID} {
			if err := h.consume(id, size, price, ts); err != nil {
				return err
			}
		}
	}

	if h.flags.Contains(model.FlagTrades) {
		side, err := parseSide(m.Side)
		if err != nil {
			return err
		}
		trade := model.Trade{Price: price, Size: size, MakerSide: side}
		return h.emit.Emit(model.TradeNotification(model.WithTimestamp(trade, ts)))
	}
	return nil
}

// consume applies a fill to a tracked order.
func (h *streamHandler) consume(exchangeID string, size model.Size, price model.Price, ts model.Timestamp) error {
	order, ok := h.orders[exchangeID]
	if !ok {
		return nil
	}

	if size > order.Size {
		h.logger.Error("fill exceeds remaining size",
			"order_id", order.OrderID,
			"remaining", order.Size,
			"consumed", size,
		)
		order.Size = 0
	} else {
		order.Size -= size
	}

	return h.emit.Emit(model.OrderUpdateNotification(model.WithTimestamp(model.OrderUpdate{
		OrderID:       order.OrderID,
		ConsumedSize:  size,
		ConsumedPrice: price,
		RemainingSize: order.Size,
		Commission:    0,
	}, ts)))
}

func (h *streamHandler) onReceived(data []byte, msg connection.Message) error {
	var r receivedEvent
	if err := json.Unmarshal(data, &r); err != nil {
		return api.DecodeError("received", err)
	}

	ts, err := parseTime(r.Time)
	if err != nil {
		return err
	}
	size, err := optionalSize(h.symbol, r.Size)
	if err != nil {
		return err
	}
	price, err := optionalPrice(h.symbol, r.Price)
	if err != nil {
		return err
	}
	side, err := parseSide(r.Side)
	if err != nil {
		return err
	}

	orderID := r.OrderID
	if r.ClientOID != nil && *r.ClientOID != "" {
		orderID = *r.ClientOID
	}

	// the push may beat the REST response for the same order
	h.registry.Insert(orderID, r.OrderID)
	h.logger.Debug("order id recorded from stream", "order_id", orderID, "exchange_id", r.OrderID)

	conf := model.OrderConfirmation{
		OrderID: orderID,
		Price:   price,
		Size:    size,
		Side:    side,
	}
	tracked := conf
	h.orders[r.OrderID] = &tracked

	return h.emit.Emit(model.OrderConfirmationNotification(model.WithTimestamp(conf, ts)))
}

func (h *streamHandler) onDone(data []byte, msg connection.Message) error {
	var d doneEvent
	if err := json.Unmarshal(data, &d); err != nil {
		return api.DecodeError("done", err)
	}

	ts, err := parseTime(d.Time)
	if err != nil {
		return err
	}

	order, ok := h.orders[d.OrderID]
	if !ok {
		return nil
	}
	delete(h.orders, d.OrderID)

	if d.Reason != "canceled" {
		return nil
	}

	return h.emit.Emit(model.OrderExpirationNotification(model.WithTimestamp(
		model.OrderExpiration{OrderID: order.OrderID}, ts)))
}

// onError fails the connection whether or not the frame has the documented shape.
func (h *streamHandler) onError(data []byte, msg connection.Message) error {
	var e errorEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return &api.ProtocolError{Raw: string(data)}
	}
	return &api.ProtocolError{Message: e.Message, Reason: e.Reason, Raw: string(data)}
}
