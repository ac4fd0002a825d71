package model

// Price is a signed number of price ticks.
type Price int64

// Size is a signed number of size ticks.
type Size int64

// Side of an order or of a book level.
type Side uint8

const (
	Bid Side = iota + 1
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	}
	return "unknown"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// TimeInForce, see https://www.investopedia.com/terms/t/timeinforce.asp.
type TimeInForce uint8

const (
	GoodTilCanceled TimeInForce = iota
	ImmediateOrCancel
	FillOrKill
)

func (t TimeInForce) String() string {
	switch t {
	case GoodTilCanceled:
		return "GTC"
	case ImmediateOrCancel:
		return "IOC"
	case FillOrKill:
		return "FOK"
	}
	return "unknown"
}

// DefaultTimeWindow is the validity window, in ms, of orders and cancels.
const DefaultTimeWindow = 5000

// Order is an order to be sent through the API.
type Order struct {
	Price       Price
	Size        Size
	Side        Side
	TimeInForce TimeInForce
	TimeWindow  uint64 // Delay in ms until the server considers the order stale
	OrderID     string // Optional; generated by the exchange adapter when empty
}

// NewOrder returns a good-til-canceled order with the default time window.
func NewOrder(price Price, size Size, side Side) Order {
	return Order{
		Price:       price,
		Size:        size,
		Side:        side,
		TimeInForce: GoodTilCanceled,
		TimeWindow:  DefaultTimeWindow,
	}
}

// WithTimeInForce returns a copy of o with the given time in force.
func (o Order) WithTimeInForce(tif TimeInForce) Order {
	o.TimeInForce = tif
	return o
}

// WithTimeWindow returns a copy of o with the given time window in ms.
func (o Order) WithTimeWindow(ms uint64) Order {
	o.TimeWindow = ms
	return o
}

// WithOrderID returns a copy of o carrying a caller-chosen order id.
func (o Order) WithOrderID(id string) Order {
	o.OrderID = id
	return o
}

// Cancel identifies a previously sent order to cancel.
type Cancel struct {
	OrderID    string
	TimeWindow uint64
}

// NewCancel returns a cancel for orderID with the default time window.
func NewCancel(orderID string) Cancel {
	return Cancel{OrderID: orderID, TimeWindow: DefaultTimeWindow}
}

// OrderAck acknowledges that an order was accepted by the server.
type OrderAck struct {
	OrderID string `json:"order_id"`
}

// CancelAck acknowledges that a cancel was accepted by the server.
type CancelAck struct {
	OrderID string `json:"order_id"`
}

// OrderConfirmation is an "order received" push event.
type OrderConfirmation struct {
	OrderID string `json:"order_id"`
	Price   Price  `json:"price"`
	Size    Size   `json:"size"`
	Side    Side   `json:"side"`
}

// OrderUpdate is emitted each time a trade consumes part of a tracked order.
type OrderUpdate struct {
	OrderID string `json:"order_id"`

	ConsumedSize  Size  `json:"consumed_size"`  // Size consumed by this trade
	ConsumedPrice Price `json:"consumed_price"` // Price of this trade

	// RemainingSize is the order size at insertion minus every consumed size so far.
	RemainingSize Size `json:"remaining_size"`

	// Commission may not be in the traded asset, depending on the exchange.
	Commission Size `json:"commission"`
}

// Trade is a liquidity consuming trade.
type Trade struct {
	Price Price `json:"price"`
	Size  Size  `json:"size"`

	// MakerSide is Ask when the taker bought from a resting ask,
	// Bid when the taker sold into a resting bid.
	MakerSide Side `json:"maker_side"`
}

// OrderExpiration reports that an order expired or was canceled.
type OrderExpiration struct {
	OrderID string `json:"order_id"`
}

// LimitUpdate is a single order book level delta. A zero Size removes the level.
type LimitUpdate struct {
	Side  Side  `json:"side"`
	Price Price `json:"price"`
	Size  Size  `json:"size"`
}

// Balance of one currency, as exact decimal strings.
type Balance struct {
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

// Balances maps a currency code to its balance.
type Balances map[string]Balance
