package model

import "strings"

// NotificationFlags selects which categories of events a stream delivers.
type NotificationFlags uint8

const (
	FlagOrderBook NotificationFlags = 1 << iota
	FlagTrades
	FlagOrders

	FlagsNone NotificationFlags = 0
	FlagsAll                    = FlagOrderBook | FlagTrades | FlagOrders
)

// Contains reports whether every flag of other is set.
func (f NotificationFlags) Contains(other NotificationFlags) bool {
	return f&other == other
}

// Intersects reports whether at least one flag of other is set.
func (f NotificationFlags) Intersects(other NotificationFlags) bool {
	return f&other != 0
}

func (f NotificationFlags) String() string {
	if f == FlagsNone {
		return "none"
	}
	var parts []string
	if f.Contains(FlagOrderBook) {
		parts = append(parts, "order_book")
	}
	if f.Contains(FlagTrades) {
		parts = append(parts, "trades")
	}
	if f.Contains(FlagOrders) {
		parts = append(parts, "orders")
	}
	return strings.Join(parts, "|")
}

// ParseFlags parses names such as "order_book", "trades", "orders" or "all".
// Unknown names are reported through ok=false.
func ParseFlags(names []string) (flags NotificationFlags, ok bool) {
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "order_book", "orderbook", "book":
			flags |= FlagOrderBook
		case "trades", "trade":
			flags |= FlagTrades
		case "orders", "order":
			flags |= FlagOrders
		case "all":
			flags |= FlagsAll
		default:
			return flags, false
		}
	}
	return flags, true
}
