package gdax

import (
	"fmt"
	"time"

	"github.com/rickgao/tradewire/internal/api"
	"github.com/rickgao/tradewire/internal/model"
)

func parseSide(s string) (model.Side, error) {
	switch s {
	case "buy":
		return model.Bid, nil
	case "sell":
		return model.Ask, nil
	}
	return 0, fmt.Errorf("%w: wrong side %q", api.ErrDecode, s)
}

func formatSide(s model.Side) string {
	if s == model.Ask {
		return "sell"
	}
	return "buy"
}

func formatTimeInForce(t model.TimeInForce) string {
	switch t {
	case model.ImmediateOrCancel:
		return "IOC"
	case model.FillOrKill:
		return "FOK"
	}
	return "GTC"
}

// parseTime converts an exchange RFC 3339 timestamp to ms since epoch.
func parseTime(s string) (model.Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad time %q", api.ErrDecode, s)
	}
	return model.TimestampOf(t), nil
}

func limitUpdate(sym model.Symbol, side model.Side, price, size string) (model.LimitUpdate, error) {
	p, err := sym.Price(price)
	if err != nil {
		return model.LimitUpdate{}, err
	}
	sz, err := sym.Size(size)
	if err != nil {
		return model.LimitUpdate{}, err
	}
	return model.LimitUpdate{Side: side, Price: p, Size: sz}, nil
}

// optionalPrice converts a price that market orders leave empty.
func optionalPrice(sym model.Symbol, s string) (model.Price, error) {
	if s == "" {
		return 0, nil
	}
	return sym.Price(s)
}

// optionalSize converts a size that funds-based market orders leave empty.
func optionalSize(sym model.Symbol, s string) (model.Size, error) {
	if s == "" {
		return 0, nil
	}
	return sym.Size(s)
}
