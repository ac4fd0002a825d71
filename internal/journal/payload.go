package journal

import (
	"encoding/json"
	"fmt"

	"github.com/rickgao/tradewire/internal/model"
)

type tradePayload struct {
	Price     string `json:"price"`
	Size      string `json:"size"`
	MakerSide string `json:"maker_side"`
}

type levelPayload struct {
	Side  string `json:"side"`
	Price string `json:"price"`
	Size  string `json:"size"`
}

type confirmationPayload struct {
	OrderID string `json:"order_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"`
}

type updatePayload struct {
	OrderID       string `json:"order_id"`
	ConsumedSize  string `json:"consumed_size"`
	ConsumedPrice string `json:"consumed_price"`
	RemainingSize string `json:"remaining_size"`
	Commission    string `json:"commission"`
}

type expirationPayload struct {
	OrderID string `json:"order_id"`
}

// encodePayload renders the notification body with decimal strings.
func encodePayload(sym model.Symbol, n model.Notification) ([]byte, error) {
	var v any
	switch n.Kind {
	case model.KindTrade:
		t := n.Trade.Value
		v = tradePayload{
			Price:     sym.PriceString(t.Price),
			Size:      sym.SizeString(t.Size),
			MakerSide: t.MakerSide.String(),
		}
	case model.KindLimitUpdates:
		levels := make([]levelPayload, 0, len(n.LimitUpdates.Value))
		for _, u := range n.LimitUpdates.Value {
			levels = append(levels, levelPayload{
				Side:  u.Side.String(),
				Price: sym.PriceString(u.Price),
				Size:  sym.SizeString(u.Size),
			})
		}
		v = levels
	case model.KindOrderConfirmation:
		c := n.OrderConfirmation.Value
		v = confirmationPayload{
			OrderID: c.OrderID,
			Price:   sym.PriceString(c.Price),
			Size:    sym.SizeString(c.Size),
			Side:    c.Side.String(),
		}
	case model.KindOrderUpdate:
		u := n.OrderUpdate.Value
		v = updatePayload{
			OrderID:       u.OrderID,
			ConsumedSize:  sym.SizeString(u.ConsumedSize),
			ConsumedPrice: sym.PriceString(u.ConsumedPrice),
			RemainingSize: sym.SizeString(u.RemainingSize),
			Commission:    sym.SizeString(u.Commission),
		}
	case model.KindOrderExpiration:
		v = expirationPayload{OrderID: n.OrderExpiration.Value.OrderID}
	default:
		return nil, fmt.Errorf("unknown notification kind %s", n.Kind)
	}
	return json.Marshal(v)
}
