package gdax

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/tradewire/internal/api"
	"github.com/rickgao/tradewire/internal/model"
	"github.com/rickgao/tradewire/internal/tick"
)

// productSource fetches the symbol table from /products.
type productSource struct {
	rest *api.Transport
}

func (s productSource) FetchSymbols(ctx context.Context) ([]model.Symbol, error) {
	var products []product
	if err := s.rest.Get(ctx, "/products", nil, &products); err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	symbols := make([]model.Symbol, 0, len(products))
	for _, p := range products {
		priceTick, err := tick.New(p.QuoteIncrement)
		if err != nil {
			return nil, fmt.Errorf("product %s quote_increment: %w", p.ID, err)
		}
		sizeTick, err := tick.New(p.BaseIncrement)
		if err != nil {
			return nil, fmt.Errorf("product %s base_increment: %w", p.ID, err)
		}
		symbols = append(symbols, model.NewSymbol(p.ID, priceTick, sizeTick))
	}
	return symbols, nil
}

// Order sends a limit order. The ack carries the client order id; the
// exchange id learned from the response is recorded in the registry.
func (c *Client) Order(ctx context.Context, symbol model.Symbol, order model.Order) *api.Future[model.Timestamped[model.OrderAck]] {
	clientOID := order.OrderID
	if clientOID == "" {
		clientOID = c.NewOrderID("")
	}

	req := orderRequest{
		ClientOID:   clientOID,
		Type:        "limit",
		Side:        formatSide(order.Side),
		ProductID:   symbol.Name(),
		Price:       symbol.PriceString(order.Price),
		Size:        symbol.SizeString(order.Size),
		TimeInForce: formatTimeInForce(order.TimeInForce),
	}

	return api.Submit(ctx, c.pool, func(ctx context.Context) (model.Timestamped[model.OrderAck], error) {
		var resp orderResponse
		if err := c.rest.Post(ctx, "/orders", req, &resp); err != nil {
			return model.Timestamped[model.OrderAck]{}, classifyOrderError(err)
		}

		c.registry.Insert(clientOID, resp.ID)
		c.logger.Debug("order id recorded from REST", "order_id", clientOID, "exchange_id", resp.ID)

		ts := model.TimestampOf(time.Now())
		if resp.CreatedAt != "" {
			if t, err := parseTime(resp.CreatedAt); err == nil {
				ts = t
			}
		}
		return model.WithTimestamp(model.OrderAck{OrderID: clientOID}, ts), nil
	})
}

// Cancel cancels by exchange id when known, by client id otherwise.
func (c *Client) Cancel(ctx context.Context, symbol model.Symbol, cancel model.Cancel) *api.Future[model.Timestamped[model.CancelAck]] {
	return api.Submit(ctx, c.pool, func(ctx context.Context) (model.Timestamped[model.CancelAck], error) {
		path := "/orders/client:" + url.PathEscape(cancel.OrderID)
		if exchangeID, ok := c.registry.Lookup(cancel.OrderID); ok {
			path = "/orders/" + url.PathEscape(exchangeID)
		}
		path += "?" + url.Values{"product_id": {symbol.Name()}}.Encode()

		if err := c.rest.Delete(ctx, path, nil); err != nil {
			return model.Timestamped[model.CancelAck]{}, classifyCancelError(err)
		}
		return model.Stamped(model.CancelAck{OrderID: cancel.OrderID}), nil
	})
}

// Ping fetches the server time. The result is stamped with it.
func (c *Client) Ping(ctx context.Context) *api.Future[model.Timestamped[struct{}]] {
	return api.Submit(ctx, c.pool, func(ctx context.Context) (model.Timestamped[struct{}], error) {
		var st serverTime
		if err := c.rest.Get(ctx, "/time", nil, &st); err != nil {
			return model.Timestamped[struct{}]{}, err
		}
		ts, err := serverTimestamp(st)
		if err != nil {
			return model.Timestamped[struct{}]{}, err
		}
		return model.WithTimestamp(struct{}{}, ts), nil
	})
}

func serverTimestamp(st serverTime) (model.Timestamp, error) {
	if st.ISO != "" {
		return parseTime(st.ISO)
	}
	epoch, err := decimal.NewFromString(st.Epoch.String())
	if err != nil {
		return 0, fmt.Errorf("%w: bad epoch %q", api.ErrDecode, st.Epoch)
	}
	return model.Timestamp(epoch.Shift(3).IntPart()), nil
}

// Balances fetches every account of the profile.
func (c *Client) Balances(ctx context.Context) *api.Future[model.Balances] {
	return api.Submit(ctx, c.pool, func(ctx context.Context) (model.Balances, error) {
		var accounts []account
		if err := c.rest.GetPrivate(ctx, "/accounts", nil, &accounts); err != nil {
			return nil, err
		}

		balances := make(model.Balances, len(accounts))
		for _, a := range accounts {
			free, err := tick.Canonical(a.Available)
			if err != nil {
				return nil, err
			}
			locked, err := tick.Canonical(a.Hold)
			if err != nil {
				return nil, err
			}
			balances[a.Currency] = model.Balance{Free: free, Locked: locked}
		}
		return balances, nil
	})
}

func classifyOrderError(err error) error {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		return err
	}
	if strings.Contains(strings.ToLower(apiErr.Message), "insufficient funds") {
		return fmt.Errorf("%w: %w", api.ErrInsufficientBalance, err)
	}
	return fmt.Errorf("%w: %w", api.ErrInvalidOrder, err)
}

func classifyCancelError(err error) error {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.StatusCode == http.StatusNotFound ||
		strings.Contains(strings.ToLower(apiErr.Message), "not found") {
		return fmt.Errorf("%w: %w", api.ErrOrderNotFound, err)
	}
	return err
}
