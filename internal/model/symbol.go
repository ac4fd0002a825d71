package model

import "github.com/rickgao/tradewire/internal/tick"

// Symbol is an exchange instrument together with its price and size resolution.
// It is immutable once resolved.
type Symbol struct {
	name      string
	priceTick tick.Tick
	sizeTick  tick.Tick
}

// NewSymbol returns a resolved symbol.
func NewSymbol(name string, priceTick, sizeTick tick.Tick) Symbol {
	return Symbol{name: name, priceTick: priceTick, sizeTick: sizeTick}
}

// Name is the exchange-specific instrument name (e.g. "BTC-USD").
func (s Symbol) Name() string { return s.name }

// PriceTick is the smallest price increment.
func (s Symbol) PriceTick() tick.Tick { return s.priceTick }

// SizeTick is the smallest size increment.
func (s Symbol) SizeTick() tick.Tick { return s.sizeTick }

// Price converts a wire decimal price into ticks.
func (s Symbol) Price(dec string) (Price, error) {
	n, err := s.priceTick.Ticked(dec)
	return Price(n), err
}

// Size converts a wire decimal size into ticks.
func (s Symbol) Size(dec string) (Size, error) {
	n, err := s.sizeTick.Ticked(dec)
	return Size(n), err
}

// PriceString converts a tick price back to a wire decimal.
func (s Symbol) PriceString(p Price) string { return s.priceTick.ToDecimal(int64(p)) }

// SizeString converts a tick size back to a wire decimal.
func (s Symbol) SizeString(sz Size) string { return s.sizeTick.ToDecimal(int64(sz)) }
