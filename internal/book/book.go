// Package book keeps a local price-level view of one symbol's order book,
// maintained by applying LimitUpdate deltas in arrival order.
package book

import (
	"sync"

	"github.com/huandu/skiplist"

	"github.com/rickgao/tradewire/internal/model"
)

// Level is an aggregated price level.
type Level struct {
	Price model.Price `json:"price"`
	Size  model.Size  `json:"size"`
}

// Book is safe for concurrent use.
type Book struct {
	symbol model.Symbol

	mu         sync.RWMutex
	bids       *skiplist.SkipList // highest price first
	asks       *skiplist.SkipList // lowest price first
	lastUpdate model.Timestamp
	applied    int64
}

func descending(lhs, rhs any) int {
	l, _ := lhs.(model.Price)
	r, _ := rhs.(model.Price)
	switch {
	case l < r:
		return 1
	case l > r:
		return -1
	}
	return 0
}

func ascending(lhs, rhs any) int {
	return -descending(lhs, rhs)
}

// New creates an empty book.
func New(symbol model.Symbol) *Book {
	return &Book{
		symbol: symbol,
		bids:   skiplist.New(skiplist.GreaterThanFunc(descending)),
		asks:   skiplist.New(skiplist.GreaterThanFunc(ascending)),
	}
}

// Symbol returns the book's symbol.
func (b *Book) Symbol() model.Symbol { return b.symbol }

func (b *Book) side(s model.Side) *skiplist.SkipList {
	if s == model.Bid {
		return b.bids
	}
	return b.asks
}

// Apply applies a batch of deltas. A zero size removes the level.
func (b *Book) Apply(batch model.Timestamped[[]model.LimitUpdate]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, u := range batch.Value {
		levels := b.side(u.Side)
		if u.Size == 0 {
			levels.Remove(u.Price)
			continue
		}
		levels.Set(u.Price, u.Size)
	}
	b.lastUpdate = batch.Timestamp
	b.applied += int64(len(batch.Value))
}

// Reset removes every level.
func (b *Book) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids.Init()
	b.asks.Init()
}

// Best returns the top level of a side.
func (b *Book) Best(s model.Side) (Level, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	front := b.side(s).Front()
	if front == nil {
		return Level{}, false
	}
	return toLevel(front), true
}

// Spread returns best ask minus best bid, in price ticks.
func (b *Book) Spread() (model.Price, bool) {
	bid, ok := b.Best(model.Bid)
	if !ok {
		return 0, false
	}
	ask, ok := b.Best(model.Ask)
	if !ok {
		return 0, false
	}
	return ask.Price - bid.Price, true
}

// Depth returns up to n levels of a side, best first. n <= 0 returns all.
func (b *Book) Depth(s model.Side, n int) []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()

	levels := b.side(s)
	size := levels.Len()
	if n > 0 && n < size {
		size = n
	}

	out := make([]Level, 0, size)
	for el := levels.Front(); el != nil && len(out) < size; el = el.Next() {
		out = append(out, toLevel(el))
	}
	return out
}

// Len returns the number of levels on a side.
func (b *Book) Len(s model.Side) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.side(s).Len()
}

// LastUpdate returns the timestamp of the last applied batch.
func (b *Book) LastUpdate() model.Timestamp {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastUpdate
}

// Applied returns the total number of deltas applied.
func (b *Book) Applied() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.applied
}

func toLevel(el *skiplist.Element) Level {
	p, _ := el.Key().(model.Price)
	s, _ := el.Value.(model.Size)
	return Level{Price: p, Size: s}
}
