// Package orderid maps client-chosen order ids to exchange-assigned ids.
//
// The registry is shared between the REST path (which learns the mapping from
// an order response) and every stream (which learns it from a "received"
// push). Whichever path observes the mapping first records it. Entries are
// never removed during the lifetime of the process.
package orderid

import (
	"log/slog"
	"sync"
)

// Store persists registry entries across restarts.
type Store interface {
	Put(clientID, exchangeID string) error
	Load(fn func(clientID, exchangeID string)) error
	Close() error
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore enables write-through persistence.
func WithStore(s Store) Option {
	return func(r *Registry) { r.store = s }
}

// WithLogger sets the logger used to report store failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// Registry is a concurrent client id -> exchange id map.
type Registry struct {
	mu  sync.RWMutex
	ids map[string]string

	store  Store
	logger *slog.Logger
}

// New creates a registry. If a store is configured its contents are restored.
func New(opts ...Option) *Registry {
	r := &Registry{
		ids:    make(map[string]string),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.store != nil {
		r.Restore()
	}
	return r
}

// Restore loads every persisted entry into memory. Entries already present
// in memory are overwritten.
func (r *Registry) Restore() int {
	if r.store == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	err := r.store.Load(func(clientID, exchangeID string) {
		r.ids[clientID] = exchangeID
		n++
	})
	if err != nil {
		r.logger.Error("order id restore failed", "error", err, "restored", n)
	}
	return n
}

// Insert records clientID -> exchangeID. Re-inserting the same pair is a
// no-op; a different exchange id for a known client id replaces it.
func (r *Registry) Insert(clientID, exchangeID string) {
	r.mu.Lock()
	prev, ok := r.ids[clientID]
	if ok && prev == exchangeID {
		r.mu.Unlock()
		return
	}
	r.ids[clientID] = exchangeID
	r.mu.Unlock()

	if ok {
		r.logger.Warn("order id remapped",
			"client_id", clientID,
			"previous", prev,
			"exchange_id", exchangeID)
	}

	if r.store != nil {
		if err := r.store.Put(clientID, exchangeID); err != nil {
			r.logger.Error("order id persist failed",
				"client_id", clientID,
				"exchange_id", exchangeID,
				"error", err)
		}
	}
}

// Lookup returns the exchange id recorded for clientID.
func (r *Registry) Lookup(clientID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[clientID]
	return id, ok
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// Close closes the backing store, if any.
func (r *Registry) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}
