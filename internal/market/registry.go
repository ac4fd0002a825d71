// Package market maintains the symbol table of one exchange.
//
// The table is loaded once, synchronously, before an exchange client is
// usable, and can optionally be refreshed in the background so that newly
// listed instruments and tick size changes are picked up.
package market

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rickgao/tradewire/internal/model"
)

// Source fetches the full list of tradable symbols.
type Source interface {
	FetchSymbols(ctx context.Context) ([]model.Symbol, error)
}

// Config holds symbol registry configuration.
type Config struct {
	ReconcileInterval  time.Duration // Zero disables background refresh
	InitialLoadTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReconcileInterval:  0,
		InitialLoadTimeout: 30 * time.Second,
	}
}

// Registry is a concurrent name -> Symbol table.
type Registry struct {
	cfg    Config
	source Source
	logger *slog.Logger

	mu         sync.RWMutex
	symbols    map[string]model.Symbol
	lastSyncAt time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates an empty symbol registry.
func NewRegistry(cfg Config, source Source, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		cfg:     cfg,
		source:  source,
		logger:  logger,
		symbols: make(map[string]model.Symbol),
	}
}

// Start loads the table (blocking) and, if configured, refreshes it in the
// background until Stop.
func (r *Registry) Start(ctx context.Context) error {
	if err := r.Load(ctx); err != nil {
		return err
	}

	if r.cfg.ReconcileInterval <= 0 {
		return nil
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.reconciliationLoop(ctx)
	}()

	return nil
}

// Stop gracefully shuts down background refresh.
func (r *Registry) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Debug("symbol registry stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Find returns the symbol with the given exchange name.
func (r *Registry) Find(name string) (model.Symbol, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.symbols[name]
	return s, ok
}

// Symbols returns every known symbol sorted by name.
func (r *Registry) Symbols() []model.Symbol {
	r.mu.RLock()
	out := make([]model.Symbol, 0, len(r.symbols))
	for _, s := range r.symbols {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Len returns the number of known symbols.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.symbols)
}

// LastSync returns when the table was last refreshed.
func (r *Registry) LastSync() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSyncAt
}
