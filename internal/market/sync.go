package market

import (
	"context"
	"fmt"
	"time"

	"github.com/rickgao/tradewire/internal/model"
)

// Load fetches the symbol table and replaces the current one.
func (r *Registry) Load(ctx context.Context) error {
	if r.cfg.InitialLoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.InitialLoadTimeout)
		defer cancel()
	}

	start := time.Now()
	symbols, err := r.source.FetchSymbols(ctx)
	if err != nil {
		return fmt.Errorf("load symbols: %w", err)
	}

	r.mu.Lock()
	r.symbols = make(map[string]model.Symbol, len(symbols))
	for _, s := range symbols {
		r.symbols[s.Name()] = s
	}
	r.lastSyncAt = time.Now()
	r.mu.Unlock()

	r.logger.Info("symbol table loaded",
		"symbols", len(symbols),
		"duration", time.Since(start),
	)
	return nil
}

func (r *Registry) reconciliationLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile merges a fresh fetch into the table. Symbols missing from the
// fetch are kept, since open streams may still reference them.
func (r *Registry) reconcile(ctx context.Context) {
	start := time.Now()

	symbols, err := r.source.FetchSymbols(ctx)
	if err != nil {
		r.logger.Error("symbol reconciliation failed", "error", err)
		return
	}

	var created, changed int

	r.mu.Lock()
	for _, s := range symbols {
		existing, ok := r.symbols[s.Name()]
		switch {
		case !ok:
			created++
		case existing.PriceTick().String() != s.PriceTick().String() ||
			existing.SizeTick().String() != s.SizeTick().String():
			changed++
			r.logger.Warn("symbol tick changed",
				"symbol", s.Name(),
				"old_price_tick", existing.PriceTick().String(),
				"new_price_tick", s.PriceTick().String(),
				"old_size_tick", existing.SizeTick().String(),
				"new_size_tick", s.SizeTick().String(),
			)
		default:
			continue
		}
		r.symbols[s.Name()] = s
	}
	r.lastSyncAt = time.Now()
	r.mu.Unlock()

	if created > 0 || changed > 0 {
		r.logger.Info("reconciliation found changes",
			"created", created,
			"changed", changed,
			"duration", time.Since(start),
		)
	} else {
		r.logger.Debug("reconciliation complete",
			"symbols", len(symbols),
			"duration", time.Since(start),
		)
	}
}
