package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/tradewire/internal/api"
	"github.com/rickgao/tradewire/internal/model"
)

// Source is the part of api.Client the poller uses.
type Source interface {
	Ping(ctx context.Context) *api.Future[model.Timestamped[struct{}]]
	Balances(ctx context.Context) *api.Future[model.Balances]
}

// BalanceHandler receives fetched balances.
type BalanceHandler interface {
	HandleBalances(b model.Timestamped[model.Balances]) error
}

// BalanceHandlerFunc is a function adapter for BalanceHandler.
type BalanceHandlerFunc func(model.Timestamped[model.Balances]) error

func (f BalanceHandlerFunc) HandleBalances(b model.Timestamped[model.Balances]) error {
	return f(b)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval (default: 1m)
	Timeout  time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: time.Minute,
		Timeout:  10 * time.Second,
	}
}

// Snapshot is the result of the most recent poll cycle.
type Snapshot struct {
	Balances   model.Balances  `json:"balances,omitempty"`
	Latency    time.Duration   `json:"latency"`
	ServerTime model.Timestamp `json:"server_time"`
	PolledAt   time.Time       `json:"polled_at"`
	Cycles     int64           `json:"cycles"`
	Errors     int64           `json:"errors"`
	LastError  string          `json:"last_error,omitempty"`
}

// Poller periodically fetches balances and measures latency.
type Poller struct {
	cfg     Config
	source  Source
	handler BalanceHandler
	logger  *slog.Logger

	mu       sync.RWMutex
	snapshot Snapshot

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller. handler may be nil.
func New(cfg Config, source Source, handler BalanceHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	d := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = d.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	return &Poller{
		cfg:     cfg,
		source:  source,
		handler: handler,
		logger:  logger.With("component", "poller"),
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("balance poller started", "interval", p.cfg.Interval)
	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("balance poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the result of the most recent cycle.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.poll(p.ctx)

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll(p.ctx)
		}
	}
}

// poll runs one cycle: ping and balances in flight together.
func (p *Poller) poll(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	pingF := p.source.Ping(ctx)
	balF := p.source.Balances(ctx)

	pong, pingErr := pingF.Wait(ctx)
	latency := time.Since(start)
	balances, balErr := balF.Wait(ctx)

	if parent.Err() != nil {
		return
	}

	p.mu.Lock()
	p.snapshot.Cycles++
	p.snapshot.PolledAt = start
	if pingErr == nil {
		p.snapshot.Latency = latency
		p.snapshot.ServerTime = pong.Timestamp
	}
	if balErr == nil {
		p.snapshot.Balances = balances
	}
	p.snapshot.LastError = ""
	for _, err := range []error{pingErr, balErr} {
		if err != nil {
			p.snapshot.Errors++
			p.snapshot.LastError = err.Error()
		}
	}
	p.mu.Unlock()

	if pingErr != nil {
		p.logger.Warn("ping failed", "err", pingErr)
	}
	if balErr != nil {
		p.logger.Warn("balances failed", "err", balErr)
		return
	}

	if p.handler != nil {
		stamped := model.WithTimestamp(balances, model.TimestampOf(start))
		if err := p.handler.HandleBalances(stamped); err != nil {
			p.logger.Warn("balance handler failed", "err", err)
		}
	}

	p.logger.Debug("poll cycle complete",
		"currencies", len(balances),
		"latency", latency,
	)
}
