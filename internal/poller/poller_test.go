package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/tradewire/internal/api"
	"github.com/rickgao/tradewire/internal/model"
)

// mockSource answers every request immediately.
type mockSource struct {
	pings      atomic.Int32
	balances   atomic.Int32
	pingErr    error
	balanceErr error
}

func (m *mockSource) Ping(context.Context) *api.Future[model.Timestamped[struct{}]] {
	m.pings.Add(1)
	return api.Resolved(model.WithTimestamp(struct{}{}, 1700000000000), m.pingErr)
}

func (m *mockSource) Balances(context.Context) *api.Future[model.Balances] {
	m.balances.Add(1)
	if m.balanceErr != nil {
		return api.Resolved[model.Balances](nil, m.balanceErr)
	}
	return api.Resolved(model.Balances{
		"BTC": {Free: "1.5", Locked: "0.5"},
		"USD": {Free: "100", Locked: "0"},
	}, nil)
}

func TestPoller_Poll(t *testing.T) {
	src := &mockSource{}

	var got model.Timestamped[model.Balances]
	handler := BalanceHandlerFunc(func(b model.Timestamped[model.Balances]) error {
		got = b
		return nil
	})

	p := New(Config{Interval: time.Hour, Timeout: time.Second}, src, handler, nil)
	p.poll(context.Background())

	if src.pings.Load() != 1 || src.balances.Load() != 1 {
		t.Fatalf("requests = %d pings, %d balances, want 1 each", src.pings.Load(), src.balances.Load())
	}
	if got.Value["BTC"].Free != "1.5" {
		t.Errorf("handler BTC free = %q, want 1.5", got.Value["BTC"].Free)
	}

	snap := p.Snapshot()
	if snap.Cycles != 1 {
		t.Errorf("Cycles = %d, want 1", snap.Cycles)
	}
	if snap.Errors != 0 || snap.LastError != "" {
		t.Errorf("unexpected errors: %d %q", snap.Errors, snap.LastError)
	}
	if snap.ServerTime != 1700000000000 {
		t.Errorf("ServerTime = %d", snap.ServerTime)
	}
	if len(snap.Balances) != 2 {
		t.Errorf("Balances = %v", snap.Balances)
	}
}

func TestPoller_PollErrors(t *testing.T) {
	src := &mockSource{balanceErr: errors.New("401 unauthorized")}

	var called atomic.Bool
	handler := BalanceHandlerFunc(func(model.Timestamped[model.Balances]) error {
		called.Store(true)
		return nil
	})

	p := New(Config{Interval: time.Hour, Timeout: time.Second}, src, handler, nil)
	p.poll(context.Background())

	if called.Load() {
		t.Error("handler called despite balance error")
	}
	snap := p.Snapshot()
	if snap.Errors != 1 {
		t.Errorf("Errors = %d, want 1", snap.Errors)
	}
	if snap.LastError != "401 unauthorized" {
		t.Errorf("LastError = %q", snap.LastError)
	}
	if snap.ServerTime == 0 {
		t.Error("ping result not recorded")
	}
}

func TestPoller_StartStop(t *testing.T) {
	src := &mockSource{}

	cfg := Config{
		Interval: 20 * time.Millisecond,
		Timeout:  time.Second,
	}
	p := New(cfg, src, nil, nil)

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Wait for a few polls.
	time.Sleep(70 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := src.balances.Load(); got < 2 {
		t.Errorf("balances polled %d times, want >= 2", got)
	}
}

func TestPoller_Defaults(t *testing.T) {
	p := New(Config{}, &mockSource{}, nil, nil)
	if p.cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want %+v", p.cfg, DefaultConfig())
	}
}
