package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/rs/xid"

	"github.com/rickgao/tradewire/internal/model"
	"github.com/rickgao/tradewire/internal/queue"
)

// StreamConfig bounds the outbound notification queue of a Stream.
type StreamConfig struct {
	// MaxPending closes the stream with ErrSlowConsumer once more than this
	// many notifications wait for the consumer. Zero means unbounded.
	MaxPending int

	// WarnPending logs a warning every time the backlog grows by this many
	// notifications. Zero disables the warning.
	WarnPending int

	Logger *slog.Logger
}

// Emitter publishes notifications from a stream's connection goroutine.
type Emitter interface {
	Emit(n model.Notification) error
}

// RunFunc is the body of a stream. It returns nil when ctx is canceled and
// the terminal error otherwise.
type RunFunc func(ctx context.Context, emit Emitter) error

// Stream is the handle to one streaming connection. The connection lives
// until Close is called, the parent context is canceled, or it fails.
//
// Notifications are delivered in arrival order. The channel returned by
// Notifications is closed once the connection has ended and every pending
// notification has been received, or as soon as Close is called.
type Stream struct {
	id     string
	symbol model.Symbol
	flags  model.NotificationFlags
	cfg    StreamConfig
	logger *slog.Logger

	queue *queue.Growable[model.Notification]
	out   chan model.Notification

	cancel   context.CancelFunc
	done     chan struct{}
	pumpDone chan struct{}

	mu  sync.Mutex
	err error
}

// NewStream starts run on its own goroutine and returns its handle.
func NewStream(ctx context.Context, symbol model.Symbol, flags model.NotificationFlags, cfg StreamConfig, run RunFunc) *Stream {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		id:       xid.New().String(),
		symbol:   symbol,
		flags:    flags,
		cfg:      cfg,
		queue:    queue.NewGrowable[model.Notification](64),
		out:      make(chan model.Notification),
		cancel:   cancel,
		done:     make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
	s.logger = logger.With("stream_id", s.id, "symbol", symbol.Name())

	go s.run(ctx, run)
	go s.pump(ctx)

	return s
}

// ID returns the unique id of this stream.
func (s *Stream) ID() string { return s.id }

// Symbol returns the streamed symbol.
func (s *Stream) Symbol() model.Symbol { return s.symbol }

// Flags returns the subscribed notification categories.
func (s *Stream) Flags() model.NotificationFlags { return s.flags }

// Notifications returns the outbound channel.
func (s *Stream) Notifications() <-chan model.Notification { return s.out }

// Done is closed when the connection goroutine has returned.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Err returns the error that ended the connection. It is nil while the
// stream is running and after a clean Close.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stats returns outbound queue counters.
func (s *Stream) Stats() queue.Stats { return s.queue.Stats() }

// Close stops the connection and waits for its goroutine to exit.
func (s *Stream) Close() error {
	s.cancel()
	<-s.done
	<-s.pumpDone
	return nil
}

// Emit queues n for the consumer. Notifications outside the stream's
// flags are dropped.
func (s *Stream) Emit(n model.Notification) error {
	if !s.flags.Intersects(n.Kind.Flag()) {
		return nil
	}

	pending, ok := s.queue.Push(n)
	if !ok {
		return queue.ErrClosed
	}

	if s.cfg.WarnPending > 0 && pending%s.cfg.WarnPending == 0 {
		s.logger.Warn("notification backlog growing", "pending", pending)
	}
	if s.cfg.MaxPending > 0 && pending > s.cfg.MaxPending {
		return ErrSlowConsumer
	}
	return nil
}

func (s *Stream) run(ctx context.Context, run RunFunc) {
	defer close(s.done)
	defer s.queue.Close()

	s.logger.Info("stream started", "flags", s.flags.String())

	err := run(ctx, s)
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		err = nil
	}

	if err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.logger.Error("stream terminated", "error", err)
		return
	}
	s.logger.Info("stream closed")
}

// pump moves notifications from the unbounded queue to the consumer channel.
func (s *Stream) pump(ctx context.Context) {
	defer close(s.pumpDone)
	defer close(s.out)

	for {
		n, err := s.queue.Pop(ctx)
		if err != nil {
			return
		}
		select {
		case s.out <- n:
		case <-ctx.Done():
			return
		}
	}
}
