// Package journal persists stream notifications to PostgreSQL in batches.
//
// Notifications are append-only. Prices and sizes are stored as canonical
// decimal strings so rows stay readable without the symbol's tick sizes.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/tradewire/internal/model"
	"github.com/rickgao/tradewire/internal/queue"
)

// Schema creates the notifications table.
const Schema = `
CREATE TABLE IF NOT EXISTS notifications (
	stream_id   TEXT   NOT NULL,
	symbol      TEXT   NOT NULL,
	kind        TEXT   NOT NULL,
	order_id    TEXT,
	exchange_ts BIGINT NOT NULL,
	received_at BIGINT NOT NULL,
	payload     JSONB  NOT NULL
);
CREATE INDEX IF NOT EXISTS notifications_symbol_ts ON notifications (symbol, exchange_ts);
CREATE INDEX IF NOT EXISTS notifications_order_id ON notifications (order_id) WHERE order_id IS NOT NULL;
`

const insertNotification = `
	INSERT INTO notifications (stream_id, symbol, kind, order_id, exchange_ts, received_at, payload)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// DB is the subset of *pgxpool.Pool used by the journal.
type DB interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EnsureSchema creates the notifications table if it does not exist.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create notifications schema: %w", err)
	}
	return nil
}

// Config controls batching.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int // Initial queue capacity
}

// DefaultConfig returns the default batching settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:     1000,
		FlushInterval: time.Second,
		BufferSize:    1024,
	}
}

// Metrics counts journal activity.
type Metrics struct {
	Appended int64
	Rejected int64 // Appends after Stop or that failed to encode
	Inserts  int64
	Flushes  int64
	Errors   int64
}

// Record is one notification as received on a stream.
type Record struct {
	StreamID     string
	Symbol       model.Symbol
	Notification model.Notification
	ReceivedAt   time.Time
}

type notificationRow struct {
	StreamID   string
	Symbol     string
	Kind       string
	OrderID    *string
	ExchangeTs int64
	ReceivedAt int64 // µs
	Payload    []byte
}

// Journal consumes Records and writes them to the notifications table.
type Journal struct {
	cfg    Config
	logger *slog.Logger

	input *queue.Growable[Record]
	db    DB

	// Batching
	batch       []notificationRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// New creates a Journal.
func New(cfg Config, db DB, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	d := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = d.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = d.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = d.BufferSize
	}
	return &Journal{
		cfg:    cfg,
		input:  queue.NewGrowable[Record](cfg.BufferSize),
		db:     db,
		logger: logger.With("component", "journal"),
		batch:  make([]notificationRow, 0, cfg.BatchSize),
	}
}

// Append queues a record. It never blocks and returns false once the journal is stopped.
func (j *Journal) Append(r Record) bool {
	_, ok := j.input.Push(r)

	j.batchMu.Lock()
	if ok {
		j.metrics.Appended++
	} else {
		j.metrics.Rejected++
	}
	j.batchMu.Unlock()
	return ok
}

// Start begins consuming records and writing to the database.
func (j *Journal) Start(ctx context.Context) error {
	j.ctx, j.cancel = context.WithCancel(ctx)
	j.flushTicker = time.NewTicker(j.cfg.FlushInterval)

	j.wg.Add(1)
	go j.consumeLoop()

	j.wg.Add(1)
	go j.flushLoop()

	j.logger.Info("journal started",
		"batch_size", j.cfg.BatchSize,
		"flush_interval", j.cfg.FlushInterval,
	)
	return nil
}

// Stop drains queued records and writes them before returning.
func (j *Journal) Stop(ctx context.Context) error {
	j.logger.Info("stopping journal")

	j.input.Close()
	if j.cancel != nil {
		j.cancel()
	}
	if j.flushTicker != nil {
		j.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		j.logger.Warn("journal stop timed out")
		return ctx.Err()
	}

	for _, r := range j.input.PopBatch(0) {
		j.handleRecord(ctx, r)
	}
	err := j.flush(ctx)

	j.logger.Info("journal stopped", "error", err)
	return err
}

// Stats returns current metrics.
func (j *Journal) Stats() Metrics {
	j.batchMu.Lock()
	defer j.batchMu.Unlock()
	return j.metrics
}

// Pending returns the number of queued records not yet batched.
func (j *Journal) Pending() int {
	return j.input.Len()
}

func (j *Journal) consumeLoop() {
	defer j.wg.Done()

	for {
		r, err := j.input.Pop(j.ctx)
		if err != nil {
			return
		}
		j.handleRecord(j.ctx, r)
	}
}

func (j *Journal) flushLoop() {
	defer j.wg.Done()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-j.flushTicker.C:
			_ = j.flush(j.ctx)
		}
	}
}

func (j *Journal) handleRecord(ctx context.Context, r Record) {
	row, err := transform(r)
	if err != nil {
		j.logger.Warn("dropping notification", "error", err, "kind", r.Notification.Kind)
		j.batchMu.Lock()
		j.metrics.Rejected++
		j.batchMu.Unlock()
		return
	}

	j.batchMu.Lock()
	j.batch = append(j.batch, row)
	shouldFlush := len(j.batch) >= j.cfg.BatchSize
	j.batchMu.Unlock()

	if shouldFlush {
		_ = j.flush(ctx)
	}
}

func (j *Journal) flush(ctx context.Context) error {
	j.batchMu.Lock()
	if len(j.batch) == 0 {
		j.batchMu.Unlock()
		return nil
	}

	// Take ownership of current batch
	batch := j.batch
	j.batch = make([]notificationRow, 0, j.cfg.BatchSize)
	j.batchMu.Unlock()

	start := time.Now()

	if err := j.batchInsert(ctx, batch); err != nil {
		j.logger.Error("batch insert failed", "error", err, "count", len(batch))
		j.batchMu.Lock()
		j.metrics.Errors++
		j.batchMu.Unlock()
		return err
	}

	j.batchMu.Lock()
	j.metrics.Inserts += int64(len(batch))
	j.metrics.Flushes++
	j.batchMu.Unlock()

	j.logger.Debug("flushed notifications",
		"count", len(batch),
		"duration", time.Since(start),
	)
	return nil
}

func (j *Journal) batchInsert(ctx context.Context, rows []notificationRow) error {
	if j.db == nil {
		return errors.New("journal has no database")
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertNotification,
			r.StreamID, r.Symbol, r.Kind, r.OrderID, r.ExchangeTs, r.ReceivedAt, r.Payload)
	}

	results := j.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func transform(r Record) (notificationRow, error) {
	payload, err := encodePayload(r.Symbol, r.Notification)
	if err != nil {
		return notificationRow{}, err
	}

	row := notificationRow{
		StreamID:   r.StreamID,
		Symbol:     r.Symbol.Name(),
		Kind:       r.Notification.Kind.String(),
		ExchangeTs: int64(r.Notification.Timestamp()),
		ReceivedAt: r.ReceivedAt.UnixMicro(),
		Payload:    payload,
	}
	if id := r.Notification.OrderID(); id != "" {
		row.OrderID = &id
	}
	return row, nil
}
