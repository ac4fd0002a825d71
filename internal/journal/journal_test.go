package journal

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/tradewire/internal/model"
	"github.com/rickgao/tradewire/internal/tick"
)

var testSymbol = model.NewSymbol("BTC-USD", tick.MustNew("0.01"), tick.MustNew("0.00000001"))

type fakeResults struct {
	n   int
	err error
}

func (r *fakeResults) Exec() (pgconn.CommandTag, error) {
	if r.err != nil {
		return pgconn.CommandTag{}, r.err
	}
	r.n++
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}
func (r *fakeResults) Query() (pgx.Rows, error) { return nil, errors.New("not supported") }
func (r *fakeResults) QueryRow() pgx.Row        { return nil }
func (r *fakeResults) Close() error             { return nil }

type fakeDB struct {
	mu      sync.Mutex
	rows    [][]any
	execSQL []string
	err     error
}

func (db *fakeDB) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.err == nil {
		for _, q := range b.QueuedQueries {
			db.rows = append(db.rows, q.Arguments)
		}
	}
	return &fakeResults{err: db.err}
}

func (db *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.execSQL = append(db.execSQL, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (db *fakeDB) inserted() [][]any {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([][]any(nil), db.rows...)
}

func tradeRecord(ts model.Timestamp) Record {
	return Record{
		StreamID: "stream-1",
		Symbol:   testSymbol,
		Notification: model.TradeNotification(model.WithTimestamp(
			model.Trade{Price: 1234567, Size: 150000000, MakerSide: model.Ask}, ts)),
		ReceivedAt: time.UnixMilli(int64(ts) + 3),
	}
}

func TestTransform_Trade(t *testing.T) {
	row, err := transform(tradeRecord(1700000000000))
	require.NoError(t, err)

	assert.Equal(t, "stream-1", row.StreamID)
	assert.Equal(t, "BTC-USD", row.Symbol)
	assert.Equal(t, "trade", row.Kind)
	assert.Nil(t, row.OrderID)
	assert.Equal(t, int64(1700000000000), row.ExchangeTs)
	assert.Equal(t, int64(1700000000003000), row.ReceivedAt)
	assert.JSONEq(t, `{"price":"12345.67","size":"1.5","maker_side":"ask"}`, string(row.Payload))
}

func TestTransform_OrderKinds(t *testing.T) {
	tests := []struct {
		name    string
		n       model.Notification
		kind    string
		payload string
	}{
		{
			name: "confirmation",
			n: model.OrderConfirmationNotification(model.WithTimestamp(
				model.OrderConfirmation{OrderID: "o1", Price: 100, Size: 200000000, Side: model.Bid}, 1)),
			kind:    "order_confirmation",
			payload: `{"order_id":"o1","price":"1","size":"2","side":"bid"}`,
		},
		{
			name: "update",
			n: model.OrderUpdateNotification(model.WithTimestamp(
				model.OrderUpdate{OrderID: "o1", ConsumedSize: 50000000, ConsumedPrice: 100, RemainingSize: 150000000}, 2)),
			kind:    "order_update",
			payload: `{"order_id":"o1","consumed_size":"0.5","consumed_price":"1","remaining_size":"1.5","commission":"0"}`,
		},
		{
			name:    "expiration",
			n:       model.OrderExpirationNotification(model.WithTimestamp(model.OrderExpiration{OrderID: "o1"}, 3)),
			kind:    "order_expiration",
			payload: `{"order_id":"o1"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := transform(Record{StreamID: "s", Symbol: testSymbol, Notification: tt.n})
			require.NoError(t, err)
			assert.Equal(t, tt.kind, row.Kind)
			require.NotNil(t, row.OrderID)
			assert.Equal(t, "o1", *row.OrderID)
			assert.JSONEq(t, tt.payload, string(row.Payload))
		})
	}
}

func TestTransform_LimitUpdates(t *testing.T) {
	n := model.LimitUpdatesNotification(model.WithTimestamp([]model.LimitUpdate{
		{Side: model.Bid, Price: 100, Size: 0},
		{Side: model.Ask, Price: 101, Size: 1},
	}, 5))

	row, err := transform(Record{Symbol: testSymbol, Notification: n})
	require.NoError(t, err)

	var levels []levelPayload
	require.NoError(t, json.Unmarshal(row.Payload, &levels))
	assert.Equal(t, []levelPayload{
		{Side: "bid", Price: "1", Size: "0"},
		{Side: "ask", Price: "1.01", Size: "0.00000001"},
	}, levels)
}

func TestTransform_UnknownKind(t *testing.T) {
	_, err := transform(Record{Symbol: testSymbol, Notification: model.Notification{}})
	assert.Error(t, err)
}

func TestJournal_FlushOnBatchSize(t *testing.T) {
	db := &fakeDB{}
	j := New(Config{BatchSize: 2, FlushInterval: time.Hour}, db, nil)
	require.NoError(t, j.Start(context.Background()))

	assert.True(t, j.Append(tradeRecord(1)))
	assert.True(t, j.Append(tradeRecord(2)))

	require.Eventually(t, func() bool { return len(db.inserted()) == 2 }, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, j.Stop(stopCtx))

	stats := j.Stats()
	assert.Equal(t, int64(2), stats.Appended)
	assert.Equal(t, int64(2), stats.Inserts)
	assert.Equal(t, int64(1), stats.Flushes)

	assert.False(t, j.Append(tradeRecord(3)), "append after stop")
	assert.Equal(t, int64(1), j.Stats().Rejected)
}

func TestJournal_StopFlushesPartialBatch(t *testing.T) {
	db := &fakeDB{}
	j := New(Config{BatchSize: 100, FlushInterval: time.Hour}, db, nil)
	require.NoError(t, j.Start(context.Background()))

	for i := 0; i < 5; i++ {
		j.Append(tradeRecord(model.Timestamp(i)))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, j.Stop(stopCtx))

	rows := db.inserted()
	require.Len(t, rows, 5)
	assert.Equal(t, "stream-1", rows[0][0])
	assert.Equal(t, "trade", rows[0][2])
}

func TestJournal_InsertError(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}
	j := New(Config{BatchSize: 100, FlushInterval: time.Hour}, db, nil)

	j.handleRecord(context.Background(), tradeRecord(1))
	err := j.flush(context.Background())
	require.Error(t, err)

	stats := j.Stats()
	assert.Equal(t, int64(1), stats.Errors)
	assert.Equal(t, int64(0), stats.Inserts)
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, EnsureSchema(context.Background(), db))
	require.Len(t, db.execSQL, 1)
	assert.Contains(t, db.execSQL[0], "CREATE TABLE IF NOT EXISTS notifications")
}
