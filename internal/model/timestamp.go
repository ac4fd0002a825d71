package model

import "time"

// Timestamp is milliseconds since Unix epoch.
type Timestamp int64

// TimestampOf converts t to a Timestamp.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp(t.UnixMilli())
}

// Time converts ts back to a time.Time.
func (ts Timestamp) Time() time.Time {
	return time.UnixMilli(int64(ts))
}

// Timestamped wraps a value with the time it was produced.
type Timestamped[T any] struct {
	Timestamp Timestamp `json:"timestamp"`
	Value     T         `json:"value"`
}

// WithTimestamp stamps v with an exchange-supplied timestamp.
func WithTimestamp[T any](v T, ts Timestamp) Timestamped[T] {
	return Timestamped[T]{Timestamp: ts, Value: v}
}

// Stamped stamps v with the local wall clock.
func Stamped[T any](v T) Timestamped[T] {
	return WithTimestamp(v, TimestampOf(time.Now()))
}
