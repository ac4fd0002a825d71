// Package poller periodically checks account state over the REST side of an
// exchange client.
//
// Each cycle issues a Ping and a Balances request concurrently, records the
// round-trip latency and the latest balances, and hands the balances to an
// optional handler. Failures are logged and kept in the snapshot; the next
// cycle retries.
package poller
