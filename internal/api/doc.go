// Package api defines the exchange-agnostic request surface of tradewire.
//
// Every exchange adapter implements Client. Streaming subscriptions are
// returned as a *Stream that owns its connection goroutine; REST requests
// run on a shared Pool and are returned as a *Future. Transport is the
// signed HTTP layer adapters build their REST endpoints on.
//
// Error kinds are sentinel values matched with errors.Is:
//   - ErrTransport: connection setup or socket I/O failure
//   - ErrDecode: malformed or schema-mismatched frame
//   - ErrProtocol: the exchange sent an explicit error frame
//   - ErrSignature: credential signing failed
//   - ErrSlowConsumer: the stream consumer fell further behind than allowed
//
// Tick conversion failures match tick.ErrConversion.
package api
