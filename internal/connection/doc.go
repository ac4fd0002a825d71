// Package connection implements the WebSocket transport used by exchange streams.
//
// A Client owns one socket: it dials, answers server pings, sends periodic
// keepalive pings, and delivers every inbound frame with its local receive
// time. Run drives a Client through one session: connect, let the Handler
// send its opening frames, then hand every frame to the Handler until the
// context is canceled, the socket fails, or the Handler returns an error.
// Reconnection is left to the caller.
package connection
