package api

import (
	"errors"
	"fmt"

	"github.com/rickgao/tradewire/internal/connection"
)

// Stream errors. All of them are connection-fatal.
var (
	ErrTransport    = connection.ErrTransport
	ErrDecode       = errors.New("decode error")
	ErrProtocol     = errors.New("protocol error")
	ErrSignature    = errors.New("signature error")
	ErrSlowConsumer = errors.New("slow consumer")
)

// Request errors.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidOrder        = errors.New("invalid order")
	ErrOrderNotFound       = errors.New("order not found")
	ErrSymbolNotFound      = errors.New("symbol not found")
)

// ProtocolError is an explicit error frame sent by the exchange.
type ProtocolError struct {
	Message string
	Reason  string
	Raw     string
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Message != "" && e.Reason != "":
		return fmt.Sprintf("protocol error: %s (%s)", e.Message, e.Reason)
	case e.Message != "":
		return "protocol error: " + e.Message
	default:
		return "protocol error: " + e.Raw
	}
}

// Is reports whether target is ErrProtocol.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// DecodeError wraps a frame that could not be decoded.
func DecodeError(tag string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrDecode, tag, err)
}
