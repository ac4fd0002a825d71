package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrTransport wraps every error caused by the socket itself.
var ErrTransport = errors.New("transport error")

// Sender writes frames on the session's socket.
type Sender interface {
	Send(data []byte) error
}

// Handler reacts to a session's lifecycle. Both methods run on the session
// goroutine; a returned error ends the session and is returned by Run as is.
type Handler interface {
	// OnOpen runs once after the socket is connected.
	OnOpen(ctx context.Context, s Sender) error

	// OnMessage runs for every inbound frame, in arrival order.
	OnMessage(ctx context.Context, msg Message) error
}

// Run connects c and drives h until ctx is canceled (returns nil), the socket
// fails (returns an error wrapping ErrTransport) or h returns an error.
// The client is closed before Run returns.
func Run(ctx context.Context, c Client, h Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if err := c.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w: connect: %v", ErrTransport, err)
	}
	defer c.Close()

	if err := h.OnOpen(ctx, c); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			logger.Debug("session canceled")
			return nil

		case err := <-c.Errors():
			// frames read before the failure are still delivered
			if herr := drain(ctx, c, h); herr != nil {
				return herr
			}
			return fmt.Errorf("%w: %v", ErrTransport, err)

		case msg := <-c.Messages():
			if err := h.OnMessage(ctx, msg); err != nil {
				return err
			}
		}
	}
}

func drain(ctx context.Context, c Client, h Handler) error {
	for {
		select {
		case msg := <-c.Messages():
			if err := h.OnMessage(ctx, msg); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}
