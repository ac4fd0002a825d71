package connection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recordingHandler struct {
	mu       sync.Mutex
	opened   bool
	messages []string

	openFrame []byte
	openErr   error
	stopAfter int
	stopErr   error
}

func (h *recordingHandler) OnOpen(ctx context.Context, s Sender) error {
	h.mu.Lock()
	h.opened = true
	h.mu.Unlock()
	if h.openErr != nil {
		return h.openErr
	}
	if h.openFrame != nil {
		return s.Send(h.openFrame)
	}
	return nil
}

func (h *recordingHandler) OnMessage(ctx context.Context, msg Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, string(msg.Data))
	if h.stopAfter > 0 && len(h.messages) >= h.stopAfter {
		return h.stopErr
	}
	return nil
}

func (h *recordingHandler) received() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.messages...)
}

func TestRun_OpenThenMessages(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil || string(msg) != "hello" {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte("one"))
		conn.WriteMessage(websocket.TextMessage, []byte("two"))
		readUntilClosed(conn)
	})
	defer server.Close()

	errStop := errors.New("stop")
	h := &recordingHandler{openFrame: []byte("hello"), stopAfter: 2, stopErr: errStop}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := Run(ctx, NewClient(testConfig(server), nil), h, nil)
	if !errors.Is(err, errStop) {
		t.Fatalf("Run() error = %v, want handler error", err)
	}

	got := h.received()
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("received %v, want [one two]", got)
	}
}

func TestRun_OpenError(t *testing.T) {
	server := mockWSServer(t, readUntilClosed)
	defer server.Close()

	errSign := errors.New("sign failed")
	h := &recordingHandler{openErr: errSign}

	err := Run(context.Background(), NewClient(testConfig(server), nil), h, nil)
	if !errors.Is(err, errSign) {
		t.Fatalf("Run() error = %v, want open error", err)
	}
}

func TestRun_CancelReturnsNil(t *testing.T) {
	server := mockWSServer(t, readUntilClosed)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, NewClient(testConfig(server), nil), &recordingHandler{}, nil)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_TransportErrorDeliversPendingFrames(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("last words"))
		// handler returns and the deferred Close drops the socket
	})
	defer server.Close()

	h := &recordingHandler{}
	err := Run(context.Background(), NewClient(testConfig(server), nil), h, nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Run() error = %v, want ErrTransport", err)
	}

	got := h.received()
	if len(got) != 1 || got[0] != "last words" {
		t.Errorf("received %v, want [last words]", got)
	}
}

func TestRun_ConnectFailure(t *testing.T) {
	client := NewClient(ClientConfig{URL: "ws://127.0.0.1:1", HandshakeTimeout: 200 * time.Millisecond}, nil)

	h := &recordingHandler{}
	err := Run(context.Background(), client, h, nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Run() error = %v, want ErrTransport", err)
	}
	if h.opened {
		t.Error("OnOpen must not run when connect fails")
	}
}
