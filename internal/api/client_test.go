package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type headerSigner struct {
	calls int32
	err   error
}

func (s *headerSigner) SignRequest(req *http.Request, body []byte) error {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return s.err
	}
	req.Header.Set("X-Test-Sign", req.Method+" "+req.URL.Path+" "+string(body))
	return nil
}

func TestNewTransport(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewTransport("https://api.example.com")

		if c.BaseURL() != "https://api.example.com" {
			t.Errorf("baseURL = %q, want %q", c.BaseURL(), "https://api.example.com")
		}
		if c.Signed() {
			t.Error("Signed() = true without signer")
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
		if c.retryBackoff != time.Second {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, time.Second)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with multiple options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		hc := &http.Client{Timeout: 10 * time.Second}
		c := NewTransport("https://api.example.com",
			WithHTTPClient(hc),
			WithTimeout(15*time.Second),
			WithRetries(10, 500*time.Millisecond),
			WithLogger(logger),
			WithSigner(&headerSigner{}),
			WithUserAgent("ua"),
		)
		if c.httpClient != hc || hc.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 15*time.Second)
		}
		if c.maxRetries != 10 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 10)
		}
		if c.retryBackoff != 500*time.Millisecond {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, 500*time.Millisecond)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
		if !c.Signed() {
			t.Error("Signed() = false with signer")
		}
		if c.userAgent != "ua" {
			t.Errorf("userAgent = %q", c.userAgent)
		}
	})
}

func TestAPIError(t *testing.T) {
	t.Run("message from body", func(t *testing.T) {
		err := newAPIError(400, []byte(`{"message":"Insufficient funds"}`))
		if err.Message != "Insufficient funds" {
			t.Errorf("Message = %q", err.Message)
		}
		if err.Error() != "api error 400: Insufficient funds" {
			t.Errorf("Error() = %q", err.Error())
		}
	})

	t.Run("message from status", func(t *testing.T) {
		err := newAPIError(502, []byte(`<html>bad gateway</html>`))
		if err.Message != "Bad Gateway" {
			t.Errorf("Message = %q", err.Message)
		}
	})

	t.Run("IsRetryable", func(t *testing.T) {
		tests := []struct {
			code     int
			expected bool
		}{
			{500, true},
			{502, true},
			{503, true},
			{429, true},
			{400, false},
			{401, false},
			{404, false},
			{499, false},
		}

		for _, tt := range tests {
			err := &APIError{StatusCode: tt.code}
			if got := err.IsRetryable(); got != tt.expected {
				t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.expected)
			}
		}
	})
}

func TestDoRequest(t *testing.T) {
	t.Run("public request is not signed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Accept") != "application/json" {
				t.Errorf("Accept header = %q", r.Header.Get("Accept"))
			}
			if r.Header.Get("User-Agent") != "tradewire" {
				t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
			}
			if r.Header.Get("X-Test-Sign") != "" {
				t.Error("public request should not be signed")
			}
			w.Write([]byte(`{"status":"ok"}`))
		}))
		defer server.Close()

		signer := &headerSigner{}
		c := NewTransport(server.URL, WithSigner(signer))
		body, err := c.doRequest(context.Background(), http.MethodGet, "/test", nil, nil, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"status":"ok"}` {
			t.Errorf("body = %q", string(body))
		}
		if signer.calls != 0 {
			t.Errorf("signer called %d times", signer.calls)
		}
	})

	t.Run("private request is signed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if got := r.Header.Get("X-Test-Sign"); got != "POST /orders "+string(body) {
				t.Errorf("X-Test-Sign = %q", got)
			}
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewTransport(server.URL, WithSigner(&headerSigner{}))
		_, err := c.doRequest(context.Background(), http.MethodPost, "/orders", nil, []byte(`{"a":1}`), true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("private request without signer", func(t *testing.T) {
		c := NewTransport("http://127.0.0.1:1")
		_, err := c.doRequest(context.Background(), http.MethodGet, "/accounts", nil, nil, true)
		if !errors.Is(err, ErrSignature) {
			t.Errorf("error = %v, want ErrSignature", err)
		}
	})

	t.Run("signer failure", func(t *testing.T) {
		c := NewTransport("http://127.0.0.1:1", WithSigner(&headerSigner{err: errors.New("bad key")}))
		_, err := c.doRequest(context.Background(), http.MethodGet, "/accounts", nil, nil, true)
		if !errors.Is(err, ErrSignature) {
			t.Errorf("error = %v, want ErrSignature", err)
		}
	})

	t.Run("request with query parameters", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("limit") != "10" {
				t.Errorf("limit = %q, want %q", r.URL.Query().Get("limit"), "10")
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewTransport(server.URL)
		_, err := c.doRequest(context.Background(), http.MethodGet, "/test", url.Values{"limit": {"10"}}, nil, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("4xx error returns APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"NotFound"}`))
		}))
		defer server.Close()

		c := NewTransport(server.URL)
		_, err := c.doRequest(context.Background(), http.MethodGet, "/test", nil, nil, false)

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if apiErr.StatusCode != 404 || apiErr.Message != "NotFound" {
			t.Errorf("apiErr = %+v", apiErr)
		}
	})

	t.Run("connection failure is a transport error", func(t *testing.T) {
		c := NewTransport("http://127.0.0.1:1", WithTimeout(200*time.Millisecond))
		_, err := c.doRequest(context.Background(), http.MethodGet, "/test", nil, nil, false)
		if !errors.Is(err, ErrTransport) {
			t.Errorf("error = %v, want ErrTransport", err)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
		}))
		defer server.Close()

		c := NewTransport(server.URL)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.doRequest(ctx, http.MethodGet, "/test", nil, nil, false)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "context canceled") {
			t.Errorf("error should contain 'context canceled', got %v", err)
		}
	})
}

func TestDoWithRetry(t *testing.T) {
	t.Run("retries on 5xx and succeeds", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		c := NewTransport(server.URL, WithRetries(3, 10*time.Millisecond))
		body, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"ok":true}` {
			t.Errorf("body = %q", string(body))
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("does not retry 4xx", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		c := NewTransport(server.URL, WithRetries(3, 10*time.Millisecond))
		if _, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil, false); err == nil {
			t.Fatal("expected error")
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := NewTransport(server.URL, WithRetries(2, 10*time.Millisecond))
		_, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil, false)
		if err == nil || !strings.Contains(err.Error(), "max retries exceeded") {
			t.Fatalf("error = %v, want max retries exceeded", err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != 429 {
			t.Errorf("wrapped error = %v", err)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})
}

func TestTransportMethods(t *testing.T) {
	var posts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/time":
			w.Write([]byte(`{"iso":"2024-01-01T00:00:00Z","epoch":1704067200.0}`))
		case r.Method == http.MethodPost && r.URL.Path == "/orders":
			atomic.AddInt32(&posts, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		case r.Method == http.MethodDelete:
			w.Write([]byte(`["abc"]`))
		case r.URL.Path == "/bad":
			w.Write([]byte(`not json`))
		}
	}))
	defer server.Close()

	c := NewTransport(server.URL, WithSigner(&headerSigner{}), WithRetries(2, 10*time.Millisecond))
	ctx := context.Background()

	var tm struct {
		Epoch float64 `json:"epoch"`
	}
	if err := c.Get(ctx, "/time", nil, &tm); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tm.Epoch != 1704067200 {
		t.Errorf("epoch = %v", tm.Epoch)
	}

	// POST must not be retried
	err := c.Post(ctx, "/orders", map[string]string{"size": "1"}, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 503 {
		t.Errorf("Post error = %v", err)
	}
	if posts != 1 {
		t.Errorf("posts = %d, want 1", posts)
	}

	var ids []string
	if err := c.Delete(ctx, "/orders/abc", &ids); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(ids) != 1 || ids[0] != "abc" {
		t.Errorf("ids = %v", ids)
	}

	var out json.RawMessage
	if err := c.GetPrivate(ctx, "/bad", nil, &out); !errors.Is(err, ErrDecode) {
		t.Errorf("GetPrivate error = %v, want ErrDecode", err)
	}
}
