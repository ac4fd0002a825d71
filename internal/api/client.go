package api

import (
	"log/slog"
	"net/http"
	"time"
)

// Signer authenticates an outgoing REST request.
type Signer interface {
	SignRequest(req *http.Request, body []byte) error
}

// Transport is a JSON-over-HTTP client for one exchange REST API.
type Transport struct {
	baseURL    string
	signer     Signer
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string

	maxRetries   int
	retryBackoff time.Duration
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// NewTransport creates a new REST transport.
func NewTransport(baseURL string, opts ...TransportOption) *Transport {
	t := &Transport{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		userAgent:    "tradewire",
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// BaseURL returns the API root.
func (t *Transport) BaseURL() string { return t.baseURL }

// Signed reports whether private endpoints can be called.
func (t *Transport) Signed() bool { return t.signer != nil }

// WithSigner enables authenticated requests.
func WithSigner(s Signer) TransportOption {
	return func(t *Transport) {
		t.signer = s
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) TransportOption {
	return func(t *Transport) {
		t.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration for idempotent requests.
func WithRetries(max int, backoff time.Duration) TransportOption {
	return func(t *Transport) {
		t.maxRetries = max
		t.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) TransportOption {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) TransportOption {
	return func(t *Transport) {
		t.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header. Some exchanges reject requests without one.
func WithUserAgent(ua string) TransportOption {
	return func(t *Transport) {
		t.userAgent = ua
	}
}
