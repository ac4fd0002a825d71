// Package auth provides GDAX (Coinbase Exchange) API authentication using
// HMAC-SHA256 signatures.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrMissingCredentials is returned when a required credential field is empty.
var ErrMissingCredentials = errors.New("missing credentials")

// Credentials holds the API key triple issued by the exchange.
type Credentials struct {
	APIKey     string // Public key sent as CB-ACCESS-KEY
	Secret     []byte // Decoded HMAC secret
	Passphrase string // Chosen when the key was created
}

// LoadCredentials builds credentials from the raw dashboard values.
// secret is the base64 string shown by the exchange.
func LoadCredentials(apiKey, secret, passphrase string) (*Credentials, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrMissingCredentials)
	}
	if secret == "" {
		return nil, fmt.Errorf("%w: secret is required", ErrMissingCredentials)
	}
	if passphrase == "" {
		return nil, fmt.Errorf("%w: passphrase is required", ErrMissingCredentials)
	}

	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}

	return &Credentials{
		APIKey:     apiKey,
		Secret:     key,
		Passphrase: passphrase,
	}, nil
}

// Timestamp formats t as fractional Unix seconds, the form the exchange
// expects in both the CB-ACCESS-TIMESTAMP header and the subscribe frame.
func Timestamp(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}

// FormatTimestamp renders a Timestamp exactly as encoding/json would.
func FormatTimestamp(ts float64) string {
	return strconv.FormatFloat(ts, 'f', -1, 64)
}

// Sign returns base64(HMAC-SHA256(secret, timestamp + method + path + body)).
func (c *Credentials) Sign(timestamp, method, path, body string) (string, error) {
	if c == nil || len(c.Secret) == 0 {
		return "", fmt.Errorf("%w: secret is required", ErrMissingCredentials)
	}

	mac := hmac.New(sha256.New, c.Secret)
	if _, err := mac.Write([]byte(timestamp + method + path + body)); err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// SignRequest sets the CB-ACCESS-* headers on a REST request.
func (c *Credentials) SignRequest(req *http.Request, body []byte) error {
	ts := FormatTimestamp(Timestamp(time.Now()))

	path := req.URL.Path
	if req.URL.RawQuery != "" {
		path += "?" + req.URL.RawQuery
	}

	signature, err := c.Sign(ts, req.Method, path, string(body))
	if err != nil {
		return err
	}

	req.Header.Set("CB-ACCESS-KEY", c.APIKey)
	req.Header.Set("CB-ACCESS-SIGN", signature)
	req.Header.Set("CB-ACCESS-TIMESTAMP", ts)
	req.Header.Set("CB-ACCESS-PASSPHRASE", c.Passphrase)
	return nil
}

// WebSocketPath is the path used for WebSocket signature generation.
const WebSocketPath = "/users/self/verify"

// WebSocketAuth is the authentication block embedded in a subscribe frame.
type WebSocketAuth struct {
	Key        string  `json:"key"`
	Signature  string  `json:"signature"`
	Timestamp  float64 `json:"timestamp"`
	Passphrase string  `json:"passphrase"`
}

// SignWebSocket signs the subscribe handshake at time now.
func (c *Credentials) SignWebSocket(now time.Time) (WebSocketAuth, error) {
	ts := Timestamp(now)
	signature, err := c.Sign(FormatTimestamp(ts), http.MethodGet, WebSocketPath, "")
	if err != nil {
		return WebSocketAuth{}, err
	}
	return WebSocketAuth{
		Key:        c.APIKey,
		Signature:  signature,
		Timestamp:  ts,
		Passphrase: c.Passphrase,
	}, nil
}
