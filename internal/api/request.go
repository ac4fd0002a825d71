package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"
)

// APIError is a non-2xx REST response.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// errorBody is the common {"message": "..."} error payload.
type errorBody struct {
	Message string `json:"message"`
}

func newAPIError(status int, body []byte) *APIError {
	msg := http.StatusText(status)
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.Message != "" {
		msg = eb.Message
	}
	return &APIError{StatusCode: status, Message: msg, Body: body}
}

// doRequest performs one HTTP request. Private requests are signed.
func (t *Transport) doRequest(ctx context.Context, method, path string, query url.Values, body []byte, private bool) ([]byte, error) {
	fullURL := t.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if private {
		if t.signer == nil {
			return nil, fmt.Errorf("%w: no credentials configured", ErrSignature)
		}
		if err := t.signer.SignRequest(req, body); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSignature, err)
		}
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: do request: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// doWithRetry performs a request with exponential backoff retry.
func (t *Transport) doWithRetry(ctx context.Context, method, path string, query url.Values, private bool) ([]byte, error) {
	var lastErr error
	backoff := t.retryBackoff

	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			// jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int63n(int64(backoff)))
			t.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"path", path,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		body, err := t.doRequest(ctx, method, path, query, nil, private)
		if err == nil {
			return body, nil
		}

		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func decode(body []byte, result any) error {
	if result == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: unmarshal response: %v", ErrDecode, err)
	}
	return nil
}

// Get performs a public GET request with retries.
func (t *Transport) Get(ctx context.Context, path string, query url.Values, result any) error {
	body, err := t.doWithRetry(ctx, http.MethodGet, path, query, false)
	if err != nil {
		return err
	}
	return decode(body, result)
}

// GetPrivate performs a signed GET request with retries.
func (t *Transport) GetPrivate(ctx context.Context, path string, query url.Values, result any) error {
	body, err := t.doWithRetry(ctx, http.MethodGet, path, query, true)
	if err != nil {
		return err
	}
	return decode(body, result)
}

// Post performs a signed POST request. It is never retried.
func (t *Transport) Post(ctx context.Context, path string, payload, result any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	body, err := t.doRequest(ctx, http.MethodPost, path, nil, data, true)
	if err != nil {
		return err
	}
	return decode(body, result)
}

// Delete performs a signed DELETE request with retries.
func (t *Transport) Delete(ctx context.Context, path string, result any) error {
	body, err := t.doWithRetry(ctx, http.MethodDelete, path, nil, true)
	if err != nil {
		return err
	}
	return decode(body, result)
}
