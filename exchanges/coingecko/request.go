package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrRateLimited is wrapped by a TransientError for HTTP 429 responses.
var ErrRateLimited = errors.New("rate limited")

// TransientError is a single failed attempt that may succeed when retried.
type TransientError struct {
	StatusCode int // zero for transport and decode failures
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("coingecko: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("coingecko: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FetchError is returned once the retry budget for a call is exhausted.
type FetchError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("coingecko: %s failed after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// doRequest performs one GET and decodes the JSON body into out.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values, out any) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &TransientError{StatusCode: resp.StatusCode, Err: ErrRateLimited}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > 256 {
			body = body[:256]
		}
		return &TransientError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: %s", http.StatusText(resp.StatusCode), string(body)),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &TransientError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	return nil
}

// get performs a paced GET with retries.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		attempts++
		err := c.doRequest(ctx, path, query, out)
		if err == nil {
			return nil
		}

		var transient *TransientError
		if !errors.As(err, &transient) {
			return err
		}
		lastErr = err

		if attempt == c.maxRetries-1 {
			break
		}

		var wait time.Duration
		if errors.Is(err, ErrRateLimited) {
			wait = c.retryBackoff << (attempt + 1)
			c.logger.Warn("rate limit hit, backing off",
				"path", path,
				"attempt", attempt+1,
				"backoff", wait,
			)
		} else {
			wait = c.retryBackoff << attempt
			c.logger.Warn("request failed, retrying",
				"path", path,
				"attempt", attempt+1,
				"backoff", wait,
				"err", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return &FetchError{Path: path, Attempts: attempts, Err: lastErr}
}
