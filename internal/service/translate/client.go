// Package translate drives committed segments through the external
// translation and speech-synthesis backend.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"ai-speech-translation-relay/internal/observability/metrics"
)

// RequestError is the terminal failure returned after every attempt of a
// request has been exhausted.
type RequestError struct {
	Endpoint string
	Attempts int
	LastErr  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request to %s failed after %d attempts: %v", e.Endpoint, e.Attempts, e.LastErr)
}

func (e *RequestError) Unwrap() error { return e.LastErr }

// Client performs JSON POST requests with bounded, exponentially backed-off
// retries. Each call is independent: there is no circuit breaking across
// calls, so one exhausted request never suppresses later ones.
type Client struct {
	http        *http.Client
	maxAttempts int
	baseDelay   time.Duration
	log         zerolog.Logger
	metrics     *metrics.Metrics
}

// ClientConfig configures a Client. Zero values fall back to defaults
// (3 attempts, 1s base delay, 15s request timeout).
type ClientConfig struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// NewClient creates a retrying request client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	return &Client{
		http:        &http.Client{Timeout: cfg.RequestTimeout},
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		log:         cfg.Logger,
		metrics:     metrics.DefaultMetrics,
	}
}

// PostJSON posts payload to endpoint and decodes the response into out.
// A non-2xx status counts as a failed attempt. On failure the client waits
// baseDelay * 2^attempt (attempt zero-based) before retrying; after
// maxAttempts it returns a *RequestError wrapping the last error.
func (c *Client) PostJSON(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * (1 << (attempt - 1))
			c.log.Debug().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("Retrying request")
			c.metrics.RecordTranslationRetry()
			if err := sleepCtx(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = c.doPost(ctx, endpoint, body, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return &RequestError{Endpoint: endpoint, Attempts: c.maxAttempts, LastErr: lastErr}
}

func (c *Client) doPost(ctx context.Context, endpoint string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
