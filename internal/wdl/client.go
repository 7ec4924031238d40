package wdl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wdlsync/pkg/log"
)

// Config is the client configuration for the WDL API.
type Config struct {
	APIKey      string
	APIURL      string
	Timeout     int // seconds
	MaxAttempts int
	RetryDelay  int // seconds, fallback when the API does not dictate one
}

// Validate checks the configuration for required values.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("api url is required")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must be non-negative")
	}
	return nil
}

// Client is a WDL REST API client covering the JobHeaders and PerSecData
// endpoints. Requests are authenticated with a static bearer key.
//
// The client retries throttled (429) and unexpected responses up to
// MaxAttempts, honoring the Retry-After header when present. Responses with
// status 200/400/401/403/404 terminate the attempt loop immediately.
type Client struct {
	config     *Config
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new WDL API client with the given configuration.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client := &Client{
		config:  config,
		baseURL: strings.TrimRight(config.APIURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
	}

	return client, nil
}

// terminal statuses end the retry loop: success or a failure that retrying
// cannot fix.
func isTerminalStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusOK,
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound:
		return true
	}
	return false
}

// get performs an authenticated GET against path with the retry policy
// applied and returns the response body on success.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	url := c.baseURL + path

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		body, retryDelay, err := c.doGet(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && isTerminalStatus(apiErr.StatusCode) {
			return nil, err
		}
		if attempt == c.config.MaxAttempts {
			break
		}

		log.Warn("request %s failed (attempt %d/%d), retrying in %s: %v",
			url, attempt, c.config.MaxAttempts, retryDelay, err)
		if err := sleepContext(ctx, retryDelay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("request %s failed after %d attempts: %w",
		url, c.config.MaxAttempts, lastErr)
}

// doGet performs a single request. On failure it also returns the delay to
// wait before the next attempt, taken from the Retry-After header when the
// API dictates one.
func (c *Client) doGet(ctx context.Context, url string) ([]byte, time.Duration, error) {
	defaultDelay := time.Duration(c.config.RetryDelay) * time.Second

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, defaultDelay, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, defaultDelay, fmt.Errorf("make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, defaultDelay, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		return body, 0, nil
	}

	delay := defaultDelay
	if resp.StatusCode == http.StatusTooManyRequests {
		if after := resp.Header.Get("Retry-After"); after != "" {
			if seconds, err := strconv.Atoi(after); err == nil && seconds >= 0 {
				delay = time.Duration(seconds) * time.Second
			}
		}
	}
	return nil, delay, newAPIError(resp.StatusCode, url, body)
}

// sleepContext waits for d or until ctx is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
