// Package engine provides the HTTP client for the external strategy execution engine.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single engine call when no timeout is configured
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of an engine response is buffered
const maxResponseBytes = 16 << 20

// ErrResponseTooLarge is wrapped in a TransportError when the body exceeds maxResponseBytes
var ErrResponseTooLarge = fmt.Errorf("engine response exceeds %d bytes", maxResponseBytes)

// RequestIDHeader carries the per-call correlation id
const RequestIDHeader = "X-Request-ID"

// TransportError means no complete HTTP response was obtained:
// connection refused, DNS failure, timeout, cancellation or a truncated body.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Response is a raw engine response. The body is returned untouched.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
	Elapsed    time.Duration
}

// Success reports a 2xx status
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ExecuteCall addresses one strategy run
type ExecuteCall struct {
	UserID     string
	StrategyID string
	StartDate  string // YYYY-MM-DD
	EndDate    string // YYYY-MM-DD
	Payload    interface{}
}

// Client communicates with the execution engine
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new engine client. A non-positive timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.With().Str("client", "engine").Logger(),
	}
}

// BaseURL returns the engine base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Execute submits a strategy run and returns the engine's response whatever its status.
// Only failures to obtain a response are returned as errors (*TransportError).
func (c *Client) Execute(ctx context.Context, call ExecuteCall) (*Response, error) {
	body, err := json.Marshal(call.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execution payload: %w", err)
	}

	endpoint := c.executeURL(call)
	requestID := uuid.New().String()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	c.log.Debug().
		Str("request_id", requestID).
		Str("user_id", call.UserID).
		Str("strategy_id", call.StrategyID).
		Int("payload_bytes", len(body)).
		Msg("Sending strategy execution request")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "POST", URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &TransportError{Op: "read response", URL: endpoint, Err: err}
	}
	if len(respBody) > maxResponseBytes {
		return nil, &TransportError{Op: "read response", URL: endpoint, Err: ErrResponseTooLarge}
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       respBody,
		RequestID:  requestID,
		Elapsed:    time.Since(startTime),
	}

	c.log.Info().
		Str("request_id", requestID).
		Int("status", out.StatusCode).
		Int("response_bytes", len(respBody)).
		Dur("elapsed", out.Elapsed).
		Msg("Strategy execution response received")

	return out, nil
}

// HealthCheck checks if the engine is available
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint := c.baseURL + "/health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "GET", URL: endpoint, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	c.log.Debug().Msg("Engine health check passed")
	return nil
}

func (c *Client) executeURL(call ExecuteCall) string {
	query := url.Values{}
	query.Set("startDate", call.StartDate)
	query.Set("endDate", call.EndDate)

	return fmt.Sprintf("%s/users/%s/strategies/%s/execute?%s",
		c.baseURL,
		url.PathEscape(call.UserID),
		url.PathEscape(call.StrategyID),
		query.Encode(),
	)
}
