package testpredict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/okian/chase/internal/domain/types"
)

const (
	retryWaitMin = 50 * time.Millisecond
	retryWaitMax = 2 * time.Second
)

// Client posts states to the server with retries and a shared rate limit.
type Client struct {
	baseURL string
	runID   string
	http    *retryablehttp.Client
	limiter *rate.Limiter
}

// NewClient builds a client for cfg. runID is sent as the request id prefix.
func NewClient(cfg *Config, runID string) *Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = retryWaitMin
	rc.RetryWaitMax = retryWaitMax
	rc.CheckRetry = retryPolicy
	rc.Logger = nil

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	return &Client{
		baseURL: cfg.BaseURL,
		runID:   runID,
		http:    rc,
		limiter: rate.NewLimiter(limit, max(1, cfg.Workers)),
	}
}

// retryPolicy retries network errors, 429 and 5xx except 500, which the
// server returns when no model is loaded and will not change on retry.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

// CheckHealth fails unless GET /healthz answers 200.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connect to service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// PredictState submits one sample and fills its Result, Status and Error.
func (c *Client) PredictState(ctx context.Context, s *Sample) {
	start := time.Now()
	defer func() { s.Duration = time.Since(start) }()

	if err := c.limiter.Wait(ctx); err != nil {
		s.Error = err.Error()
		return
	}
	body, err := json.Marshal(s.State)
	if err != nil {
		s.Error = err.Error()
		return
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/predict/state", bytes.NewReader(body))
	if err != nil {
		s.Error = err.Error()
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", c.runID+"-"+s.ID)

	resp, err := c.http.Do(req)
	if err != nil {
		s.Error = err.Error()
		return
	}
	defer resp.Body.Close()
	s.Status = resp.StatusCode

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		s.Error = err.Error()
		return
	}
	if resp.StatusCode != http.StatusOK {
		s.Error = string(bytes.TrimSpace(raw))
		return
	}
	var out types.StatePrediction
	if err := json.Unmarshal(raw, &out); err != nil {
		s.Error = "decode response: " + err.Error()
		return
	}
	s.Result = &out
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.HTTPClient.CloseIdleConnections()
}
