package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// doRequest makes an HTTP request to the gateway with bounded retries.
// Returns the parsed response and the number of attempts made.
func (c *GatewayClient) doRequest(ctx context.Context, path string, body *gatewayRequest, timeout time.Duration) (*gatewayResponse, int, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt, err
		}

		reqCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			reqCtx, cancel = context.WithTimeout(ctx, timeout)
		}

		resp, err := c.send(reqCtx, path, bodyBytes)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return resp, attempt + 1, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return nil, attempt + 1, err
		}
		c.sleepWithBackoff(ctx, attempt)
	}

	return nil, c.maxRetries, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

func (c *GatewayClient) send(ctx context.Context, path string, body []byte) (*gatewayResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &transientError{fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{fmt.Errorf("failed to read response: %w", err)}
	}

	if shouldRetryStatus(resp.StatusCode) {
		return nil, &transientError{fmt.Errorf("gateway error (status %d): %s", resp.StatusCode, string(respBody))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var gwResp gatewayResponse
	if err := json.Unmarshal(respBody, &gwResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if gwResp.Error != nil {
		return nil, fmt.Errorf("gateway API error: %s", gwResp.Error.Message)
	}
	if len(gwResp.Choices) == 0 {
		// Usually transient (model overloaded); worth one more attempt.
		return nil, &transientError{fmt.Errorf("empty choices in response (model=%s, id=%s)", gwResp.Model, gwResp.ID)}
	}

	return &gwResp, nil
}

// transientError marks errors worth retrying.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	_, ok := err.(*transientError)
	return ok
}

// shouldRetryStatus returns true for status codes that should be retried.
func shouldRetryStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests:
		return true
	case 520, 521, 522, 523, 524: // Cloudflare errors
		return true
	default:
		return statusCode >= 500
	}
}

// sleepWithBackoff sleeps with exponential backoff and jitter, respecting
// context cancellation.
func (c *GatewayClient) sleepWithBackoff(ctx context.Context, attempt int) {
	baseDelay := c.retryDelay * time.Duration(1<<attempt)
	if baseDelay > 10*time.Second {
		baseDelay = 10 * time.Second
	}

	// Jitter: -20% to +30%
	jitter := time.Duration(float64(baseDelay) * (0.8 + 0.5*float64(time.Now().UnixNano()%1000)/1000))

	select {
	case <-ctx.Done():
	case <-time.After(jitter):
	}
}
