package providers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int64 // Fail after N requests (0 = never)
	ResponseText string

	// RespondFn, when set, overrides ResponseText and computes the
	// response content from the request.
	RespondFn func(req *ChatRequest) (string, error)

	// State
	requestCount atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// RequestCount returns the number of Chat calls made so far.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	if c.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.Latency):
		}
	}

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
		Attempts:  1,
	}

	if c.ShouldFail || (c.FailAfter > 0 && count > c.FailAfter) {
		result.Success = false
		result.ErrorType = "mock_error"
		result.ErrorMessage = "mock failure"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("mock failure")
	}

	content := c.ResponseText
	if c.RespondFn != nil {
		var err error
		content, err = c.RespondFn(req)
		if err != nil {
			result.Success = false
			result.ErrorType = "mock_error"
			result.ErrorMessage = err.Error()
			result.ExecutionTime = time.Since(start)
			return result, err
		}
	}

	result.Success = true
	result.Content = content
	result.ExecutionTime = time.Since(start)
	return result, nil
}
