package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	GatewayName           = "gateway"
	gatewayDefaultTimeout = 60 * time.Second
)

// GatewayConfig holds configuration for an OpenAI-compatible AI gateway
// (Sumopod, Maia Router, or any endpoint speaking the chat-completions
// protocol).
type GatewayConfig struct {
	APIKey       string
	BaseURL      string // e.g. "https://ai.sumopod.com/v1"
	DefaultModel string
	Timeout      time.Duration
	// Rate limiting and retries
	RPM        int           // Requests per minute (default: 60)
	MaxRetries int           // Max retry attempts on transport errors (default: 3)
	RetryDelay time.Duration // Base delay between retries (default: 1s)
}

// GatewayClient implements LLMClient against an OpenAI-compatible gateway.
type GatewayClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	limiter      *RateLimiter
	maxRetries   int
	retryDelay   time.Duration
}

// NewGatewayClient creates a new gateway client.
func NewGatewayClient(cfg GatewayConfig) *GatewayClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = gatewayDefaultTimeout
	}
	if cfg.RPM == 0 {
		cfg.RPM = 60
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	return &GatewayClient{
		apiKey:       cfg.APIKey,
		baseURL:      trimTrailingSlash(cfg.BaseURL),
		defaultModel: cfg.DefaultModel,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:    NewRateLimiter(cfg.RPM),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// Name returns the client identifier.
func (c *GatewayClient) Name() string {
	return GatewayName
}

// Chat sends a chat completion request.
func (c *GatewayClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	gwReq := gatewayRequest{
		Model:       model,
		Messages:    make([]gatewayMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	for _, m := range req.Messages {
		gwMsg := gatewayMessage{Role: m.Role}

		// Vision messages carry an array of content parts.
		if len(m.Images) > 0 {
			content := make([]gatewayContent, 0, len(m.Images)+1)
			for _, img := range m.Images {
				content = append(content, gatewayContent{
					Type: "image_url",
					ImageURL: &gatewayImageURL{
						URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
						Detail: "low",
					},
				})
			}
			if m.Content != "" {
				content = append(content, gatewayContent{Type: "text", Text: m.Content})
			}
			gwMsg.Content = content
		} else {
			gwMsg.Content = m.Content
		}

		gwReq.Messages = append(gwReq.Messages, gwMsg)
	}

	gwResp, attempts, err := c.doRequest(ctx, "/chat/completions", &gwReq, req.Timeout)

	result := &ChatResult{
		RequestID: requestID,
		Provider:  GatewayName,
		Attempts:  attempts,
	}

	if err != nil {
		result.Success = false
		result.ErrorType = "http_error"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	if len(gwResp.Choices) == 0 {
		result.Success = false
		result.ErrorType = "empty_response"
		result.ErrorMessage = "no choices in response"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("no choices in response")
	}

	result.Success = true
	result.Content = gwResp.Choices[0].Message.Content
	result.ModelUsed = gwResp.Model
	result.PromptTokens = gwResp.Usage.PromptTokens
	result.CompletionTokens = gwResp.Usage.CompletionTokens
	result.TotalTokens = gwResp.Usage.TotalTokens
	result.ExecutionTime = time.Since(start)

	return result, nil
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
