package providers

import (
	"fmt"
	"time"
)

// Settings selects and configures an LLM client.
type Settings struct {
	Provider   string // "gateway" (default) or "openai"
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	RPM        int
	MaxRetries int
	RetryDelay time.Duration
}

// New builds the LLM client named by s.Provider.
func New(s Settings) (LLMClient, error) {
	switch s.Provider {
	case "", GatewayName:
		if s.BaseURL == "" {
			return nil, fmt.Errorf("gateway provider requires a base URL")
		}
		return NewGatewayClient(GatewayConfig{
			APIKey:       s.APIKey,
			BaseURL:      s.BaseURL,
			DefaultModel: s.Model,
			Timeout:      s.Timeout,
			RPM:          s.RPM,
			MaxRetries:   s.MaxRetries,
			RetryDelay:   s.RetryDelay,
		}), nil
	case OpenAIName:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       s.APIKey,
			BaseURL:      s.BaseURL,
			DefaultModel: s.Model,
			Timeout:      s.Timeout,
			RPM:          s.RPM,
			MaxRetries:   s.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", s.Provider)
	}
}
