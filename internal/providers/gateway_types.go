package providers

// Wire types for the OpenAI-compatible chat-completions protocol.

type gatewayRequest struct {
	Model       string           `json:"model"`
	Messages    []gatewayMessage `json:"messages"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

type gatewayMessage struct {
	Role string `json:"role"`
	// Content is a string for plain messages or []gatewayContent for
	// vision messages.
	Content any `json:"content"`
}

type gatewayContent struct {
	Type     string           `json:"type"` // "text" or "image_url"
	Text     string           `json:"text,omitempty"`
	ImageURL *gatewayImageURL `json:"image_url,omitempty"`
}

type gatewayImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type gatewayResponse struct {
	ID      string          `json:"id"`
	Model   string          `json:"model"`
	Choices []gatewayChoice `json:"choices"`
	Usage   gatewayUsage    `json:"usage"`
	Error   *gatewayError   `json:"error,omitempty"`
}

type gatewayChoice struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type gatewayUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type gatewayError struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
}
