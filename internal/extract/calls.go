package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/motorsights/epcbook/internal/providers"
	"github.com/motorsights/epcbook/internal/taxonomy"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	extractTemperature   = 0.0
	translateTemperature = 0.1
	callTimeout          = 60 * time.Second

	titleMaxTokens     = 200
	multipleMaxTokens  = 1000
	documentMaxTokens  = 4000
	translateMaxTokens = 1000
)

// DefaultMaxRetries is the validation retry ceiling used when the caller is
// configured with a non-positive value.
const DefaultMaxRetries = 3

// Translation is one entry of a batch translation result.
type Translation struct {
	CN string `json:"cn"`
	EN string `json:"en"`
}

// Caller runs the LLM extraction calls. Each call validates the model's
// JSON output against a fixed schema and retries with corrective feedback up
// to the retry ceiling; exhausting the ceiling is fatal for the call.
type Caller struct {
	client     providers.LLMClient
	model      string
	maxRetries int
	logger     *slog.Logger
}

// NewCaller creates a Caller. model may be empty to use the client's default.
func NewCaller(client providers.LLMClient, model string, maxRetries int, logger *slog.Logger) *Caller {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Caller{client: client, model: model, maxRetries: maxRetries, logger: logger}
}

// ExtractSingleTitle reads the table title from a page image. An empty result
// with nil error means the page is a diagram with no table title, which is an
// expected outcome.
func (c *Caller) ExtractSingleTitle(ctx context.Context, image []byte) (string, error) {
	user := providers.Message{
		Role:    "user",
		Content: "Extract the table title from this image.",
		Images:  [][]byte{image},
	}

	raw, err := c.callValidated(ctx, titleExtractionPrompt, user, singleTitleSchema, extractTemperature, titleMaxTokens)
	if err != nil {
		return "", err
	}

	var parsed struct {
		RawTitle *string `json:"raw_title"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode title response: %w", err)
	}
	if parsed.RawTitle == nil {
		return "", nil
	}
	return *parsed.RawTitle, nil
}

// ExtractMultipleTitles reads all category names visible on a page image. An
// empty slice is a legitimate result for pages with no category text.
func (c *Caller) ExtractMultipleTitles(ctx context.Context, image []byte) ([]string, error) {
	user := providers.Message{
		Role:    "user",
		Content: "Extract every category name from this page.",
		Images:  [][]byte{image},
	}

	raw, err := c.callValidated(ctx, multipleTitlesPrompt, user, multipleTitlesSchema, extractTemperature, multipleMaxTokens)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		CategoriesCN []string `json:"categories_cn"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode categories response: %w", err)
	}
	return parsed.CategoriesCN, nil
}

// TranscribePage transcribes the readable text of a page image. Used when an
// archive-format partbook must feed a strategy that works on document text.
func (c *Caller) TranscribePage(ctx context.Context, image []byte) (string, error) {
	user := providers.Message{
		Role:    "user",
		Content: "Transcribe the text on this page.",
		Images:  [][]byte{image},
	}

	raw, err := c.callValidated(ctx, transcriptionPrompt, user, transcriptionSchema, extractTemperature, documentMaxTokens)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}
	return parsed.Text, nil
}

// ExtractCategoriesFromText sends document text through one large extraction
// call. The system prompt selects the document family convention (ToC listing
// or numbered-section markdown).
func (c *Caller) ExtractCategoriesFromText(ctx context.Context, systemPrompt, text string) (*taxonomy.ExtractionResult, error) {
	user := providers.Message{Role: "user", Content: text}

	raw, err := c.callValidated(ctx, systemPrompt, user, categoriesSchema, extractTemperature, documentMaxTokens)
	if err != nil {
		return nil, err
	}

	var result taxonomy.ExtractionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode extraction result: %w", err)
	}
	return &result, nil
}

// TranslateBatch translates Chinese titles to English in one call. It never
// fails: on any error the result degrades to an identity mapping so the
// source titles survive for human review. The result always has exactly one
// entry per input, in input order.
func (c *Caller) TranslateBatch(ctx context.Context, titles []string) []Translation {
	if len(titles) == 0 {
		return nil
	}

	translated := c.translateBatch(ctx, titles)

	cnToEN := make(map[string]string, len(translated))
	for _, t := range translated {
		if t.CN != "" && t.EN != "" {
			cnToEN[t.CN] = t.EN
		}
	}

	out := make([]Translation, len(titles))
	for i, cn := range titles {
		en, ok := cnToEN[cn]
		if !ok {
			en = cn
		}
		out[i] = Translation{CN: cn, EN: en}
	}
	return out
}

func (c *Caller) translateBatch(ctx context.Context, titles []string) []Translation {
	payload, err := json.MarshalIndent(titles, "", "  ")
	if err != nil {
		c.logger.Error("failed to encode titles for translation", "error", err)
		return nil
	}

	user := providers.Message{
		Role:    "user",
		Content: "Translate these Chinese parts catalog table titles to English:\n" + string(payload),
	}

	raw, err := c.callValidated(ctx, translationPrompt, user, translationsSchema, translateTemperature, translateMaxTokens)
	if err != nil {
		c.logger.Warn("translation call failed, falling back to identity mapping", "error", err)
		return nil
	}

	var parsed struct {
		Translations []Translation `json:"translations"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.logger.Warn("failed to decode translations, falling back to identity mapping", "error", err)
		return nil
	}
	return parsed.Translations
}

// callValidated runs one extraction call with the corrective retry loop. A
// transport failure returns immediately (page-level recoverable); output that
// never passes schema validation within the ceiling returns
// ErrRetriesExhausted.
func (c *Caller) callValidated(ctx context.Context, systemPrompt string, user providers.Message, schema *jsonschema.Schema, temperature float64, maxTokens int) (json.RawMessage, error) {
	messages := []providers.Message{
		{Role: "system", Content: systemPrompt},
		user,
	}

	var lastErrs []string
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		res, err := c.client.Chat(ctx, &providers.ChatRequest{
			Messages:    messages,
			Model:       c.model,
			Temperature: temperature,
			MaxTokens:   maxTokens,
			Timeout:     callTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("llm call failed: %w", err)
		}

		raw, verrs := parseAndValidate(res.Content, schema)
		if raw != nil {
			return raw, nil
		}

		lastErrs = verrs
		c.logger.Warn("llm response failed validation",
			"attempt", attempt,
			"max_retries", c.maxRetries,
			"errors", strings.Join(verrs, "; "))

		if attempt < c.maxRetries {
			messages = append(messages,
				providers.Message{Role: "assistant", Content: res.Content},
				providers.Message{Role: "user", Content: correctivePrompt(verrs)},
			)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %s",
		ErrRetriesExhausted, c.maxRetries, strings.Join(lastErrs, "; "))
}
