package epc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/motorsights/epcbook/internal/taxonomy"
)

const requestTimeout = 30 * time.Second

// Client talks to the EPC catalog API. Category submission uses
// skip-on-conflict semantics: a 409 means the category already exists and is
// counted as skipped, not as an error.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	maxRetries uint
	logger     *slog.Logger
}

// NewClient creates a catalog client. tokens may be a StaticToken or an
// *AuthClient; with an AuthClient a 401 response invalidates the cached token
// and the request is retried once with a fresh one.
func NewClient(baseURL string, tokens TokenSource, maxRetries int, logger *slog.Logger) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: requestTimeout},
		maxRetries: uint(maxRetries),
		logger:     logger,
	}
}

// CategoryRequest is the category/create payload, optionally carrying nested
// type categories for the 3-level hierarchy.
type CategoryRequest struct {
	MasterCategoryID     string                  `json:"master_category_id"`
	MasterCategoryNameEN string                  `json:"master_category_name_en"`
	NameEN               string                  `json:"category_name_en"`
	NameCN               string                  `json:"category_name_cn"`
	Description          string                  `json:"category_description"`
	DataType             []taxonomy.TypeCategory `json:"data_type"`
}

// CreateResult describes the outcome of one create call.
type CreateResult struct {
	Skipped bool
	Message string
	Data    json.RawMessage
}

type apiResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// CreateCategory submits one category. A 409 conflict returns Skipped=true
// with a nil error.
func (c *Client) CreateCategory(ctx context.Context, req CategoryRequest) (*CreateResult, error) {
	status, body, err := c.post(ctx, "/categories/create", req)
	if err != nil {
		return nil, err
	}

	var parsed apiResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse create response: %w", err)
		}
	}

	if status == http.StatusConflict {
		c.logger.Warn("skipping duplicate category",
			"category", req.NameEN, "message", parsed.Message)
		return &CreateResult{Skipped: true, Message: parsed.Message}, nil
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("categories/create returned status %d: %s", status, body)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("categories/create API error: %s", parsed.Error)
	}

	c.logger.Info("created category",
		"category", req.NameEN, "type_categories", len(req.DataType))
	return &CreateResult{Data: parsed.Data, Message: parsed.Message}, nil
}

// GetMasterCategories fetches master categories matching the given filters.
func (c *Client) GetMasterCategories(ctx context.Context, filters map[string]any) (json.RawMessage, error) {
	if filters == nil {
		filters = map[string]any{}
	}
	status, body, err := c.post(ctx, "/master_category/get", filters)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("master_category/get returned status %d: %s", status, body)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse master category response: %w", err)
	}
	return parsed.Data, nil
}

// BatchResults summarizes one batch submission.
type BatchResults struct {
	Created         []string `json:"categories_created"`
	Skipped         []string `json:"categories_skipped"`
	TypeCategoryNum int      `json:"type_categories_created"`
	Errors          []string `json:"errors"`
}

// SubmitResult submits an extraction result under one master category. Nested
// type categories ride along inside each category request; flat results
// simply have none. Per-category failures are collected, not fatal, so one
// bad category does not abort the batch.
func (c *Client) SubmitResult(ctx context.Context, result *taxonomy.ExtractionResult, masterCategoryID, masterCategoryNameEN string) (*BatchResults, error) {
	if masterCategoryID == "" {
		return nil, fmt.Errorf("master category id is required")
	}

	batch := &BatchResults{}
	for _, cat := range result.Categories {
		req := CategoryRequest{
			MasterCategoryID:     masterCategoryID,
			MasterCategoryNameEN: masterCategoryNameEN,
			NameEN:               cat.NameEN,
			NameCN:               cat.NameCN,
			Description:          cat.Description,
			DataType:             cat.DataType,
		}
		if req.DataType == nil {
			req.DataType = []taxonomy.TypeCategory{}
		}

		res, err := c.CreateCategory(ctx, req)
		switch {
		case err != nil:
			batch.Errors = append(batch.Errors, fmt.Sprintf("%s: %v", cat.NameEN, err))
			c.logger.Error("failed to create category", "category", cat.NameEN, "error", err)
		case res.Skipped:
			batch.Skipped = append(batch.Skipped, cat.NameEN)
		default:
			batch.Created = append(batch.Created, cat.NameEN)
			batch.TypeCategoryNum += len(cat.DataType)
		}
	}

	c.logger.Info("batch complete",
		"created", len(batch.Created),
		"skipped", len(batch.Skipped),
		"type_categories", batch.TypeCategoryNum,
		"errors", len(batch.Errors))
	return batch, nil
}

// post sends an authenticated request, refreshing the token once on 401 and
// retrying transient failures with backoff. 409 is returned to the caller,
// never retried.
func (c *Client) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var (
		status    int
		respBody  []byte
		refreshed bool
	)

	err = retry.Do(
		func() error {
			status, respBody, err = c.send(ctx, path, body)
			if err != nil {
				return err
			}
			if status == http.StatusUnauthorized && !refreshed {
				refreshed = true
				c.logger.Warn("got 401, refreshing token and retrying")
				c.tokens.Invalidate()
				return fmt.Errorf("unauthorized")
			}
			if status == http.StatusTooManyRequests || status >= 500 {
				return fmt.Errorf("transient status %d", status)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.maxRetries),
		retry.Delay(1*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return status, respBody, fmt.Errorf("request to %s failed: %w", path, err)
	}
	return status, respBody, nil
}

func (c *Client) send(ctx context.Context, path string, body []byte) (int, []byte, error) {
	token, err := c.tokens.BearerToken(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to obtain bearer token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}
