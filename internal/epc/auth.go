// Package epc is the client for the Motorsights Electronic Product Catalog
// API: SSO token management and category submission with skip-on-conflict
// semantics.
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
	"sync"
	"time"
)

const (
	authTimeout = 30 * time.Second
	// defaultTokenTTL is used when the SSO response carries no expiry.
	defaultTokenTTL = 82800 * time.Second
)

// AuthClient obtains and caches SSO bearer tokens from the gateway. Safe for
// concurrent use.
type AuthClient struct {
	gatewayURL string
	email      string
	password   string
	httpClient *http.Client
	logger     *slog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewAuthClient creates an SSO auth client.
func NewAuthClient(gatewayURL, email, password string, logger *slog.Logger) (*AuthClient, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required for SSO authentication")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthClient{
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		email:      email,
		password:   password,
		httpClient: &http.Client{Timeout: authTimeout},
		logger:     logger,
	}, nil
}

// BearerToken returns a valid bearer token, fetching a fresh one when the
// cache is empty or expired.
func (a *AuthClient) BearerToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Now().Before(a.tokenExpiry) {
		return a.token, nil
	}
	return a.fetchToken(ctx)
}

// Invalidate clears the cached token so the next request fetches a fresh one.
func (a *AuthClient) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = ""
	a.tokenExpiry = time.Time{}
	a.logger.Info("bearer token invalidated")
}

type ssoLoginResponse struct {
	Data struct {
		OAuth struct {
			SSOToken  string `json:"sso_token"`
			ExpiresIn int    `json:"expires_in"`
		} `json:"oauth"`
	} `json:"data"`
	SSOToken    string `json:"sso_token"`
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// fetchToken must be called with the lock held.
func (a *AuthClient) fetchToken(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"email":    a.email,
		"password": a.password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode login request: %w", err)
	}

	url := a.gatewayURL + "/api/auth/sso/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sso login failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read sso response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sso login returned status %d: %s", resp.StatusCode, respBody)
	}

	var login ssoLoginResponse
	if err := json.Unmarshal(respBody, &login); err != nil {
		return "", fmt.Errorf("failed to parse sso response: %w", err)
	}

	// Token may live at data.oauth.sso_token or at a top-level fallback.
	token := login.Data.OAuth.SSOToken
	if token == "" {
		token = login.SSOToken
	}
	if token == "" {
		token = login.Token
	}
	if token == "" {
		token = login.AccessToken
	}
	if token == "" {
		return "", fmt.Errorf("sso token not found in login response")
	}

	ttl := defaultTokenTTL
	if login.Data.OAuth.ExpiresIn > 0 {
		ttl = time.Duration(login.Data.OAuth.ExpiresIn) * time.Second
	} else if login.ExpiresIn > 0 {
		ttl = time.Duration(login.ExpiresIn) * time.Second
	}

	a.token = token
	a.tokenExpiry = time.Now().Add(ttl)
	a.logger.Info("obtained bearer token", "expires_in", ttl.String())
	return token, nil
}

// TokenSource supplies bearer tokens to the catalog client. A static token or
// an AuthClient both satisfy it.
type TokenSource interface {
	BearerToken(ctx context.Context) (string, error)
	Invalidate()
}

// StaticToken is a TokenSource wrapping a fixed bearer token.
type StaticToken string

func (s StaticToken) BearerToken(context.Context) (string, error) { return string(s), nil }
func (s StaticToken) Invalidate()                                 {}
