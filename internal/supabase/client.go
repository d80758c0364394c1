// Package supabase is a minimal client for the Supabase Auth REST API, used to
// resolve access tokens into user identities.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/R3E-Network/vybe_engagement/internal/resilience"
)

// ErrUnauthorized is returned when Supabase rejects the access token.
var ErrUnauthorized = errors.New("supabase: token rejected")

// Client is a Supabase Auth REST client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	URL    string
	APIKey string
	// HTTPClient overrides the default resilient client.
	HTTPClient *http.Client
	Retry      resilience.RetryConfig
	Breaker    *resilience.Breaker
}

// New creates a Supabase client. Unless an HTTPClient is supplied, requests go
// through a retrying, circuit-breaking transport.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		retry := cfg.Retry
		if retry.MaxRetries == 0 && retry.InitialBackoff == 0 {
			retry = resilience.DefaultRetryConfig()
		}
		httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: resilience.NewTransport(nil, retry, cfg.Breaker),
		}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// User represents a Supabase user.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	Role         string         `json:"role"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// GetUser returns the user owning accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode >= 400:
		return nil, responseError(resp.StatusCode, body)
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if user.ID == "" {
		return nil, ErrUnauthorized
	}
	return &user, nil
}

func responseError(status int, body []byte) error {
	var errResp struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		for _, msg := range []string{errResp.Message, errResp.Msg, errResp.Error} {
			if msg != "" {
				return fmt.Errorf("supabase error (%d): %s", status, msg)
			}
		}
	}
	return fmt.Errorf("supabase error: status %d", status)
}
