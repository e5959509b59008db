// Package auth provides a client for the managed identity provider
// (password sign-in, sign-out) and the reactive current-user value the
// route guard consumes.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Session represents a signed-in user session.
type Session struct {
	Token  oauth2.Token // Access/refresh token pair with expiry
	UserID string
	Email  string
}

// Client is an identity provider client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config represents identity client configuration.
type Config struct {
	URL    string // Provider base URL
	APIKey string // Anonymous service key
}

// New creates a new identity client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("auth URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("auth API key is required")
	}

	return &Client{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// tokenResponse represents the provider's password-grant response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignIn exchanges email/password credentials for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/v1/token?grant_type=password", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "sign-in request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrInvalidCredentials
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("sign-in failed: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, errors.Wrap(err, "failed to parse token response")
	}

	return &Session{
		Token: oauth2.Token{
			AccessToken:  tr.AccessToken,
			RefreshToken: tr.RefreshToken,
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		},
		UserID: tr.User.ID,
		Email:  tr.User.Email,
	}, nil
}

// SignOut revokes a session token. Failures are logged and returned,
// but callers treat the local session as ended regardless.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "sign-out request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		zlog.Warn().Msgf("auth: sign-out returned %s", resp.Status)
		return errors.Newf("sign-out failed: %s", resp.Status)
	}
	return nil
}
