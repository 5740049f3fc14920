package whiskers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds the configuration for the WhiskersWonderland client.
type Config struct {
	// BaseURL is the root URL of the API server, e.g. "http://localhost:5000".
	// A trailing "/api" is stripped.
	BaseURL string

	// HTTPClient is an optional custom HTTP client.
	// If nil, a default client with 10s timeout is used.
	HTTPClient *http.Client
}

func (c *Config) defaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/api")
}

// Client calls the WhiskersWonderland auth and admin APIs.
type Client struct {
	cfg Config
}

// NewClient creates a new client with the given configuration.
func NewClient(cfg Config) *Client {
	cfg.defaults()
	return &Client{cfg: cfg}
}

// Register creates a new user account and returns its session token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", "", req, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Login authenticates with email and password. When the account has
// two-factor enabled the result carries a TempToken instead of a Token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var resp LoginResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyTwoFactorLogin exchanges a temp token and a TOTP code for a session token.
func (c *Client) VerifyTwoFactorLogin(ctx context.Context, tempToken, code string) (string, error) {
	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/verify-2fa-login", "", map[string]string{
		"tempToken": tempToken,
		"token":     code,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// SetupTwoFactor starts enrollment for the session's user.
func (c *Client) SetupTwoFactor(ctx context.Context, token string) (*TwoFactorSetup, error) {
	var resp TwoFactorSetup
	if err := c.do(ctx, http.MethodPost, "/api/auth/setup-2fa", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyTwoFactor confirms enrollment with a code from the new secret.
func (c *Client) VerifyTwoFactor(ctx context.Context, token, code string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/verify-2fa", token, map[string]string{"token": code}, nil)
}

// TwoFactorStatus reports whether two-factor authentication is enabled.
func (c *Client) TwoFactorStatus(ctx context.Context, token string) (bool, error) {
	var resp struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/2fa-status", token, nil, &resp); err != nil {
		return false, err
	}
	return resp.Enabled, nil
}

// DisableTwoFactor turns two-factor authentication off.
func (c *Client) DisableTwoFactor(ctx context.Context, token, code string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/disable-2fa", token, map[string]string{"token": code}, nil)
}

// ListUsers returns every account. Requires an admin session.
func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/api/admin/users", token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SetMonitored sets the monitoring flag on a user. Requires an admin session.
func (c *Client) SetMonitored(ctx context.Context, token string, userID int64, monitored bool) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	path := fmt.Sprintf("/api/admin/users/%d/toggle-monitor", userID)
	if err := c.do(ctx, http.MethodPut, path, token, map[string]bool{"isMonitored": monitored}, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// ToggleMonitored flips the monitoring flag on a user. Requires an admin session.
func (c *Client) ToggleMonitored(ctx context.Context, token string, userID int64) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	path := fmt.Sprintf("/api/admin/users/%d/toggle-monitor", userID)
	if err := c.do(ctx, http.MethodPut, path, token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// MonitoredUsers returns monitored users with their recent activity.
func (c *Client) MonitoredUsers(ctx context.Context, token string) ([]MonitoredUser, error) {
	var users []MonitoredUser
	if err := c.do(ctx, http.MethodGet, "/api/admin/monitored-users", token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UserActivity returns the latest activity of one user.
func (c *Client) UserActivity(ctx context.Context, token string, userID int64) ([]Activity, error) {
	var acts []Activity
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/admin/user-activity/%d", userID), token, nil, &acts); err != nil {
		return nil, err
	}
	return acts, nil
}

// Stats returns the admin dashboard totals.
func (c *Client) Stats(ctx context.Context, token string) (*Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, "/api/admin/stats", token, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path, token string, payload, out interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("whiskers: failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("whiskers: failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("whiskers: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("whiskers: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("whiskers: failed to parse response: %w", err)
	}
	return nil
}
