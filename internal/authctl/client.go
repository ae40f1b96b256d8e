// Package authctl implements a small command-line client for the auth
// server's REST API.
package authctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TokenResponse mirrors the server's token payload.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// UserRecord mirrors the server's user payload.
type UserRecord struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Roles    string `json:"roles"`
}

type apiError struct {
	Error string `json:"error"`
}

// Client talks to the auth server over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a client for the given server base URL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Register creates an account with the given role list (comma-separated).
func (c *Client) Register(ctx context.Context, username, password, role string) (*UserRecord, error) {
	var out UserRecord
	err := c.call(ctx, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username, "password": password, "role": role,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.call(ctx, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username, "password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh obtains a fresh token pair from a refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.call(ctx, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refreshToken": refreshToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestReset asks the server to mail a reset code to the account owner.
func (c *Client) RequestReset(ctx context.Context, username string) error {
	path := "/api/auth/send-reset-code/" + url.PathEscape(username)
	return c.call(ctx, http.MethodGet, path, "", nil, nil)
}

// ChangePassword applies a password change authorized by a reset code.
func (c *Client) ChangePassword(ctx context.Context, username string, code int64, newPassword string) error {
	return c.call(ctx, http.MethodPost, "/api/auth/change-password", "", map[string]any{
		"username": username, "resetCode": code, "newPassword": newPassword,
	}, nil)
}

// ListUsers returns all accounts. Requires an admin access token.
func (c *Client) ListUsers(ctx context.Context, accessToken string) ([]UserRecord, error) {
	var out []UserRecord
	if err := c.call(ctx, http.MethodGet, "/api/users", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, method, path, token string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e apiError
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("server: %s (status %d)", e.Error, resp.StatusCode)
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
