package login

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alarmdesk/console/pkg/utils"
)

var (
	// ErrInvalidCredentials maps an HTTP 401 from the auth service.
	ErrInvalidCredentials = errors.New("wrong username or password")

	// ErrUnavailable covers every other failure: network errors, 5xx,
	// timeouts, undecodable bodies.
	ErrUnavailable = errors.New("login failed, try again later")

	// ErrInvalidToken means the stored session token was rejected.
	ErrInvalidToken = errors.New("session token rejected")
)

// Credentials carries the two form fields for one login attempt.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Token is the auth service's success response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Client issues login calls against the auth service.
// One request per call; no retry or backoff — a failed attempt goes back
// to the operator.
type Client struct {
	logger  *zap.Logger
	baseURL string
	client  *http.Client
}

// NewClient creates a login client for the given auth service base URL.
func NewClient(logger *zap.Logger, baseURL string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		logger:  logger,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Login authenticates with POST /auth/login and returns the token pair.
func (c *Client) Login(ctx context.Context, creds Credentials) (Token, error) {
	url := fmt.Sprintf("%s/auth/login", c.baseURL)
	data, err := json.Marshal(creds)
	if err != nil {
		return Token{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("login.http_failed", zap.Error(err))
		return Token{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusUnauthorized {
		return Token{}, ErrInvalidCredentials
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("login.unexpected_status", zap.Int("status", resp.StatusCode))
		return Token{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var tok Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		c.logger.Warn("login.decode_failed", zap.Error(err))
		return Token{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.logger.Info("login.success",
		zap.String("user", creds.Username),
		zap.String("access_token", utils.MaskToken(tok.AccessToken)))
	return tok, nil
}

// Identity is the auth service's introspection response.
type Identity struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at"`
}

// Whoami introspects a stored token via GET /auth/me.
func (c *Client) Whoami(ctx context.Context, tokenType, accessToken string) (Identity, error) {
	url := fmt.Sprintf("%s/auth/me", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", authScheme(tokenType)+" "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusUnauthorized {
		return Identity{}, ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return id, nil
}

// authScheme normalizes the stored token_type for the Authorization
// header. The service issues "bearer" but the header convention is
// title case.
func authScheme(tokenType string) string {
	if strings.EqualFold(tokenType, "bearer") || tokenType == "" {
		return "Bearer"
	}
	return tokenType
}
