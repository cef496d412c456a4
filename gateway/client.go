// Package gateway is the stateless façade over the remote Slingshot
// authentication endpoints. It owns nothing: credentials go to the caller,
// failures are normalized into the session error taxonomy.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	slingshot "github.com/slingshot-hq/go-slingshot"
)

const defaultTimeout = 10 * time.Second

// Client talks to the remote auth API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  slingshot.Logger
}

var _ slingshot.Gateway = (*Client)(nil)

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout on the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// WithLogger overrides the client logger.
func WithLogger(logger slingshot.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a gateway client rooted at baseURL, e.g.
// "https://api.slingshot.example/api/v1".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  noopLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// envelope is the remote API's uniform response shape.
type envelope struct {
	Data    authData `json:"data"`
	Message string   `json:"message"`
}

type authData struct {
	Token string          `json:"token"`
	User  *slingshot.User `json:"user,omitempty"`
}

type userEnvelope struct {
	Data    *slingshot.User `json:"data"`
	Message string          `json:"message"`
}

// Register creates an account and returns the issued credential.
func (c *Client) Register(ctx context.Context, input slingshot.RegisterInput) (string, error) {
	return c.redeem(ctx, "/auth/register", input, "Registration failed")
}

// Login exchanges the email/password pair for a credential.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	return c.redeem(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "Failed to login")
}

// VerifyEmail redeems a verification code for a credential.
func (c *Client) VerifyEmail(ctx context.Context, email, otp string) (string, error) {
	return c.redeem(ctx, "/auth/verify-email", map[string]string{
		"email": email,
		"otp":   otp,
	}, "Failed to verify email")
}

// CurrentUser fetches the profile the token belongs to.
func (c *Client) CurrentUser(ctx context.Context, token string) (*slingshot.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user/me", nil)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build profile request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("profile fetch transport error: %v", err)
		return nil, slingshot.ErrNetworkUnavailable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, slingshot.ErrNetworkUnavailable
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.remoteError(resp.StatusCode, body, "/user/me", "Failed to fetch user data")
	}

	var env userEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Data == nil {
		return nil, goerrors.New("malformed profile payload", goerrors.CategoryInternal)
	}

	return env.Data, nil
}

// OAuthRedirectURL is where the browser navigates to start the provider
// handshake. Fire-and-forget: resumption happens on the landing route.
func (c *Client) OAuthRedirectURL(provider string) string {
	if provider == "" {
		provider = "google"
	}
	return fmt.Sprintf("%s/auth/%s", c.baseURL, provider)
}

// redeem POSTs a credential-issuing request and unwraps the token.
func (c *Client) redeem(ctx context.Context, path string, payload any, fallback string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode auth payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build auth request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("auth transport error on %s: %v", path, err)
		return "", slingshot.ErrNetworkUnavailable
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", slingshot.ErrNetworkUnavailable
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.remoteError(resp.StatusCode, respBody, path, fallback)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil || env.Data.Token == "" {
		return "", goerrors.New("malformed auth payload", goerrors.CategoryInternal)
	}

	return env.Data.Token, nil
}

// remoteError maps an error payload onto the session taxonomy, preserving
// the server's human-readable message when it sent one.
func (c *Client) remoteError(status int, body []byte, path, fallback string) error {
	message := fallback
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		message = payload.Message
	}

	switch {
	case status == http.StatusUnauthorized && strings.Contains(path, "verify-email"):
		return goerrors.New(message, goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return goerrors.New(message, goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	case status == http.StatusConflict:
		return goerrors.New(message, goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict)
	case status >= 400 && status < 500:
		return goerrors.New(message, goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	default:
		return goerrors.New(message, goerrors.CategoryOperation).
			WithCode(goerrors.CodeInternal)
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
