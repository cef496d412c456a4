package onboarding

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	slingshot "github.com/slingshot-hq/go-slingshot"
)

const defaultTimeout = 30 * time.Second

// TokenSource supplies the bearer credential for each call, typically the
// session's TokenStore.
type TokenSource func() (string, bool)

// Client calls the remote onboarding endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// ClientOption customizes the onboarding client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates an onboarding client rooted at baseURL.
func NewClient(baseURL string, tokens TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		tokens:  tokens,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// UpdatePersonalInfo commits the personal info step.
func (c *Client) UpdatePersonalInfo(ctx context.Context, info PersonalInfo) error {
	return c.sendJSON(ctx, http.MethodPatch, "/onboarding/personal-info", info, "Failed to update personal info")
}

// UpdateProfile patches arbitrary profile fields.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]any) error {
	return c.sendJSON(ctx, http.MethodPatch, "/users/profile", fields, "Failed to update profile")
}

// UpdateCareerPreferences commits the career preferences step.
func (c *Client) UpdateCareerPreferences(ctx context.Context, prefs CareerPreferences) error {
	return c.sendJSON(ctx, http.MethodPatch, "/users/career-preferences", prefs, "Failed to update career preferences")
}

// UpdateJobSearchSettings commits the job search step.
func (c *Client) UpdateJobSearchSettings(ctx context.Context, settings JobSearchSettings) error {
	return c.sendJSON(ctx, http.MethodPatch, "/users/job-search-settings", settings, "Failed to update job search settings")
}

// SaveDocumentText stores pasted document text.
func (c *Client) SaveDocumentText(ctx context.Context, cvText, writingSampleText string) error {
	payload := map[string]string{}
	if cvText != "" {
		payload["cvText"] = cvText
	}
	if writingSampleText != "" {
		payload["writingSampleText"] = writingSampleText
	}
	return c.sendJSON(ctx, http.MethodPost, "/onboarding/documents/text", payload, "Failed to save document text")
}

// UploadDocuments sends document files through the multipart endpoint.
func (c *Client) UploadDocuments(ctx context.Context, cv, writingSample *Upload) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for field, upload := range map[string]*Upload{
		"cv":            cv,
		"writingSample": writingSample,
	} {
		if upload == nil {
			continue
		}
		part, err := writer.CreateFormFile(field, upload.Filename)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build document upload")
		}
		if _, err := part.Write(upload.Content); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build document upload")
		}
	}

	if err := writer.Close(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build document upload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/onboarding/documents", &body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build document upload")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req, "Failed to upload documents")
}

// Complete marks onboarding finished.
func (c *Client) Complete(ctx context.Context) error {
	return c.sendJSON(ctx, http.MethodPost, "/onboarding/complete", struct{}{}, "Failed to complete onboarding")
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload any, fallback string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode onboarding payload")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build onboarding request")
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, fallback)
}

func (c *Client) do(req *http.Request, fallback string) error {
	token, ok := c.tokens()
	if !ok {
		return slingshot.ErrNoCredential
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return slingshot.ErrNetworkUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	message := fallback
	if body, rerr := io.ReadAll(resp.Body); rerr == nil {
		var payload struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
			message = payload.Message
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return goerrors.New(message, goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return goerrors.New(message, goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	default:
		return goerrors.New(message, goerrors.CategoryOperation).
			WithCode(goerrors.CodeInternal)
	}
}
