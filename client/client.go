// Package client is the authenticated JSON client for the dashboard backend
// API. It implements authsync.ProfileService for the profile surface and
// exposes the remaining read endpoints (documents, messages, billing) the
// dashboard renders.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	authsync "github.com/chatdock/go-authsync"
	"golang.org/x/oauth2"
)

const (
	apiPrefix          = "/api/v1"
	defaultHTTPTimeout = 15 * time.Second
)

// Config configures the backend API client.
type Config struct {
	// BaseURL is the backend root; it is normalized like the dashboard does
	// (scheme ensured, trailing slash and /api/v1 suffix stripped).
	BaseURL string

	// TokenSource supplies the bearer credential for every request,
	// typically Manager.TokenSource().
	TokenSource oauth2.TokenSource

	// HTTPClient overrides the default transport client (15s timeout). Its
	// transport is wrapped with the oauth2 bearer transport.
	HTTPClient *http.Client
}

// Client talks to the dashboard backend.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ authsync.ProfileService = (*Client)(nil)

// New creates a backend API client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("client: base URL is required")
	}
	if cfg.TokenSource == nil {
		return nil, fmt.Errorf("client: token source is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	authed := &http.Client{
		Timeout: httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: cfg.TokenSource,
			Base:   httpClient.Transport,
		},
	}

	return &Client{
		baseURL: NormalizeBaseURL(cfg.BaseURL),
		http:    authed,
	}, nil
}

// NormalizeBaseURL ensures a scheme, strips a trailing slash, and strips an
// /api/v1 suffix (it is re-added per request).
func NormalizeBaseURL(raw string) string {
	u := strings.TrimSpace(raw)
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	u = strings.TrimRight(u, "/")
	u = strings.TrimSuffix(u, apiPrefix)
	return u
}

// FetchProfile implements authsync.ProfileService. The backend resolves the
// user from the bearer token; userID is the caller's freshness tag and is
// checked against the returned row.
func (c *Client) FetchProfile(ctx context.Context, userID string) (*authsync.Profile, error) {
	var profile authsync.Profile
	if err := c.do(ctx, http.MethodGet, "/customers/me", nil, &profile); err != nil {
		return nil, err
	}

	if userID != "" && profile.ID.String() != userID {
		clone := authsync.ErrTransport.Clone()
		return nil, clone.WithMetadata(map[string]any{
			"expected_user": userID,
			"returned_user": profile.ID.String(),
		})
	}

	return &profile, nil
}

// UpdateProfile implements authsync.ProfileService.
func (c *Client) UpdateProfile(ctx context.Context, userID string, update authsync.ProfileUpdate) (*authsync.Profile, error) {
	var profile authsync.Profile
	if err := c.do(ctx, http.MethodPatch, "/customers/me", update, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// WebhookURL returns the tenant's inbound webhook URL.
func (c *Client) WebhookURL(ctx context.Context) (string, error) {
	var out struct {
		WebhookURL string `json:"webhook_url"`
	}
	if err := c.do(ctx, http.MethodGet, "/customers/me/webhook-url", nil, &out); err != nil {
		return "", err
	}
	return out.WebhookURL, nil
}

// ChatbotPrompt returns the tenant's assistant system prompt.
func (c *Client) ChatbotPrompt(ctx context.Context) (string, error) {
	var out struct {
		ChatbotPrompt string `json:"chatbot_prompt"`
	}
	if err := c.do(ctx, http.MethodGet, "/customers/me/chatbot-prompt", nil, &out); err != nil {
		return "", err
	}
	return out.ChatbotPrompt, nil
}

// SetChatbotPrompt replaces the tenant's assistant system prompt.
func (c *Client) SetChatbotPrompt(ctx context.Context, prompt string) error {
	body := map[string]string{"chatbot_prompt": prompt}
	return c.do(ctx, http.MethodPut, "/customers/me/chatbot-prompt", body, nil)
}

// Documents lists the tenant's uploaded documents.
func (c *Client) Documents(ctx context.Context) ([]Document, error) {
	var docs []Document
	if err := c.do(ctx, http.MethodGet, "/documents", nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// GetDocument returns a single document by id.
func (c *Client) GetDocument(ctx context.Context, id int64) (*Document, error) {
	var doc Document
	if err := c.do(ctx, http.MethodGet, "/documents/"+strconv.FormatInt(id, 10), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UploadDocument submits a knowledge-base file for processing as a multipart
// form and returns the created record in its initial state.
func (c *Client) UploadDocument(ctx context.Context, filename string, r io.Reader) (*Document, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("client: failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("client: failed to read upload payload: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("client: failed to finish upload form: %w", err)
	}

	path := "/documents/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("client: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var doc Document
	if err := c.send(req, http.MethodPost, path, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument removes a document by id.
func (c *Client) DeleteDocument(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/documents/"+strconv.FormatInt(id, 10), nil, nil)
}

// Messages lists the tenant's chat messages, newest first.
func (c *Client) Messages(ctx context.Context, query MessageQuery) ([]Message, error) {
	params := url.Values{}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Offset > 0 {
		params.Set("offset", strconv.Itoa(query.Offset))
	}
	if query.UserPhone != "" {
		params.Set("user_phone", query.UserPhone)
	}

	path := "/messages"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var messages []Message
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Conversations lists per-phone conversation summaries.
func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var conversations []Conversation
	if err := c.do(ctx, http.MethodGet, "/messages/conversations", nil, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// BillingUsage returns current usage counters and plan limits.
func (c *Client) BillingUsage(ctx context.Context) (*BillingUsage, error) {
	var usage BillingUsage
	if err := c.do(ctx, http.MethodGet, "/billing/usage", nil, &usage); err != nil {
		return nil, err
	}
	return &usage, nil
}

// BillingInvoices lists past billing records, newest period first.
func (c *Client) BillingInvoices(ctx context.Context) ([]Invoice, error) {
	var invoices []Invoice
	if err := c.do(ctx, http.MethodGet, "/billing/invoices", nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// do issues a JSON request under /api/v1 and decodes the response into out
// (nil skips decoding). Non-2xx responses surface the detail field.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return fmt.Errorf("client: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.send(req, method, path, out)
}

// send issues a prepared request and decodes the JSON response into out (nil
// skips decoding). Non-2xx responses surface the detail field.
func (c *Client) send(req *http.Request, method, path string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		clone := authsync.ErrTransport.Clone()
		clone.Source = err
		return clone.WithMetadata(map[string]any{
			"method": method,
			"path":   path,
			"cause":  err.Error(),
		})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(method, path, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		clone := authsync.ErrTransport.Clone()
		clone.Source = err
		return clone.WithMetadata(map[string]any{
			"method": method,
			"path":   path,
			"cause":  "undecodable response body",
		})
	}
	return nil
}
