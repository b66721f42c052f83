package gotrue

import (
	"net/http"
	"strings"
	"time"

	authsync "github.com/chatdock/go-authsync"
)

const (
	defaultRefreshLeeway = 30 * time.Second
	defaultRetryInterval = 30 * time.Second
	defaultEventBuffer   = 16
	defaultHTTPTimeout   = 10 * time.Second
)

// Config configures the GoTrue identity provider client.
type Config struct {
	// BaseURL is the auth endpoint root, e.g. https://xyz.supabase.co/auth/v1.
	BaseURL string

	// APIKey is the publishable project key, sent as the apikey header on
	// every request.
	APIKey string

	// HTTPClient overrides the default client (10s timeout).
	HTTPClient *http.Client

	// Logger overrides the default stdout logger.
	Logger authsync.Logger

	// RefreshLeeway is how long before access-token expiry the background
	// refresh fires. Default 30s.
	RefreshLeeway time.Duration

	// RetryInterval spaces retries after a transient refresh failure.
	// Default 30s.
	RetryInterval time.Duration

	// EventBuffer sizes the event channel. Default 16.
	EventBuffer int
}

func (c *Config) setDefaults() {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if c.RefreshLeeway == 0 {
		c.RefreshLeeway = defaultRefreshLeeway
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = defaultRetryInterval
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = defaultEventBuffer
	}
}
