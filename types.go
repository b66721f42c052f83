package authsync

import (
	"context"
	"fmt"
	"time"
)

// Logger is the minimal logging contract consumers can satisfy with their
// own logging stack.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// EventType classifies provider-pushed authentication events.
type EventType string

const (
	EventInitialSession EventType = "INITIAL_SESSION"
	EventSignedIn       EventType = "SIGNED_IN"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventUserUpdated    EventType = "USER_UPDATED"
	EventSignedOut      EventType = "SIGNED_OUT"
)

// Event is a single entry in the provider's authentication event stream.
// Session is nil for sign-out style events.
type Event struct {
	Type    EventType
	Session *Session
}

// EventSource produces the provider's push event stream. Implementations
// close the channel when the stream terminates.
type EventSource interface {
	Events() <-chan Event
}

// IdentityProvider is the external system of record for authentication.
// The wire protocol is the provider's own business; this layer only consumes
// the operations below.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	SendPasswordReset(ctx context.Context, email, redirectURL string) error

	// CurrentSession reports any session the provider already holds at
	// startup. (nil, nil) means no active session.
	CurrentSession(ctx context.Context) (*Session, error)
}

// TokenStore is the durable slot for the current bearer credential. It is
// side-effect only: there is no read path in the sync pipeline, and the
// in-memory session stays authoritative when persistence fails.
type TokenStore interface {
	Persist(token string) error
	Remove() error
}

// ProfileService performs the authenticated profile round trips against the
// backend API.
type ProfileService interface {
	FetchProfile(ctx context.Context, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*Profile, error)
}

// ProfileUpdate carries the mutable profile fields. Nil fields are left
// untouched by the backend.
type ProfileUpdate struct {
	CompanyName    *string `json:"company_name,omitempty"`
	ManychatAPIKey *string `json:"manychat_api_key,omitempty"`
	ChatbotPrompt  *string `json:"chatbot_prompt,omitempty"`
}

type defLogger struct{}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHSYNC "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHSYNC "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHSYNC "+newline(format), args...)
}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHSYNC "+newline(format), args...)
}

// DefaultLogger returns the stdout fallback logger.
func DefaultLogger() Logger {
	return defLogger{}
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// Clock is an injectable time source, useful for tests.
type Clock func() time.Time
