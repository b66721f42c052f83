package authsync

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is the authenticated identity currently active: user id, bearer
// credential, and expiry. The token content is opaque to this layer.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// User is the identity slice of a session exposed to UI collaborators.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// User returns the identity carried by the session.
func (s *Session) User() User {
	if s == nil {
		return User{}
	}
	return User{ID: s.UserID, Email: s.Email}
}

// UserUUID parses the session user id as a UUID.
func (s *Session) UserUUID() (uuid.UUID, error) {
	if s == nil {
		return uuid.Nil, fmt.Errorf("no session")
	}
	return uuid.Parse(s.UserID)
}

// Expired reports whether the access token expiry has passed at the given
// instant. A zero expiry never expires.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return now.After(s.ExpiresAt)
}

// Clone returns an independent copy so observers cannot mutate store state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	dup := *s
	return &dup
}

func (s Session) String() string {
	expires := "<none>"
	if !s.ExpiresAt.IsZero() {
		expires = s.ExpiresAt.Format(time.RFC1123)
	}
	return fmt.Sprintf("user=%s email=%s expires=%s", s.UserID, s.Email, expires)
}
