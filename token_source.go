package authsync

import (
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/oauth2"
)

// ErrNoSession is returned when an authenticated operation runs without an
// active session.
var ErrNoSession = goerrors.New("no active session", goerrors.CategoryAuth).
	WithTextCode("auth_no_session").
	WithCode(goerrors.CodeUnauthorized)

// sessionTokenSource yields the live session's bearer credential, so HTTP
// clients built on it always send the freshest token after a refresh.
type sessionTokenSource struct {
	sessions *SessionStore
}

var _ oauth2.TokenSource = sessionTokenSource{}

// Token satisfies oauth2.TokenSource.
func (ts sessionTokenSource) Token() (*oauth2.Token, error) {
	session := ts.sessions.Current()
	if session == nil {
		return nil, ErrNoSession
	}

	return &oauth2.Token{
		AccessToken: session.AccessToken,
		TokenType:   "Bearer",
		Expiry:      session.ExpiresAt,
	}, nil
}

// TokenSource exposes the current credential as an oauth2.TokenSource for
// authenticated backend clients.
func (m *Manager) TokenSource() oauth2.TokenSource {
	return sessionTokenSource{sessions: m.sessions}
}
