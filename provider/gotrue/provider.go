package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	authsync "github.com/chatdock/go-authsync"
	"github.com/golang-jwt/jwt/v5"
)

// Provider is a GoTrue-style identity provider client. It implements both
// authsync.IdentityProvider and authsync.EventSource: imperative calls and
// the background token refresher feed the same event stream the dispatcher
// consumes.
type Provider struct {
	config Config
	http   *http.Client
	logger authsync.Logger

	mu      sync.Mutex
	session *authsync.Session
	timer   *time.Timer
	closed  bool

	events chan authsync.Event
}

var (
	_ authsync.IdentityProvider = (*Provider)(nil)
	_ authsync.EventSource      = (*Provider)(nil)
)

// New creates a GoTrue provider client.
func New(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("gotrue: base URL is required")
	}
	cfg.setDefaults()

	logger := cfg.Logger
	if logger == nil {
		logger = authsync.DefaultLogger()
	}

	return &Provider{
		config: cfg,
		http:   cfg.HTTPClient,
		logger: logger,
		events: make(chan authsync.Event, cfg.EventBuffer),
	}, nil
}

// Events satisfies authsync.EventSource.
func (p *Provider) Events() <-chan authsync.Event {
	return p.events
}

// Close stops the background refresher and terminates the event stream.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	close(p.events)
}

// tokenResponse is the GoTrue token grant payload.
type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	RefreshToken string      `json:"refresh_token"`
	User         userPayload `json:"user"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type accessTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// SignInWithPassword exchanges an email and password for a session via the
// password grant.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*authsync.Session, error) {
	body := map[string]string{"email": email, "password": password}

	var tr tokenResponse
	if err := p.post(ctx, "/token?grant_type=password", body, "", &tr); err != nil {
		return nil, normalizeError("sign_in", err)
	}

	session := p.sessionFromToken(tr)
	p.adoptSession(session)
	p.emit(authsync.Event{Type: authsync.EventSignedIn, Session: session})
	return session, nil
}

// SignUp creates an identity account. When the server runs with email
// autoconfirm the response carries a session; otherwise the account is
// pending confirmation and the returned session is nil.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*authsync.Session, error) {
	body := map[string]string{"email": email, "password": password}

	var tr tokenResponse
	if err := p.post(ctx, "/signup", body, "", &tr); err != nil {
		return nil, normalizeError("sign_up", err)
	}

	if tr.AccessToken == "" {
		return nil, nil
	}

	session := p.sessionFromToken(tr)
	p.adoptSession(session)
	p.emit(authsync.Event{Type: authsync.EventSignedIn, Session: session})
	return session, nil
}

// SignOut revokes the session remotely and always tears down local provider
// state, emitting SIGNED_OUT even when the remote call failed.
func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	err := p.post(ctx, "/logout", nil, accessToken, nil)

	p.dropSession()
	p.emit(authsync.Event{Type: authsync.EventSignedOut})

	if err != nil {
		return normalizeError("sign_out", err)
	}
	return nil
}

// SendPasswordReset asks the provider to email a recovery link pointing at
// redirectURL. Unknown accounts are a pass-through: the provider answers
// success to avoid user enumeration, and an explicit not-found is treated
// the same way.
func (p *Provider) SendPasswordReset(ctx context.Context, email, redirectURL string) error {
	path := "/recover"
	if redirectURL != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectURL)
	}

	err := p.post(ctx, path, map[string]string{"email": email}, "", nil)
	if err == nil {
		return nil
	}

	var apiErr *apiError
	if asAPIError(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil
	}
	return normalizeError("password_reset", err)
}

// CurrentSession reports the session the provider holds, refreshing it first
// when the access token already expired.
func (p *Provider) CurrentSession(ctx context.Context) (*authsync.Session, error) {
	p.mu.Lock()
	session := p.session.Clone()
	p.mu.Unlock()

	if session == nil {
		return nil, nil
	}

	if !session.Expired(time.Now()) {
		return session, nil
	}

	if session.RefreshToken == "" {
		p.dropSession()
		return nil, nil
	}

	refreshed, err := p.refresh(ctx, session.RefreshToken)
	if err != nil {
		p.dropSession()
		return nil, normalizeError("current_session", err)
	}

	p.adoptSession(refreshed)
	return refreshed, nil
}

// refresh exchanges a refresh token for a new session.
func (p *Provider) refresh(ctx context.Context, refreshToken string) (*authsync.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var tr tokenResponse
	if err := p.post(ctx, "/token?grant_type=refresh_token", body, "", &tr); err != nil {
		return nil, err
	}
	return p.sessionFromToken(tr), nil
}

// sessionFromToken builds a session from a token grant, preferring the JWT
// claims for identity and expiry. The token is not signature-checked here:
// the provider is the trusted issuer and this layer treats the credential as
// opaque beyond its claims.
func (p *Provider) sessionFromToken(tr tokenResponse) *authsync.Session {
	session := &authsync.Session{
		UserID:       tr.User.ID,
		Email:        tr.User.Email,
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}

	if tr.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	claims := accessTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, &claims); err == nil {
		if claims.Subject != "" {
			session.UserID = claims.Subject
		}
		if claims.Email != "" {
			session.Email = claims.Email
		}
		if claims.ExpiresAt != nil {
			session.ExpiresAt = claims.ExpiresAt.Time
		}
	} else {
		p.logger.Debug("access token claims not parseable: %v", err)
	}

	return session
}

// adoptSession records the session and schedules its background refresh.
func (p *Provider) adoptSession(session *authsync.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	p.session = session.Clone()

	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}

	if session.RefreshToken == "" || session.ExpiresAt.IsZero() {
		return
	}

	delay := time.Until(session.ExpiresAt) - p.config.RefreshLeeway
	if delay < 0 {
		delay = 0
	}
	p.timer = time.AfterFunc(delay, p.refreshNow)
}

// dropSession clears provider state and stops the refresher.
func (p *Provider) dropSession() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = nil
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// refreshNow runs on the refresh timer: renew the session and emit
// TOKEN_REFRESHED, retry later on transient failure, or give up and emit
// SIGNED_OUT when the refresh token was rejected.
func (p *Provider) refreshNow() {
	p.mu.Lock()
	if p.closed || p.session == nil || p.session.RefreshToken == "" {
		p.mu.Unlock()
		return
	}
	refreshToken := p.session.RefreshToken
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultHTTPTimeout)
	defer cancel()

	session, err := p.refresh(ctx, refreshToken)
	if err == nil {
		p.adoptSession(session)
		p.emit(authsync.Event{Type: authsync.EventTokenRefreshed, Session: session})
		return
	}

	var apiErr *apiError
	if asAPIError(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		p.logger.Warn("refresh token rejected (%d), signing out", apiErr.Status)
		p.dropSession()
		p.emit(authsync.Event{Type: authsync.EventSignedOut})
		return
	}

	p.logger.Warn("session refresh failed, retrying in %s: %v", p.config.RetryInterval, err)
	p.mu.Lock()
	if !p.closed {
		p.timer = time.AfterFunc(p.config.RetryInterval, p.refreshNow)
	}
	p.mu.Unlock()
}

// emit pushes an event without blocking. A full buffer evicts the oldest
// queued event instead of dropping the new one: the stream is last-write-wins
// for the consumer, and the newest event (a SIGNED_OUT in particular) must
// always reach it.
func (p *Provider) emit(ev authsync.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	for {
		select {
		case p.events <- ev:
			return
		default:
		}

		select {
		case stale := <-p.events:
			p.logger.Warn("event buffer full, evicting %s", stale.Type)
		default:
		}
	}
}

// post issues a JSON POST against the auth API. A nil out skips decoding.
func (p *Provider) post(ctx context.Context, path string, body any, bearer string, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gotrue: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("gotrue: failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("apikey", p.config.APIKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gotrue: failed to decode response: %w", err)
	}
	return nil
}
