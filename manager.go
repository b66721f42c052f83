package authsync

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

const resetPasswordPath = "/reset-password"

// Manager is the public facade over the session sync pipeline. It is
// constructed once at process start and passed by reference to consumers;
// there is no implicit global lookup.
type Manager struct {
	provider IdentityProvider
	profiles ProfileService
	events   EventSource
	tokens   TokenStore
	sessions *SessionStore
	cache    *ProfileCache
	logger   Logger
	now      Clock
	siteURL  string

	// mu serializes state transitions so the generation counter, session
	// store, token slot, and profile cache always move together.
	mu         sync.Mutex
	generation uint64

	loading atomic.Bool
	done    chan struct{}
	closed  sync.Once
	wg      sync.WaitGroup
}

// ManagerOption customizes Manager construction.
type ManagerOption func(*Manager)

// WithLogger overrides the default stdout logger.
func WithLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock injects a custom time source (useful for tests).
func WithClock(clock Clock) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithTokenStore overrides the in-memory default with a durable slot.
func WithTokenStore(store TokenStore) ManagerOption {
	return func(m *Manager) {
		if store != nil {
			m.tokens = store
		}
	}
}

// WithEventSource injects the provider event stream explicitly. Without this
// option the provider itself is used when it implements EventSource.
func WithEventSource(source EventSource) ManagerOption {
	return func(m *Manager) {
		if source != nil {
			m.events = source
		}
	}
}

// WithSiteURL sets the application origin used to derive the password reset
// callback URL.
func WithSiteURL(origin string) ManagerOption {
	return func(m *Manager) {
		m.siteURL = strings.TrimRight(origin, "/")
	}
}

// NewManager wires the facade. The provider and profile service are
// required; everything else has defaults.
func NewManager(provider IdentityProvider, profiles ProfileService, opts ...ManagerOption) (*Manager, error) {
	if provider == nil {
		return nil, goerrors.New("identity provider is required", goerrors.CategoryBadInput)
	}
	if profiles == nil {
		return nil, goerrors.New("profile service is required", goerrors.CategoryBadInput)
	}

	m := &Manager{
		provider: provider,
		profiles: profiles,
		tokens:   NewMemoryTokenStore(),
		sessions: NewSessionStore(),
		cache:    NewProfileCache(),
		logger:   defLogger{},
		now:      time.Now,
		done:     make(chan struct{}),
	}
	m.loading.Store(true)

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	if m.events == nil {
		if source, ok := provider.(EventSource); ok {
			m.events = source
		}
	}

	return m, nil
}

// Close stops the dispatch loop and waits for in-flight fetches to settle.
func (m *Manager) Close() {
	m.closed.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
}

// CurrentSession returns the active session, or nil when unauthenticated.
func (m *Manager) CurrentSession() *Session {
	return m.sessions.Current()
}

// CurrentUser returns the identity slice of the active session, or nil.
func (m *Manager) CurrentUser() *User {
	session := m.sessions.Current()
	if session == nil {
		return nil
	}
	user := session.User()
	return &user
}

// CurrentProfile returns the cached application profile, or nil.
func (m *Manager) CurrentProfile() *Profile {
	return m.cache.Get()
}

// SessionExpired reports whether the active session's access token already
// passed its expiry. False when unauthenticated.
func (m *Manager) SessionExpired() bool {
	session := m.sessions.Current()
	if session == nil {
		return false
	}
	return session.Expired(m.now())
}

// Loading reports whether the initial provider session lookup is still
// unresolved.
func (m *Manager) Loading() bool {
	return m.loading.Load()
}

// Subscribe registers an observer for session changes. Observers must not
// call back into the Manager synchronously.
func (m *Manager) Subscribe(fn func(*Session)) func() {
	return m.sessions.Subscribe(fn)
}

type signInRequest struct {
	Email    string
	Password string
}

func (r signInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type signUpRequest struct {
	Email       string
	Password    string
	CompanyName string
}

func (r signUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
		validation.Field(&r.CompanyName, validation.Required, validation.Length(1, 200)),
	)
}

// signUpSentinel picks the sentinel for a sign-up validation failure: a bad
// email keeps its dedicated sentinel, everything else is generic bad input.
func signUpSentinel(err error) *goerrors.Error {
	var fields validation.Errors
	if goerrors.As(err, &fields) {
		if _, ok := fields["Email"]; ok {
			return ErrInvalidEmail
		}
	}
	return ErrInvalidInput
}

// SignIn authenticates an email and password pair with the provider. On
// success the provider's SIGNED_IN event populates session and profile; the
// facade itself never writes the stores, keeping exactly one writer.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	req := signInRequest{Email: email, Password: password}
	if err := req.Validate(); err != nil {
		clone := ErrInvalidCredentials.Clone()
		clone.Source = err
		return clone.WithMetadata(map[string]any{"cause": err.Error()})
	}

	if _, err := m.provider.SignInWithPassword(ctx, email, password); err != nil {
		return WrapProviderErr(err)
	}
	return nil
}

// SignUp creates the identity account and applies its session, then issues a
// best-effort company-name enrichment against the new user. Enrichment
// failure is logged and swallowed: the profile row may already exist via a
// server-side trigger, and sign-up succeeded once the account exists.
func (m *Manager) SignUp(ctx context.Context, email, password, companyName string) error {
	req := signUpRequest{Email: email, Password: password, CompanyName: companyName}
	if err := req.Validate(); err != nil {
		clone := signUpSentinel(err).Clone()
		clone.Source = err
		return clone.WithMetadata(map[string]any{"cause": err.Error()})
	}

	session, err := m.provider.SignUp(ctx, email, password)
	if err != nil {
		return WrapProviderErr(err)
	}

	if session == nil {
		// Account created but pending confirmation; no session to apply.
		return nil
	}

	// Apply the session ahead of the event pipeline so the enrichment call
	// runs authenticated. The dispatcher's own SIGNED_IN event re-applies it
	// idempotently at a later generation.
	m.handleEvent(ctx, Event{Type: EventSignedIn, Session: session})

	update := ProfileUpdate{CompanyName: &companyName}
	if _, err := m.profiles.UpdateProfile(ctx, session.UserID, update); err != nil {
		m.logger.Warn("profile enrichment after sign-up failed for %s: %v", session.UserID, err)
	}

	return nil
}

// SignOut invokes the provider's sign-out and unconditionally clears local
// state. Local logout never gets stuck behind a network failure.
func (m *Manager) SignOut(ctx context.Context) error {
	var token string
	if session := m.sessions.Current(); session != nil {
		token = session.AccessToken
	}

	if err := m.provider.SignOut(ctx, token); err != nil {
		m.logger.Warn("remote sign-out failed: %v", err)
	}

	m.clearSession("sign_out")
	return nil
}

// ResetPassword asks the provider to dispatch a password reset email with a
// callback pointing at this application's reset page. Account non-existence
// is a provider pass-through, not an error.
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		clone := ErrInvalidEmail.Clone()
		clone.Source = err
		return clone.WithMetadata(map[string]any{"email": email})
	}

	if err := m.provider.SendPasswordReset(ctx, email, m.resetRedirectURL()); err != nil {
		return WrapProviderErr(err)
	}
	return nil
}

// RefreshProfile re-fetches the profile for the current user. Each refresh
// is a new generation, so overlapping refreshes resolve to the last one
// issued regardless of network completion order. The session is captured
// under the same lock as the bump, so the fetch always targets whoever owns
// the session at bump time even when a transition races the call.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	m.mu.Lock()
	session := m.sessions.Current()
	if session == nil {
		m.mu.Unlock()
		return nil
	}
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	m.spawnProfileFetch(ctx, gen, session.UserID)
	return nil
}

func (m *Manager) resetRedirectURL() string {
	if m.siteURL == "" {
		return resetPasswordPath
	}
	redirect, err := url.JoinPath(m.siteURL, resetPasswordPath)
	if err != nil {
		return m.siteURL + resetPasswordPath
	}
	return redirect
}
