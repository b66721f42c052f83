package authsync_test

import (
	"context"
	"errors"
	"sync"
	"time"

	authsync "github.com/chatdock/go-authsync"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockIdentityProvider implements authsync.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (*authsync.Session, error) {
	args := m.Called(ctx, email, password)
	var session *authsync.Session
	if v := args.Get(0); v != nil {
		session = v.(*authsync.Session)
	}
	return session, args.Error(1)
}

func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password string) (*authsync.Session, error) {
	args := m.Called(ctx, email, password)
	var session *authsync.Session
	if v := args.Get(0); v != nil {
		session = v.(*authsync.Session)
	}
	return session, args.Error(1)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

func (m *MockIdentityProvider) SendPasswordReset(ctx context.Context, email, redirectURL string) error {
	args := m.Called(ctx, email, redirectURL)
	return args.Error(0)
}

func (m *MockIdentityProvider) CurrentSession(ctx context.Context) (*authsync.Session, error) {
	args := m.Called(ctx)
	var session *authsync.Session
	if v := args.Get(0); v != nil {
		session = v.(*authsync.Session)
	}
	return session, args.Error(1)
}

// scriptedEvents is an EventSource tests drive by hand.
type scriptedEvents struct {
	ch chan authsync.Event
}

func newScriptedEvents() *scriptedEvents {
	return &scriptedEvents{ch: make(chan authsync.Event, 16)}
}

func (s *scriptedEvents) Events() <-chan authsync.Event {
	return s.ch
}

func (s *scriptedEvents) Emit(ev authsync.Event) {
	s.ch <- ev
}

func (s *scriptedEvents) Close() {
	close(s.ch)
}

type fetchReply struct {
	profile *authsync.Profile
	err     error
}

type fetchCall struct {
	userID string
	reply  chan fetchReply
}

func (c fetchCall) respond(p *authsync.Profile, err error) {
	c.reply <- fetchReply{profile: p, err: err}
}

// stubProfiles hands each FetchProfile call to the test over a channel so the
// test controls completion order exactly.
type stubProfiles struct {
	fetches   chan fetchCall
	updates   chan authsync.ProfileUpdate
	updateErr error
}

func newStubProfiles() *stubProfiles {
	return &stubProfiles{
		fetches: make(chan fetchCall, 16),
		updates: make(chan authsync.ProfileUpdate, 16),
	}
}

func (s *stubProfiles) FetchProfile(ctx context.Context, userID string) (*authsync.Profile, error) {
	call := fetchCall{userID: userID, reply: make(chan fetchReply, 1)}
	s.fetches <- call
	r := <-call.reply
	return r.profile, r.err
}

func (s *stubProfiles) UpdateProfile(ctx context.Context, userID string, update authsync.ProfileUpdate) (*authsync.Profile, error) {
	s.updates <- update
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &authsync.Profile{Email: "updated@example.com", CompanyName: update.CompanyName}, nil
}

// autoProfiles resolves fetches immediately from a fixed map.
type autoProfiles struct {
	mu        sync.Mutex
	byUser    map[string]*authsync.Profile
	updates   []authsync.ProfileUpdate
	updateErr error
}

func newAutoProfiles() *autoProfiles {
	return &autoProfiles{byUser: map[string]*authsync.Profile{}}
}

func (s *autoProfiles) add(userID string, p *authsync.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userID] = p
}

func (s *autoProfiles) FetchProfile(ctx context.Context, userID string) (*authsync.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.byUser[userID]; ok {
		return p.Clone(), nil
	}
	return nil, authsync.ErrProfileNotFound
}

func (s *autoProfiles) UpdateProfile(ctx context.Context, userID string, update authsync.ProfileUpdate) (*authsync.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update)
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	p, ok := s.byUser[userID]
	if !ok {
		return nil, authsync.ErrProfileNotFound
	}
	if update.CompanyName != nil {
		p.CompanyName = update.CompanyName
	}
	return p.Clone(), nil
}

// failingTokenStore rejects every write.
type failingTokenStore struct{}

func (failingTokenStore) Persist(string) error { return errors.New("disk full") }
func (failingTokenStore) Remove() error        { return errors.New("disk full") }

func testSession(userID string) *authsync.Session {
	return &authsync.Session{
		UserID:       userID,
		Email:        userID[:8] + "@example.com",
		AccessToken:  "token-" + userID,
		RefreshToken: "refresh-" + userID,
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func testProfile(userID, company string) *authsync.Profile {
	id := uuid.MustParse(userID)
	return &authsync.Profile{
		ID:          id,
		Email:       userID[:8] + "@example.com",
		CompanyName: &company,
		Role:        authsync.DefaultRole,
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
