package authsync_test

import (
	"testing"
	"time"

	authsync "github.com/chatdock/go-authsync"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreSetAndClear(t *testing.T) {
	store := authsync.NewSessionStore()
	assert.Nil(t, store.Current())

	session := testSession(uuid.New().String())
	store.Set(session)

	got := store.Current()
	require.NotNil(t, got)
	assert.Equal(t, session.UserID, got.UserID)

	store.Clear()
	assert.Nil(t, store.Current())
}

func TestSessionStoreReturnsCopies(t *testing.T) {
	store := authsync.NewSessionStore()
	session := testSession(uuid.New().String())
	store.Set(session)

	got := store.Current()
	got.AccessToken = "mutated"

	again := store.Current()
	assert.Equal(t, session.AccessToken, again.AccessToken)

	// Mutating the original after Set does not leak into the store either.
	session.Email = "mutated@example.com"
	assert.NotEqual(t, "mutated@example.com", store.Current().Email)
}

func TestSessionStoreNotifiesObservers(t *testing.T) {
	store := authsync.NewSessionStore()

	var notified []*authsync.Session
	unsubscribe := store.Subscribe(func(s *authsync.Session) {
		notified = append(notified, s)
	})

	session := testSession(uuid.New().String())
	store.Set(session)
	store.Clear()

	require.Len(t, notified, 2)
	require.NotNil(t, notified[0])
	assert.Equal(t, session.UserID, notified[0].UserID)
	assert.Nil(t, notified[1])

	unsubscribe()
	store.Set(session)
	assert.Len(t, notified, 2)
}

func TestSessionStoreMultipleObservers(t *testing.T) {
	store := authsync.NewSessionStore()

	first, second := 0, 0
	unsubFirst := store.Subscribe(func(*authsync.Session) { first++ })
	store.Subscribe(func(*authsync.Session) { second++ })

	store.Set(testSession(uuid.New().String()))
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)

	unsubFirst()
	store.Clear()
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestSessionExpiry(t *testing.T) {
	now := time.Now()

	session := testSession(uuid.New().String())
	session.ExpiresAt = now.Add(time.Minute)
	assert.False(t, session.Expired(now))
	assert.True(t, session.Expired(now.Add(2*time.Minute)))

	// Zero expiry never expires.
	session.ExpiresAt = time.Time{}
	assert.False(t, session.Expired(now.Add(24*time.Hour)))

	var nilSession *authsync.Session
	assert.True(t, nilSession.Expired(now))
}

func TestSessionUserAccessors(t *testing.T) {
	userID := uuid.New().String()
	session := testSession(userID)

	user := session.User()
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, session.Email, user.Email)

	parsed, err := session.UserUUID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsed.String())

	session.UserID = "not-a-uuid"
	_, err = session.UserUUID()
	assert.Error(t, err)

	var nilSession *authsync.Session
	assert.Equal(t, authsync.User{}, nilSession.User())
	_, err = nilSession.UserUUID()
	assert.Error(t, err)
}

func TestProfileCache(t *testing.T) {
	cache := authsync.NewProfileCache()
	assert.Nil(t, cache.Get())

	userID := uuid.New().String()
	profile := testProfile(userID, "Acme")
	cache.Set(profile)

	got := cache.Get()
	require.NotNil(t, got)
	assert.Equal(t, profile.ID, got.ID)

	// Reads are copies.
	mutated := "Mutated"
	got.CompanyName = &mutated
	assert.Equal(t, "Acme", *cache.Get().CompanyName)

	cache.Clear()
	assert.Nil(t, cache.Get())
}
