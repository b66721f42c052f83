package authsync_test

import (
	"os"
	"path/filepath"
	"testing"

	authsync "github.com/chatdock/go-authsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access_token.json")
	store := authsync.NewFileTokenStoreAt(path)

	// Empty slot reads as empty, not an error.
	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Persist("jwt-abc"))

	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", token)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileTokenStoreOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access_token.json")
	store := authsync.NewFileTokenStoreAt(path)

	require.NoError(t, store.Persist("first"))
	require.NoError(t, store.Persist("second"))

	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "second", token)
}

func TestFileTokenStoreRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access_token.json")
	store := authsync.NewFileTokenStoreAt(path)

	// Removing an empty slot is not an error.
	require.NoError(t, store.Remove())

	require.NoError(t, store.Persist("jwt-abc"))
	require.NoError(t, store.Remove())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Idempotent.
	require.NoError(t, store.Remove())
}

func TestFileTokenStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access_token.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	store := authsync.NewFileTokenStoreAt(path)
	_, err := store.Load()
	assert.Error(t, err)
}

func TestMemoryTokenStore(t *testing.T) {
	store := authsync.NewMemoryTokenStore()

	_, ok := store.Token()
	assert.False(t, ok)

	require.NoError(t, store.Persist("jwt-abc"))
	token, ok := store.Token()
	assert.True(t, ok)
	assert.Equal(t, "jwt-abc", token)

	require.NoError(t, store.Remove())
	_, ok = store.Token()
	assert.False(t, ok)
}
