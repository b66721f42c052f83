package authsync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const tokenFile = "access_token.json"

// FileTokenStore persists the bearer credential as a JSON file under the
// user's home directory so it survives the process. Single writer by
// construction; no cross-process locking.
type FileTokenStore struct {
	path string
}

var _ TokenStore = (*FileTokenStore)(nil)

type storedToken struct {
	AccessToken string `json:"access_token"`
}

// NewFileTokenStore creates the backing directory (0700) and returns a store
// writing to <home>/<dir>/access_token.json.
func NewFileTokenStore(dir string) (*FileTokenStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	base := filepath.Join(home, dir)
	if err := os.MkdirAll(base, 0700); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	return &FileTokenStore{path: filepath.Join(base, tokenFile)}, nil
}

// NewFileTokenStoreAt returns a store writing to an explicit file path.
func NewFileTokenStoreAt(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Persist writes the token to the slot, replacing any previous value.
func (s *FileTokenStore) Persist(token string) error {
	data, err := json.Marshal(storedToken{AccessToken: token})
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	return os.WriteFile(s.path, data, 0600)
}

// Remove deletes the slot. Removing an empty slot is not an error.
func (s *FileTokenStore) Remove() error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(s.path)
}

// Load reads the persisted token. Not part of the sync pipeline; exposed for
// collaborators that outlive the process, such as CLI tooling.
func (s *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	var stored storedToken
	if err := json.Unmarshal(data, &stored); err != nil {
		return "", fmt.Errorf("failed to unmarshal token file: %w", err)
	}
	return stored.AccessToken, nil
}

// MemoryTokenStore keeps the slot in memory. Used in tests and in hosts that
// disallow filesystem access.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
	set   bool
}

var _ TokenStore = (*MemoryTokenStore)(nil)

// NewMemoryTokenStore returns an empty in-memory slot.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Persist stores the token.
func (s *MemoryTokenStore) Persist(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.set = true
	return nil
}

// Remove clears the slot.
func (s *MemoryTokenStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.set = false
	return nil
}

// Token reports the current slot value and whether it is set.
func (s *MemoryTokenStore) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.set
}
