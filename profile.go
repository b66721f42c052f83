package authsync

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRole is the role assigned to new tenant accounts by the backend.
const DefaultRole = "account_user"

// Profile is the extended per-tenant application record keyed by the
// session's user id. Nullable columns are pointers.
type Profile struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	CompanyName    *string    `json:"company_name"`
	ManychatAPIKey *string    `json:"manychat_api_key"`
	WebhookURL     *string    `json:"webhook_url"`
	ChatbotPrompt  *string    `json:"chatbot_prompt"`
	Role           string     `json:"role"`
	CreatedAt      *time.Time `json:"created_at"`
}

// Clone returns an independent copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	dup := *p
	return &dup
}

// ProfileCache holds the single cached profile for the active session.
// Writes happen only on the dispatch path after the freshness check passed,
// so the cache never describes a different or absent user.
type ProfileCache struct {
	mu      sync.RWMutex
	profile *Profile
}

// NewProfileCache returns an empty cache.
func NewProfileCache() *ProfileCache {
	return &ProfileCache{}
}

// Get returns the cached profile, or nil when no profile is cached.
func (c *ProfileCache) Get() *Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile.Clone()
}

// Set replaces the cached profile.
func (c *ProfileCache) Set(p *Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile = p.Clone()
}

// Clear drops the cached profile.
func (c *ProfileCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile = nil
}
