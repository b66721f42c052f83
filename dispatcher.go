package authsync

import (
	"context"
)

// Start establishes the initial state from the provider and launches the
// dispatch loop consuming the provider's event stream. The loop runs until
// ctx is cancelled or Close is called.
func (m *Manager) Start(ctx context.Context) error {
	session, err := m.provider.CurrentSession(ctx)
	if err != nil {
		m.logger.Warn("initial session lookup failed: %v", err)
	}

	if session != nil {
		m.handleEvent(ctx, Event{Type: EventInitialSession, Session: session})
	} else {
		m.loading.Store(false)
	}

	if m.events == nil {
		m.logger.Debug("no event source configured, running in imperative-only mode")
		return nil
	}

	m.wg.Add(1)
	go m.run(ctx)

	return nil
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	stream := m.events.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case ev, ok := <-stream:
			if !ok {
				return
			}
			m.handleEvent(ctx, ev)
		}
	}
}

// handleEvent applies a single provider event. Any event carrying a session
// re-establishes the authenticated state; any event without one tears it
// down. Both paths bump the generation so in-flight fetches issued before
// the event can no longer apply.
func (m *Manager) handleEvent(ctx context.Context, ev Event) {
	if ev.Session != nil {
		m.applySession(ctx, ev)
	} else {
		m.clearSession(string(ev.Type))
	}
	m.loading.Store(false)
}

// applySession performs an authenticated transition: bump generation, update
// the session store and the token slot together, then issue the dependent
// profile fetch tagged with the new generation.
func (m *Manager) applySession(ctx context.Context, ev Event) {
	session := ev.Session

	m.mu.Lock()
	m.generation++
	gen := m.generation

	m.sessions.Set(session)
	if err := m.tokens.Persist(session.AccessToken); err != nil {
		// Non-fatal: the in-memory session stays authoritative for this
		// process lifetime.
		m.logger.Warn("token persist failed: %v", err)
	}
	m.mu.Unlock()

	m.logger.Debug("session applied event=%s user=%s generation=%d", ev.Type, session.UserID, gen)
	m.spawnProfileFetch(ctx, gen, session.UserID)
}

// clearSession performs an unauthenticated transition: bump generation and
// clear session, token slot, and profile cache in one step.
func (m *Manager) clearSession(reason string) {
	m.mu.Lock()
	m.generation++
	gen := m.generation

	m.sessions.Clear()
	if err := m.tokens.Remove(); err != nil {
		m.logger.Warn("token remove failed: %v", err)
	}
	m.cache.Clear()
	m.mu.Unlock()

	m.logger.Debug("session cleared reason=%s generation=%d", reason, gen)
}

// spawnProfileFetch issues the asynchronous profile lookup for userID,
// tagged with the generation current at issue time.
func (m *Manager) spawnProfileFetch(ctx context.Context, gen uint64, userID string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		profile, err := m.profiles.FetchProfile(ctx, userID)
		if err != nil {
			// Profile enrichment is secondary to authentication validity;
			// failures never propagate past this boundary.
			m.logger.Error("profile fetch for %s failed: %v", userID, err)
			return
		}

		m.applyProfile(gen, userID, profile)
	}()
}

// applyProfile commits a fetch result only when its generation is still
// current and the target user still owns the session. Stale results are
// discarded silently.
func (m *Manager) applyProfile(gen uint64, userID string, profile *Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		m.logger.Debug("discarding stale profile fetch user=%s generation=%d current=%d", userID, gen, m.generation)
		return
	}

	current := m.sessions.Current()
	if current == nil || current.UserID != userID {
		m.logger.Debug("discarding profile fetch for departed user=%s", userID)
		return
	}

	m.cache.Set(profile)
}
