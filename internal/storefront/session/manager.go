// Package session owns the storefront controllers of live client sessions.
package session

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tair/storefront/internal/storefront"
	"github.com/tair/storefront/internal/storefront/localstore"
	"github.com/tair/storefront/internal/storefront/remote"
	"github.com/tair/storefront/pkg/logger"
)

// LocalFactory returns the guest-state store for one session.
type LocalFactory func(sessionID string) storefront.LocalStore

// MemoryLocals keeps guest state in process memory, one store per session.
func MemoryLocals() LocalFactory {
	var (
		mu     sync.Mutex
		stores = make(map[string]storefront.LocalStore)
	)
	return func(sessionID string) storefront.LocalStore {
		mu.Lock()
		defer mu.Unlock()
		s, ok := stores[sessionID]
		if !ok {
			s = localstore.NewMemoryStore()
			stores[sessionID] = s
		}
		return s
	}
}

// RedisLocals keeps each session's guest blob in Redis.
func RedisLocals(client *redis.Client, ttl time.Duration) LocalFactory {
	return func(sessionID string) storefront.LocalStore {
		return localstore.NewRedisStore(client, sessionID, ttl)
	}
}

// FileLocals keeps each session's guest blob in its own directory under
// dir. Sessions whose directory cannot be resolved fall back to memory.
func FileLocals(dir string) LocalFactory {
	memory := MemoryLocals()
	return func(sessionID string) storefront.LocalStore {
		store, err := localstore.NewFileStore(filepath.Join(dir, filepath.Base(sessionID)))
		if err != nil {
			logger.Logger.Warn().
				Err(err).
				Str("session_id", sessionID).
				Str("state_dir", dir).
				Msg("Guest state dir unusable, keeping state in memory")
			return memory(sessionID)
		}
		return store
	}
}

type entry struct {
	// ready is closed once controller and err are set
	ready      chan struct{}
	controller *storefront.Controller
	err        error
	lastSeen   time.Time
}

// identity is a session's sign-in. It outlives controller eviction so a
// rebuilt controller comes back authenticated.
type identity struct {
	userID  string
	token   string
	expires time.Time
}

// Manager hands out exactly one controller per session id and drops
// sessions idle for longer than the TTL. Guest state outlives eviction in
// the session's LocalStore, a sign-in in the manager until its token
// expires. Both are restored on the next request.
type Manager struct {
	remote storefront.RemoteStore
	locals LocalFactory
	ttl    time.Duration

	mu         sync.Mutex
	sessions   map[string]*entry
	identities map[string]identity
	now        func() time.Time
}

// NewManager creates a session manager
func NewManager(remote storefront.RemoteStore, locals LocalFactory, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Manager{
		remote:     remote,
		locals:     locals,
		ttl:        ttl,
		sessions:   make(map[string]*entry),
		identities: make(map[string]identity),
		now:        time.Now,
	}
}

// Get returns the session's controller, creating it on first use. A
// controller rebuilt for a signed-in session is switched to that user
// before it is handed out.
func (m *Manager) Get(ctx context.Context, sessionID string) (*storefront.Controller, error) {
	m.mu.Lock()
	e, ok := m.sessions[sessionID]
	if !ok {
		e = &entry{ready: make(chan struct{})}
		m.sessions[sessionID] = e
		who, signedIn := m.identityLocked(sessionID)
		m.mu.Unlock()

		e.controller, e.err = m.open(ctx, sessionID, who, signedIn)
		if e.err != nil {
			m.mu.Lock()
			if m.sessions[sessionID] == e {
				delete(m.sessions, sessionID)
			}
			m.mu.Unlock()
		}
		close(e.ready)
	} else {
		m.mu.Unlock()
	}

	select {
	case <-e.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if e.err != nil {
		return nil, e.err
	}

	m.mu.Lock()
	e.lastSeen = m.now()
	m.mu.Unlock()
	return e.controller, nil
}

func (m *Manager) open(ctx context.Context, sessionID string, who identity, signedIn bool) (*storefront.Controller, error) {
	c, err := storefront.New(ctx, m.locals(sessionID), m.remote)
	if err != nil {
		return nil, err
	}
	if !signedIn {
		logger.Debug(ctx).Str("session_id", sessionID).Msg("Session controller created")
		return c, nil
	}

	// The mode switch happens before any remote call, so a failed merge or
	// refresh still leaves the controller authenticated.
	if err := c.SetAuthState(remote.WithBearer(ctx, who.token), true, who.userID); err != nil {
		logger.Warn(ctx).Err(err).
			Str("session_id", sessionID).
			Str("user_id", who.userID).
			Msg("Restored session sign-in with errors")
	}
	logger.Debug(ctx).
		Str("session_id", sessionID).
		Str("user_id", who.userID).
		Msg("Session controller restored")
	return c, nil
}

// identityLocked returns the session's unexpired sign-in. The caller holds m.mu.
func (m *Manager) identityLocked(sessionID string) (identity, bool) {
	who, ok := m.identities[sessionID]
	if !ok {
		return identity{}, false
	}
	if !who.expires.IsZero() && !m.now().Before(who.expires) {
		delete(m.identities, sessionID)
		return identity{}, false
	}
	return who, true
}

// OnAuthChange routes an identity notification to the session's controller.
func (m *Manager) OnAuthChange(ctx context.Context, sessionID string, signedIn bool, userID string) error {
	c, err := m.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	return c.SetAuthState(ctx, signedIn, userID)
}

// SignIn remembers the session's user and token until expires, then
// switches the session's controller to that user. A zero expires never
// lapses.
func (m *Manager) SignIn(ctx context.Context, sessionID, userID, token string, expires time.Time) error {
	m.mu.Lock()
	m.identities[sessionID] = identity{userID: userID, token: token, expires: expires}
	m.mu.Unlock()

	return m.OnAuthChange(remote.WithBearer(ctx, token), sessionID, true, userID)
}

// SignOut forgets the session's sign-in and switches it to guest mode.
func (m *Manager) SignOut(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.identities, sessionID)
	m.mu.Unlock()

	return m.OnAuthChange(ctx, sessionID, false, "")
}

// Bearer returns the token remembered at sign-in while it is valid.
func (m *Manager) Bearer(sessionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	who, _ := m.identityLocked(sessionID)
	return who.token
}

// End tears the session's controller down. A remembered sign-in is kept.
func (m *Manager) End(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep evicts idle sessions and expired sign-ins, and returns how many
// sessions were dropped.
func (m *Manager) Sweep() int {
	now := m.now()
	cutoff := now.Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, e := range m.sessions {
		select {
		case <-e.ready:
		default:
			continue
		}
		if e.err == nil && e.lastSeen.Before(cutoff) && !e.controller.Snapshot().Migrating {
			delete(m.sessions, id)
			evicted++
		}
	}
	for id, who := range m.identities {
		if !who.expires.IsZero() && !now.Before(who.expires) {
			delete(m.identities, id)
		}
	}
	return evicted
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logger.Logger.Debug().
					Int("evicted", n).
					Int("live", m.Len()).
					Msg("Idle sessions evicted")
			}
		}
	}
}
