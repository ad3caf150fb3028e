package session

import (
	"context"
	"sync"
	"time"
)

// Store persists encoded sessions. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save overwrites the session payload and its expiry.
	Save(ctx context.Context, id string, data []byte, expiresAt time.Time) error

	// Load returns (nil, nil) for missing or expired sessions.
	Load(ctx context.Context, id string) ([]byte, error)

	// Delete does not fail on missing sessions.
	Delete(ctx context.Context, id string) error

	Close() error
}

// ErrStoreClosed is returned by a closed store.
type ErrStoreClosed struct{}

func (ErrStoreClosed) Error() string {
	return "session: store is closed"
}

// MemoryStore keeps sessions in process memory. Expired entries are swept
// periodically.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]storedSession
	closed   bool
	done     chan struct{}
	now      func() time.Time
}

type storedSession struct {
	data      []byte
	expiresAt time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	cleanupInterval time.Duration
	now             func() time.Time
}

// WithCleanupInterval sets how often expired sessions are swept. Default: 1 minute.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(c *memoryConfig) {
		if d > 0 {
			c.cleanupInterval = d
		}
	}
}

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *memoryConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// NewMemoryStore starts an in-memory store. Call Close to stop the sweeper.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	cfg := memoryConfig{cleanupInterval: time.Minute, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	store := &MemoryStore{
		sessions: make(map[string]storedSession),
		done:     make(chan struct{}),
		now:      cfg.now,
	}
	go store.cleanupLoop(cfg.cleanupInterval)
	return store
}

func (m *MemoryStore) Save(_ context.Context, id string, data []byte, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed{}
	}
	m.sessions[id] = storedSession{data: append([]byte(nil), data...), expiresAt: expiresAt}
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed{}
	}
	stored, ok := m.sessions[id]
	if !ok || m.now().After(stored.expiresAt) {
		return nil, nil
	}
	return append([]byte(nil), stored.data...), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed{}
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	m.sessions = nil
	return nil
}

// Count returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.done:
			return
		}
	}
}

func (m *MemoryStore) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	now := m.now()
	for id, stored := range m.sessions {
		if now.After(stored.expiresAt) {
			delete(m.sessions, id)
		}
	}
}
