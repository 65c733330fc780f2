package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/companion/internal/logging"
	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed session lock survives a
// crashed holder. It must outlive the slowest turn.
const DefaultLockTTL = 2 * time.Minute

// lockEntry holds a one-slot semaphore and the reference count. A channel
// rather than a mutex lets a queued caller give up when its context ends.
type lockEntry struct {
	sem  chan struct{}
	refs int
}

// Manager orchestrates session access so that at most one turn runs per
// session at a time. It uses reference counting to garbage collect unused
// locks.
type Manager struct {
	store ports.ConversationStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.ConversationStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST call release(sessionID) once it no longer waits on or holds
// entry.sem.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Load retrieves an existing conversation from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		conv, err = m.store.Load(ctx, sessionID)
		return err
	})
	return conv, err
}

// LoadOrNew loads a conversation without taking the session lock, returning
// a fresh one when none is stored. Callers already inside WithLock use it to
// start a turn. A fresh conversation is not persisted here; it only reaches
// the store once a turn on it succeeds.
func (m *Manager) LoadOrNew(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	conv, err := m.store.Load(ctx, sessionID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to check session existence: %w", err)
	}
	return domain.NewConversation(sessionID), nil
}

// Save persists the conversation.
func (m *Manager) Save(ctx context.Context, sessionID string, conv *domain.Conversation) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, conv)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying conversation store.
func (m *Manager) Store() ports.ConversationStore {
	return m.store
}

// WithLock executes a function while holding the lock for the session.
// The local lock serializes goroutines of this process; the distributed
// lock, when configured, serializes replicas. A caller still queued when ctx
// ends returns the context error without running fn.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		m.release(sessionID)
		return fmt.Errorf("wait for session %q: %w", sessionID, ctx.Err())
	}
	defer func() {
		<-entry.sem
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// Release even when the turn's context was cancelled.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
