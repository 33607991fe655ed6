package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed session lock is held.
const DefaultLockTTL = 30 * time.Second

// sessionLock serializes the operations of one session. holders counts the
// goroutines that hold or wait for it; the entry is dropped at zero.
type sessionLock struct {
	mu      sync.Mutex
	holders int
}

// Manager serializes access to survey sessions kept in a StateStore.
// Per-session locks live only while someone uses them, so the lock table
// stays proportional to the sessions in flight, not to the sessions stored.
type Manager struct {
	store ports.StateStore

	tableMu sync.Mutex
	table   map[string]*sessionLock

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker makes every session operation also take a lock shared
// between processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) { m.locker = locker }
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager over store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		table:   make(map[string]*sessionLock),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// pin returns the lock of sessionID, registering the caller as a holder.
// Every pin must be paired with an unpin.
func (m *Manager) pin(sessionID string) *sessionLock {
	m.tableMu.Lock()
	defer m.tableMu.Unlock()

	l, ok := m.table[sessionID]
	if !ok {
		l = &sessionLock{}
		m.table[sessionID] = l
	}
	l.holders++
	return l
}

func (m *Manager) unpin(sessionID string) {
	m.tableMu.Lock()
	defer m.tableMu.Unlock()

	l, ok := m.table[sessionID]
	if !ok {
		return
	}
	if l.holders--; l.holders <= 0 {
		delete(m.table, sessionID)
	}
}

// Load returns the stored snapshot of a session.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, sessionID)
		return err
	})
	return snap, err
}

// LoadOrStart returns the snapshot of sessionID. An unknown session is
// created on the first step of surveyID and saved right away, so concurrent
// starts with the same ID agree on one session.
func (m *Manager) LoadOrStart(ctx context.Context, sessionID, surveyID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		existing, err := m.store.Load(ctx, sessionID)
		switch {
		case err == nil:
			snap = existing
			return nil
		case !errors.Is(err, domain.ErrSessionNotFound):
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		fresh := &domain.Snapshot{
			SessionID: sessionID,
			SurveyID:  surveyID,
			State:     domain.NewNavigationState(),
			Responses: domain.ResponseMap{},
			UpdatedAt: time.Now().UTC(),
		}
		if err := m.store.Save(ctx, sessionID, fresh); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		snap = fresh
		return nil
	})
	return snap, err
}

// Save stores snap under sessionID.
func (m *Manager) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, snap)
	})
}

// Delete removes a session.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List returns the stored session IDs.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

// WithLock runs fn while holding the session's lock, and the distributed
// lock when one is configured. fn must use Store() directly: calling back
// into the Manager for the same session deadlocks.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	l := m.pin(sessionID)
	l.mu.Lock()
	defer func() {
		l.mu.Unlock()
		m.unpin(sessionID)
	}()

	if m.locker == nil {
		return fn(ctx)
	}

	unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire distributed lock: %w", err)
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			m.logger.Warn("session lock not released, waiting for expiry",
				"session_id", sessionID, "ttl", m.lockTTL, "error", err)
		}
	}()
	return fn(ctx)
}
