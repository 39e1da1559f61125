package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/woofinder/core/logger"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[Key]Session
	now      func() time.Time
}

// NewMemoryStore constructs an in-memory Store for tests and single-instance deployments.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[Key]Session),
		now:      time.Now,
	}
}

// Get returns a copy of the stored session.
func (m *memoryStore) Get(_ context.Context, key Key) (Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[key]
	if !ok {
		return Session{}, false, nil
	}
	return sess.Clone(), true, nil
}

// Put replaces the session for key. Putting an inactive session clears it.
func (m *memoryStore) Put(ctx context.Context, key Key, sess Session) error {
	if !sess.Active() {
		return m.Clear(ctx, key)
	}
	sess = sess.Clone()
	sess.UpdatedAt = m.now().UTC()

	m.mu.Lock()
	m.sessions[key] = sess
	m.mu.Unlock()

	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, "wizard.sessions", "session.put",
			slog.String("status", "ok"),
			slog.String("scene", sess.SceneID),
			slog.Int("step", sess.Step),
		)
	}
	return nil
}

// Clear removes the session for key. Clearing a missing session is a no-op.
func (m *memoryStore) Clear(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, key)
	return nil
}
