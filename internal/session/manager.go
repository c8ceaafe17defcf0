// ABOUTME: Manages open generation sessions, handles creation, lookup, and closure.
// ABOUTME: Runs the background idle-eviction sweep; sole owner of the session table.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumenlabs/lumen-gateway/internal/engine"
)

// ErrNotFound indicates the specified session does not exist or is closed.
var ErrNotFound = errors.New("session not found")

// DefaultInstructions seed an engine context when the caller supplies none.
// Deliberately task-agnostic: all semantic intent arrives per message.
const DefaultInstructions = "Follow the user's instructions precisely."

// Session is one open conversational context. The Context handle stays valid
// for a request that already retrieved it, even if the table entry is
// evicted mid-use.
type Session struct {
	ID        string
	Context   engine.Context
	CreatedAt time.Time

	// lastActivity is guarded by the manager's mutex. time.Time carries a
	// monotonic reading, so comparisons are immune to wall-clock jumps.
	lastActivity time.Time
}

// Manager owns the table of open sessions. All structural mutation and every
// activity bump happens under one mutex; nothing else touches the table.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	engine        engine.Engine
	logger        *slog.Logger
	idleTimeout   time.Duration
	sweepInterval time.Duration

	done   chan struct{}
	closed bool
}

// NewManager creates a Manager and starts its idle-eviction sweep.
func NewManager(eng engine.Engine, idleTimeout, sweepInterval time.Duration, logger *slog.Logger) *Manager {
	m := &Manager{
		sessions:      make(map[string]*Session),
		engine:        eng,
		logger:        logger,
		idleTimeout:   idleTimeout,
		sweepInterval: sweepInterval,
		done:          make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Open creates a new session seeded with the given instructions (or the
// task-agnostic default) and returns its id. The engine context is created
// before the session becomes visible; a half-built session is never
// observable, and ids are unique for the life of the process.
func (m *Manager) Open(ctx context.Context, instructions string) (string, error) {
	if instructions == "" {
		instructions = DefaultInstructions
	}

	engCtx, err := m.engine.OpenContext(ctx, instructions)
	if err != nil {
		return "", fmt.Errorf("opening engine context: %w", err)
	}

	now := time.Now()
	sess := &Session{
		ID:           uuid.New().String(),
		Context:      engCtx,
		CreatedAt:    now,
		lastActivity: now,
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	total := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info("session opened", "session_id", sess.ID, "total_sessions", total)
	return sess.ID, nil
}

// Get retrieves a session and bumps its activity timestamp. The bump happens
// on every successful lookup, so a message whose engine call later fails
// still counts as activity.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastActivity = time.Now()
	return sess, true
}

// Close removes a session and releases its engine context.
// Returns ErrNotFound if no such session is open.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	total := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	if err := sess.Context.Close(); err != nil {
		m.logger.Error("closing engine context", "session_id", id, "error", err)
	}
	m.logger.Info("session closed", "session_id", id, "total_sessions", total)
	return nil
}

// CloseAll closes every open session. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	closing := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		closing = append(closing, sess)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range closing {
		if err := sess.Context.Close(); err != nil {
			m.logger.Error("closing engine context", "session_id", sess.ID, "error", err)
		}
	}
	if len(closing) > 0 {
		m.logger.Info("all sessions closed", "count", len(closing))
	}
}

// Count returns the number of currently open sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stop halts the background sweep and closes all sessions.
// Safe to call multiple times.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.closed {
		close(m.done)
		m.closed = true
	}
	m.mu.Unlock()

	m.CloseAll()
}

// sweep runs in a background goroutine, periodically evicting idle sessions.
func (m *Manager) sweep() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-m.done:
			return
		}
	}
}

// evictIdle closes every session idle past the threshold. Expired sessions
// are collected first, then closed, so the table is never mutated while
// being iterated.
func (m *Manager) evictIdle() {
	now := time.Now()

	m.mu.Lock()
	var expired []*Session
	for _, sess := range m.sessions {
		if now.Sub(sess.lastActivity) > m.idleTimeout {
			expired = append(expired, sess)
		}
	}
	for _, sess := range expired {
		delete(m.sessions, sess.ID)
	}
	m.mu.Unlock()

	for _, sess := range expired {
		if err := sess.Context.Close(); err != nil {
			m.logger.Error("closing engine context", "session_id", sess.ID, "error", err)
		}
		m.logger.Warn("session evicted after idle timeout",
			"session_id", sess.ID,
			"idle", now.Sub(sess.lastActivity).Round(time.Second),
			"timeout", m.idleTimeout,
		)
	}
}
