// Package runs tracks the generation run of each client session so that a
// run can be canceled from another request.
package runs

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/mathgen/internal/logger"
)

// Run is one generation run of a session. Its cancellation flag only ever
// goes from false to true.
type Run struct {
	ID        string
	SessionID string
	StartedAt time.Time

	canceled atomic.Bool
}

// Cancel marks the run as canceled. It is safe to call from any goroutine
// and more than once.
func (r *Run) Cancel() {
	r.canceled.Store(true)
}

// Canceled reports whether the run was canceled. It has the signature of
// generator.Request.IsCanceled.
func (r *Run) Canceled() bool {
	return r.canceled.Load()
}

// Manager keeps at most one active run per session.
type Manager struct {
	runs map[string]*Run // sessionID -> active run
	mu   sync.RWMutex
}

// NewManager creates an empty run manager
func NewManager() *Manager {
	return &Manager{
		runs: make(map[string]*Run),
	}
}

// Start registers a new run for sessionID. A run already active for the
// session is canceled first, so a rerun supersedes it. An empty sessionID
// gets a fresh one.
func (m *Manager) Start(sessionID string) *Run {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	run := &Run{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	previous := m.runs[sessionID]
	m.runs[sessionID] = run
	m.mu.Unlock()

	if previous != nil {
		previous.Cancel()
		logger.Debug("run superseded", "session", sessionID, "run", previous.ID)
	}
	return run
}

// Cancel cancels the active run of sessionID.
func (m *Manager) Cancel(sessionID string) error {
	m.mu.RLock()
	run, exists := m.runs[sessionID]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("session %s has no active run", sessionID)
	}

	run.Cancel()
	logger.Debug("run canceled", "session", sessionID, "run", run.ID)
	return nil
}

// Finish removes run from its session unless a newer run replaced it.
func (m *Manager) Finish(run *Run) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.runs[run.SessionID] == run {
		delete(m.runs, run.SessionID)
	}
}

// Active returns the active run of sessionID.
func (m *Manager) Active(sessionID string) (*Run, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, exists := m.runs[sessionID]
	return run, exists
}

// ListSessions returns the sessions that have an active run.
func (m *Manager) ListSessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]string, 0, len(m.runs))
	for sessionID := range m.runs {
		sessions = append(sessions, sessionID)
	}
	return sessions
}
