package stream

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Playback Manager ────────────────────

// SessionEvent describes a playback session lifecycle change, surfaced to
// observers (the WebSocket hub) as it happens.
type SessionEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	FileID    uuid.UUID `json:"file_id"`
	Strategy  Strategy  `json:"strategy"`
	State     string    `json:"state"`
	ExitCode  *int      `json:"exit_code,omitempty"`
}

// EventFunc receives session events. Called from the manager's own
// goroutines; implementations must not block.
type EventFunc func(SessionEvent)

type managedSession struct {
	session    *Session
	fileID     uuid.UUID
	strategy   Strategy
	lastAccess time.Time
}

// Manager tracks live playback sessions above the supervisor. Sessions
// remain independent — each owns its own subprocess — but the manager
// knows about all of them so stale ones can be reaped and events
// broadcast.
type Manager struct {
	supervisor Supervisor
	maxActive  int
	onEvent    EventFunc

	mu       sync.Mutex
	sessions map[uuid.UUID]*managedSession
	reserved int // slots claimed by Starts still spawning
}

func NewManager(supervisor Supervisor, maxActive int) *Manager {
	return &Manager{
		supervisor: supervisor,
		maxActive:  maxActive,
		sessions:   make(map[uuid.UUID]*managedSession),
	}
}

// OnEvent registers the session event callback. Must be set before the
// first Start.
func (m *Manager) OnEvent(fn EventFunc) { m.onEvent = fn }

// Start spawns a delivery subprocess for a file and registers the session.
// The slot is reserved before spawning so concurrent Starts cannot race
// past the cap.
func (m *Manager) Start(fileID uuid.UUID, strategy Strategy, sourcePath string, seekSeconds float64) (*Session, error) {
	m.mu.Lock()
	if m.maxActive > 0 && len(m.sessions)+m.reserved >= m.maxActive {
		m.mu.Unlock()
		return nil, fmt.Errorf("max concurrent playback sessions reached (%d)", m.maxActive)
	}
	m.reserved++
	m.mu.Unlock()

	session, err := m.supervisor.Start(sourcePath, StartOptions{
		Mode:        pipelineModeFor(strategy),
		SeekSeconds: seekSeconds,
	})

	m.mu.Lock()
	m.reserved--
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.sessions[session.ID] = &managedSession{
		session:    session,
		fileID:     fileID,
		strategy:   strategy,
		lastAccess: time.Now(),
	}
	m.mu.Unlock()

	log.Printf("stream: session %s started (file=%s strategy=%s pid=%d)", session.ID, fileID, strategy, session.Pid)
	m.emit(session, fileID, strategy)

	// Deregister and notify once the subprocess ends, however it ends.
	go func() {
		<-session.Done()
		m.mu.Lock()
		delete(m.sessions, session.ID)
		m.mu.Unlock()
		m.emit(session, fileID, strategy)
	}()

	return session, nil
}

// Stop terminates a session. Idempotent; stopping an unknown or already
// finished session is a no-op.
func (m *Manager) Stop(sessionID uuid.UUID) error {
	m.mu.Lock()
	ms, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return m.supervisor.Stop(ms.session)
}

// Touch stamps a session as recently used so cleanup leaves it alone.
func (m *Manager) Touch(sessionID uuid.UUID) {
	m.mu.Lock()
	if ms, ok := m.sessions[sessionID]; ok {
		ms.lastAccess = time.Now()
	}
	m.mu.Unlock()
}

// ActiveCount returns the number of live sessions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CleanupExpired stops sessions idle beyond maxAge. Run periodically by
// the scheduler.
func (m *Manager) CleanupExpired(maxAge time.Duration) {
	m.mu.Lock()
	var expired []*managedSession
	now := time.Now()
	for _, ms := range m.sessions {
		if now.Sub(ms.lastAccess) > maxAge {
			expired = append(expired, ms)
		}
	}
	m.mu.Unlock()

	for _, ms := range expired {
		log.Printf("stream: cleaning up idle session %s", ms.session.ID)
		if err := m.supervisor.Stop(ms.session); err != nil {
			log.Printf("stream: cleanup stop failed for %s: %v", ms.session.ID, err)
		}
	}
}

func (m *Manager) emit(session *Session, fileID uuid.UUID, strategy Strategy) {
	if m.onEvent == nil {
		return
	}
	state, code := session.State()
	evt := SessionEvent{
		SessionID: session.ID,
		FileID:    fileID,
		Strategy:  strategy,
		State:     state.String(),
	}
	if state == StateExited {
		evt.ExitCode = &code
	}
	m.onEvent(evt)
}

func pipelineModeFor(strategy Strategy) PipelineMode {
	switch strategy {
	case StrategyHLSCopy:
		return ModeHLSCopy
	case StrategyTranscode:
		return ModeTranscode
	default:
		return ModeRemux
	}
}
