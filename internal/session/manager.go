package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ecarlucci/taskmate/internal/assistant"
	"github.com/ecarlucci/taskmate/internal/backend"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrEnded    = errors.New("session has ended")
)

type Session struct {
	ID             string    `json:"session_id"`
	UserID         string    `json:"user_id"`
	Status         Status    `json:"status"`
	Turns          int       `json:"turns"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// runtime is the per-session dialogue state. The mutex serializes turns:
// the assistant controller is cooperative and non-reentrant, so a second
// turn waits for the first to finish.
type runtime struct {
	mu         sync.Mutex
	controller *assistant.Controller
}

type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	runtimes          map[string]*runtime
	inactivityTimeout time.Duration
	onExpire          func(*Session)
	observer          assistant.Observer
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 10 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		runtimes:          make(map[string]*runtime),
		inactivityTimeout: inactivityTimeout,
	}
}

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// SetObserver installs the dialogue instrumentation hook applied to every
// controller created from here on.
func (m *Manager) SetObserver(obs assistant.Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = obs
}

// Create builds a session and its assistant controller. The controller
// fetches and freezes the user directory here, once per session.
func (m *Manager) Create(ctx context.Context, userID string, b backend.Backend) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		Status:         StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
	}
	rt := &runtime{controller: assistant.NewController(ctx, b, userID)}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.observer != nil {
		rt.controller.SetObserver(m.observer)
	}
	m.sessions[s.ID] = s
	m.runtimes[s.ID] = rt
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// HandleTurn routes one utterance to the session's controller and returns
// the transcript entries the turn appended.
func (m *Manager) HandleTurn(ctx context.Context, sessionID, text string) ([]assistant.Entry, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	rt := m.runtimes[sessionID]
	if !ok || rt == nil {
		m.mu.RUnlock()
		return nil, ErrNotFound
	}
	if s.Status != StatusActive {
		m.mu.RUnlock()
		return nil, ErrEnded
	}
	m.mu.RUnlock()

	rt.mu.Lock()
	defer rt.mu.Unlock()
	entries := rt.controller.Handle(ctx, text)

	m.mu.Lock()
	if s, ok := m.sessions[sessionID]; ok {
		s.Turns++
		s.LastActivityAt = time.Now().UTC()
	}
	m.mu.Unlock()
	return entries, nil
}

// Transcript returns the session's full transcript so far.
func (m *Manager) Transcript(sessionID string) ([]assistant.Entry, error) {
	m.mu.RLock()
	rt, ok := m.runtimes[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.controller.Transcript(), nil
}

func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = StatusEnded
	s.LastActivityAt = time.Now().UTC()
	delete(m.runtimes, sessionID)
	return clone(s), nil
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.Status != StatusActive {
			continue
		}
		if now.Sub(s.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		s.Status = StatusEnded
		s.LastActivityAt = now
		delete(m.runtimes, id)
		expired = append(expired, clone(s))
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
