package router

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/signupkit/pkg/core"
)

// LiveViewSession binds a mounted component to its socket and connection.
// Everything except the activity and mount bookkeeping is only touched by
// the session's message loop.
type LiveViewSession struct {
	// ID identifies the session.
	ID string

	// SocketID is the ID of the associated socket.
	SocketID string

	Component core.Component
	Socket    *core.Socket

	// Conn is the client connection.
	Conn Conn

	Params  core.Params
	Session core.Session

	// Topic is the channel topic, "lv:<socket-id>".
	Topic string

	CreatedAt    time.Time
	LastActivity time.Time
	Mounted      bool

	// Version orders render updates on the client.
	Version uint64

	// lastHash is the hash of the last HTML sent, to skip unchanged renders.
	lastHash uint64

	terminateOnce sync.Once
	mu            sync.RWMutex
}

// NewLiveViewSession creates a new session.
func NewLiveViewSession(socketID string, comp core.Component, params core.Params, session core.Session) *LiveViewSession {
	now := time.Now()
	return &LiveViewSession{
		ID:           uuid.NewString(),
		SocketID:     socketID,
		Component:    comp,
		Params:       params,
		Session:      session,
		Topic:        "lv:" + socketID,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// UpdateActivity records activity on the session.
func (s *LiveViewSession) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActivity = time.Now()
}

// GetLastActivity returns the last activity timestamp.
func (s *LiveViewSession) GetLastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastActivity
}

// SetMounted marks the session as mounted.
func (s *LiveViewSession) SetMounted(mounted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Mounted = mounted
}

// IsMounted reports whether the component was mounted.
func (s *LiveViewSession) IsMounted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Mounted
}

// nextVersion bumps and returns the render version.
func (s *LiveViewSession) nextVersion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Version++
	return s.Version
}

// LiveViewSessionManager tracks all active sessions.
type LiveViewSessionManager struct {
	sessions map[string]*LiveViewSession
	mu       sync.RWMutex
}

// NewLiveViewSessionManager creates a new session manager.
func NewLiveViewSessionManager() *LiveViewSessionManager {
	return &LiveViewSessionManager{
		sessions: make(map[string]*LiveViewSession),
	}
}

// Create creates and registers a new session.
func (m *LiveViewSessionManager) Create(socketID string, comp core.Component, params core.Params, session core.Session) *LiveViewSession {
	lvSession := NewLiveViewSession(socketID, comp, params, session)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[lvSession.ID] = lvSession
	return lvSession
}

// Remove unregisters a session.
func (m *LiveViewSessionManager) Remove(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
}

// Count returns the number of active sessions.
func (m *LiveViewSessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
