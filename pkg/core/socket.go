package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabrielmiguelok/signupkit/pkg/protocol"
)

// Common socket errors.
var (
	ErrSocketClosed   = errors.New("socket is closed")
	ErrSocketNotFound = errors.New("socket not found")
	ErrSendFailed     = errors.New("failed to send message")
	ErrMailboxFull    = errors.New("socket mailbox full")
)

// DefaultMailboxSize is the info mailbox capacity used by NewSocket.
const DefaultMailboxSize = 16

// Transport is the part of a connection a socket needs.
type Transport interface {
	Send(msg protocol.Message) error
	Close() error
	IsConnected() bool
}

// Socket represents one client connection and the session state bound to it.
type Socket struct {
	id string

	closed bool

	// Unix nanoseconds.
	lastActivity atomic.Int64

	assigns   *Assigns
	transport Transport

	// info carries messages from background work to the session loop.
	info chan any

	mu sync.RWMutex
}

// SocketOption configures a socket.
type SocketOption func(*Socket)

// WithMailboxSize sets the info mailbox capacity.
func WithMailboxSize(n int) SocketOption {
	return func(s *Socket) {
		if n > 0 {
			s.info = make(chan any, n)
		}
	}
}

// NewSocket creates a new socket with the given ID and transport.
func NewSocket(id string, transport Transport, opts ...SocketOption) *Socket {
	now := time.Now()
	s := &Socket{
		id:        id,
		assigns:   NewAssigns(),
		transport: transport,
		info:      make(chan any, DefaultMailboxSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastActivity.Store(now.UnixNano())
	return s
}

// ID returns the socket's unique identifier.
func (s *Socket) ID() string {
	return s.id
}

// Topic returns the channel topic messages for this socket are sent on.
func (s *Socket) Topic() string {
	return "lv:" + s.id
}

// IsConnected returns true if the socket is open and its transport is connected.
func (s *Socket) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed && s.transport != nil && s.transport.IsConnected()
}

// LastActivity returns the time of last activity.
func (s *Socket) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// UpdateActivity updates the last activity timestamp.
func (s *Socket) UpdateActivity() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// Assigns returns the socket's assigns store.
func (s *Socket) Assigns() *Assigns {
	return s.assigns
}

// Assign sets a value in assigns.
func (s *Socket) Assign(key string, value any) {
	s.assigns.Set(key, value)
}

// Send sends a message to the client.
func (s *Socket) Send(msg protocol.Message) error {
	s.mu.RLock()
	closed := s.closed
	transport := s.transport
	s.mu.RUnlock()

	if closed || transport == nil || !transport.IsConnected() {
		return ErrSocketClosed
	}

	s.UpdateActivity()

	if err := transport.Send(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// Push sends an event to the client on the socket topic.
func (s *Socket) Push(event string, payload map[string]any) error {
	return s.Send(protocol.NewMessage(s.Topic(), event, payload))
}

// Redirect asks the client to navigate to the given path.
func (s *Socket) Redirect(to string) error {
	return s.Push(protocol.EventRedirect, map[string]any{"to": to})
}

// DiffPayload is the render update sent to clients.
type DiffPayload struct {
	// Version orders updates; clients drop stale versions.
	Version uint64 `json:"v"`
	// Full is the complete rendered HTML of the component.
	Full string `json:"f,omitempty"`
}

// IsEmpty returns true if the payload has no content.
func (d *DiffPayload) IsEmpty() bool {
	return d.Full == ""
}

// SendDiff sends a render update to the client.
func (s *Socket) SendDiff(payload *DiffPayload) error {
	if payload == nil || payload.IsEmpty() {
		return nil
	}
	return s.Push(protocol.EventDiff, map[string]any{
		"v": payload.Version,
		"f": payload.Full,
	})
}

// SendInfo posts msg to the socket mailbox without blocking. The session
// loop delivers it to the component's HandleInfo.
func (s *Socket) SendInfo(msg any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSocketClosed
	}

	select {
	case s.info <- msg:
		return nil
	default:
		return ErrMailboxFull
	}
}

// Info returns the mailbox channel drained by the session loop.
func (s *Socket) Info() <-chan any {
	return s.info
}

// Close closes the socket. Later SendInfo calls fail with ErrSocketClosed.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	transport := s.transport
	s.mu.Unlock()

	if transport != nil {
		return transport.Close()
	}
	return nil
}

// SocketManager tracks all active sockets.
type SocketManager struct {
	sockets    map[string]*Socket
	isShutdown bool
	mu         sync.RWMutex
}

// NewSocketManager creates a new socket manager.
func NewSocketManager() *SocketManager {
	return &SocketManager{
		sockets: make(map[string]*Socket),
	}
}

// Add registers a socket. It fails once the manager has shut down.
func (sm *SocketManager) Add(socket *Socket) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.isShutdown {
		return ErrSocketClosed
	}
	sm.sockets[socket.ID()] = socket
	return nil
}

// Remove unregisters a socket.
func (sm *SocketManager) Remove(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sockets, id)
}

// Get retrieves a socket by ID.
func (sm *SocketManager) Get(id string) (*Socket, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.sockets[id]
	return s, ok
}

// Count returns the number of active sockets.
func (sm *SocketManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sockets)
}

// All returns all sockets.
func (sm *SocketManager) All() []*Socket {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	result := make([]*Socket, 0, len(sm.sockets))
	for _, s := range sm.sockets {
		result = append(result, s)
	}
	return result
}

// Shutdown closes every socket and rejects new ones.
func (sm *SocketManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	if sm.isShutdown {
		sm.mu.Unlock()
		return nil
	}
	sm.isShutdown = true
	sockets := make([]*Socket, 0, len(sm.sockets))
	for _, s := range sm.sockets {
		sockets = append(sockets, s)
	}
	sm.mu.Unlock()

	for _, s := range sockets {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Close()
	}
	return nil
}

// IsShutdown returns true if the manager is shutting down.
func (sm *SocketManager) IsShutdown() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.isShutdown
}
